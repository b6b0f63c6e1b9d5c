package database

import "encoding/json"

// RowID is the opaque identity of a row: the compact JSON encoding of its
// primary-key column values. Tables without a primary key produce "".
type RowID string

// RowKey maps primary-key column names to values.
type RowKey map[string]Value

// EncodeRowID builds the identity of one row. columns and values are
// positionally aligned; pk names the primary-key columns.
//
// encoding/json writes map keys in sorted order, so equal keys always
// produce byte-identical ids.
func EncodeRowID(columns []string, values []Value, pk []string) RowID {
	if len(pk) == 0 {
		return ""
	}

	key := make(RowKey, len(pk))
	for _, name := range pk {
		key[name] = Null()
		for i, c := range columns {
			if c == name && i < len(values) {
				key[name] = values[i]
				break
			}
		}
	}

	b, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return RowID(b)
}

// DecodeRowID parses an id back into its key. An empty or malformed id
// yields an empty key.
func DecodeRowID(id RowID) RowKey {
	if id == "" {
		return RowKey{}
	}
	var raw map[string]Value
	if err := json.Unmarshal([]byte(id), &raw); err != nil || raw == nil {
		return RowKey{}
	}
	return RowKey(raw)
}

// Covers reports whether the key holds a value for every pk column.
func (k RowKey) Covers(pk []string) bool {
	if len(pk) == 0 || len(k) == 0 {
		return false
	}
	for _, name := range pk {
		if _, ok := k[name]; !ok {
			return false
		}
	}
	return true
}

// Values returns the key's values in pk order.
func (k RowKey) Values(pk []string) []Value {
	out := make([]Value, len(pk))
	for i, name := range pk {
		out[i] = k[name]
	}
	return out
}
