package database

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Canonical textual layouts for the zone-less temporal types.
const (
	TimestampLayout = "2006-01-02 15:04:05.999999"
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05.999999"
)

type decodeFunc func(raw any) (Value, bool)

// decoders maps an upper-cased server type tag to its decode function.
// Tags missing from the table go through decodeFallback.
var decoders = map[string]decodeFunc{
	// integers
	"INT2":      decodeInteger,
	"INT4":      decodeInteger,
	"INT8":      decodeInteger,
	"SMALLINT":  decodeInteger,
	"INTEGER":   decodeInteger,
	"INT":       decodeInteger,
	"BIGINT":    decodeInteger,
	"TINYINT":   decodeInteger,
	"MEDIUMINT": decodeInteger,
	"YEAR":      decodeInteger,
	"OID":       decodeInteger,

	// floats and decimals
	"FLOAT4":  decodeFloat,
	"FLOAT8":  decodeFloat,
	"REAL":    decodeFloat,
	"FLOAT":   decodeFloat,
	"DOUBLE":  decodeFloat,
	"NUMERIC": decodeFloat,
	"DECIMAL": decodeFloat,

	"BOOL":    decodeBool,
	"BOOLEAN": decodeBool,

	// text-like
	"TEXT":       decodeText,
	"VARCHAR":    decodeText,
	"BPCHAR":     decodeText,
	"CHAR":       decodeText,
	"NAME":       decodeText,
	"CITEXT":     decodeText,
	"TINYTEXT":   decodeText,
	"MEDIUMTEXT": decodeText,
	"LONGTEXT":   decodeText,
	"ENUM":       decodeText,
	"SET":        decodeText,

	// temporal
	"TIMESTAMPTZ": decodeTimestampTZ,
	"TIMESTAMP":   decodeLayout(TimestampLayout),
	"DATETIME":    decodeLayout(TimestampLayout),
	"DATE":        decodeLayout(DateLayout),
	"TIME":        decodeLayout(TimeLayout),

	"UUID": decodeUUID,

	"JSON":  decodeJSON,
	"JSONB": decodeJSON,
}

// Decode converts a driver-native value into a Value according to the
// server-reported type tag. It never fails: a value that cannot be decoded
// becomes Null.
func Decode(typeTag string, raw any) Value {
	if raw == nil {
		return Null()
	}
	fn, ok := decoders[strings.ToUpper(typeTag)]
	if !ok {
		fn = decodeFallback
	}
	if v, ok := fn(raw); ok {
		return v
	}
	return Null()
}

// bytesToString turns driver []byte payloads into strings; MySQL's text
// protocol hands back every scalar that way.
func bytesToString(raw any) any {
	if b, ok := raw.([]byte); ok {
		return string(b)
	}
	return raw
}

func decodeInteger(raw any) (Value, bool) {
	switch t := bytesToString(raw).(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return FromAny(t), true
	case float64:
		return Integer(int64(t)), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return Integer(i), true
		}
		u, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return FromAny(u), true
		}
		return Null(), false
	default:
		return Null(), false
	}
}

func decodeFloat(raw any) (Value, bool) {
	switch t := bytesToString(raw).(type) {
	case float32:
		return float32Value(t), true
	case float64:
		return Float(t), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := strconv.ParseFloat(fmt.Sprint(t), 64)
		return Float(f), true
	case *big.Float:
		f, _ := t.Float64()
		return Float(f), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return Null(), false
		}
		return Float(f), true
	default:
		return Null(), false
	}
}

func decodeBool(raw any) (Value, bool) {
	switch t := bytesToString(raw).(type) {
	case bool:
		return Bool(t), true
	case int64:
		return Bool(t != 0), true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return Null(), false
		}
		return Bool(b), true
	default:
		return Null(), false
	}
}

func decodeText(raw any) (Value, bool) {
	switch t := raw.(type) {
	case string:
		return Text(t), true
	case []byte:
		if !utf8.Valid(t) {
			return Null(), false
		}
		return Text(string(t)), true
	default:
		return decodeFallback(raw)
	}
}

func decodeTimestampTZ(raw any) (Value, bool) {
	switch t := raw.(type) {
	case time.Time:
		return Text(t.UTC().Format(time.RFC3339Nano)), true
	default:
		// infinity, -infinity and anything the driver left as text
		return decodeText(raw)
	}
}

func decodeLayout(layout string) decodeFunc {
	return func(raw any) (Value, bool) {
		if t, ok := raw.(time.Time); ok {
			return Text(t.Format(layout)), true
		}
		return decodeText(raw)
	}
}

func decodeUUID(raw any) (Value, bool) {
	switch t := raw.(type) {
	case [16]byte:
		return Text(uuid.UUID(t).String()), true
	case uuid.UUID:
		return Text(t.String()), true
	case []byte:
		if len(t) == 16 {
			u, err := uuid.FromBytes(t)
			if err != nil {
				return Null(), false
			}
			return Text(u.String()), true
		}
		return decodeUUID(string(t))
	case string:
		u, err := uuid.Parse(t)
		if err != nil {
			return Text(t), true
		}
		return Text(u.String()), true
	default:
		return decodeFallback(raw)
	}
}

// decodeJSON passes structured documents through as Array/Object. Drivers
// that return the document as text are parsed first.
func decodeJSON(raw any) (Value, bool) {
	switch t := raw.(type) {
	case []byte:
		return parseJSON(t)
	case string:
		return parseJSON([]byte(t))
	default:
		return FromAny(t), true
	}
}

func parseJSON(b []byte) (Value, bool) {
	var v Value
	if err := json.Unmarshal(bytes.TrimSpace(b), &v); err != nil {
		if utf8.Valid(b) {
			return Text(string(b)), true
		}
		return Null(), false
	}
	return v, true
}

// decodeFallback handles unrecognised tags: text first, then anything the
// driver decoded into a known Go shape.
func decodeFallback(raw any) (Value, bool) {
	switch t := raw.(type) {
	case string:
		return Text(t), true
	case []byte:
		if !utf8.Valid(t) {
			return Null(), false
		}
		return Text(string(t)), true
	case time.Time:
		return Text(t.UTC().Format(time.RFC3339Nano)), true
	case [16]byte:
		return Text(uuid.UUID(t).String()), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, []any, map[string]any, Value:
		return FromAny(t), true
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil || dv == nil {
			return Null(), false
		}
		return decodeFallback(dv)
	case fmt.Stringer:
		return Text(t.String()), true
	default:
		return Null(), false
	}
}

// BindArg converts a Value into a driver bind parameter.
//
// Text equal to "null" in any case binds as SQL NULL. Text wrapped in
// single quotes (longer than two characters) binds its inner text, which is
// how a caller sends the literal string null. Arrays and objects bind as
// their JSON text.
func BindArg(v Value) any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		s := v.s
		if strings.EqualFold(s, "null") {
			return nil
		}
		if len(s) > 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
			return s[1 : len(s)-1]
		}
		return s
	case KindArray, KindObject:
		b, err := v.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return nil
	}
}
