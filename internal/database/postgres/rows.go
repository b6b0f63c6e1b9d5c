package postgres

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/dbpilot/internal/database"
)

const unknownType = "UNKNOWN"

// decodeRows reads every row and decodes each value on its own, so one
// value pgx cannot decode becomes Null instead of failing the row.
func decodeRows(rows pgx.Rows) (*database.ResultSet, error) {
	fields := rows.FieldDescriptions()
	m := rows.Conn().TypeMap()

	cols := make([]database.ResultColumn, len(fields))
	for i, f := range fields {
		cols[i] = database.ResultColumn{Name: f.Name, DataType: typeName(m, f.DataTypeOID)}
	}

	rs := &database.ResultSet{Columns: cols, Rows: [][]database.Value{}}
	for rows.Next() {
		raw := rows.RawValues()
		vals := make([]database.Value, len(fields))
		for i := range fields {
			vals[i] = decodeField(m, fields[i], cols[i].DataType, raw[i])
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to read rows")
	}
	return rs, nil
}

// typeName is the upper-cased pgtype name for oid, e.g. INT4 or _TEXT.
func typeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return strings.ToUpper(t.Name)
	}
	return unknownType
}

func decodeField(m *pgtype.Map, f pgconn.FieldDescription, tag string, raw []byte) database.Value {
	if raw == nil {
		return database.Null()
	}

	switch f.DataTypeOID {
	case pgtype.JSONOID:
		return database.Decode(tag, raw)
	case pgtype.JSONBOID:
		// binary jsonb carries a one-byte version prefix
		if f.Format == pgtype.BinaryFormatCode && len(raw) > 0 && raw[0] == 1 {
			raw = raw[1:]
		}
		return database.Decode(tag, raw)
	}

	t, ok := m.TypeForOID(f.DataTypeOID)
	if !ok {
		if f.Format == pgtype.TextFormatCode {
			return database.Decode(tag, string(raw))
		}
		return database.Null()
	}

	v, err := t.Codec.DecodeValue(m, f.DataTypeOID, f.Format, raw)
	if err != nil {
		return database.Null()
	}
	return database.Decode(tag, normalize(v))
}

// normalize converts pgtype wrappers into plain Go values the shared codec
// understands.
func normalize(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Time:
		if !t.Valid {
			return nil
		}
		midnight := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		return midnight.Add(time.Duration(t.Microseconds) * time.Microsecond).Format(database.TimeLayout)
	default:
		return v
	}
}
