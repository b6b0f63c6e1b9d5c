package mysql

import (
	"database/sql"
	"strings"

	"github.com/koustreak/dbpilot/internal/database"
)

const unknownType = "UNKNOWN"

// decodeRows scans each row into untyped holders and decodes every value on
// its own using the column's reported type name.
func decodeRows(rows *sql.Rows) (*database.ResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, mapError(err, "failed to read column types")
	}

	cols := make([]database.ResultColumn, len(types))
	for i, ct := range types {
		cols[i] = database.ResultColumn{Name: ct.Name(), DataType: typeName(ct.DatabaseTypeName())}
	}

	rs := &database.ResultSet{Columns: cols, Rows: [][]database.Value{}}
	holders := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range holders {
		ptrs[i] = &holders[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapError(err, "failed to scan row")
		}
		vals := make([]database.Value, len(cols))
		for i, raw := range holders {
			vals[i] = database.Decode(cols[i].DataType, raw)
			holders[i] = nil
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to read rows")
	}
	return rs, nil
}

// typeName normalises a driver type name, e.g. "UNSIGNED BIGINT" → BIGINT.
func typeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "UNSIGNED ")
	if name == "" {
		return unknownType
	}
	return name
}
