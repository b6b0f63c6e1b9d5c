package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koustreak/dbpilot/internal/database"
)

const listSchemasSQL = `
	SELECT schema_name
	FROM information_schema.schemata
	WHERE schema_name NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
	ORDER BY schema_name`

const listTablesSQL = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = ?
	  AND table_type   = 'BASE TABLE'
	ORDER BY table_name`

const listColumnsSQL = `
	SELECT column_name,
	       data_type,
	       is_nullable = 'YES',
	       column_key = 'PRI',
	       extra,
	       column_default
	FROM information_schema.columns
	WHERE table_schema = ?
	  AND table_name   = ?
	ORDER BY ordinal_position`

const listIndexesSQL = `
	SELECT index_name,
	       column_name,
	       non_unique = 0,
	       index_name = 'PRIMARY'
	FROM information_schema.statistics
	WHERE table_schema = ?
	  AND table_name   = ?
	ORDER BY index_name, seq_in_index`

const listConstraintsSQL = `
	SELECT tc.constraint_name,
	       tc.constraint_type,
	       kcu.column_name,
	       cc.check_clause
	FROM information_schema.table_constraints tc
	LEFT JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_schema = kcu.constraint_schema
	 AND tc.table_name        = kcu.table_name
	 AND tc.constraint_name   = kcu.constraint_name
	LEFT JOIN information_schema.check_constraints cc
	  ON tc.constraint_schema = cc.constraint_schema
	 AND tc.constraint_name   = cc.constraint_name
	WHERE tc.table_schema = ?
	  AND tc.table_name   = ?
	ORDER BY tc.constraint_type, tc.constraint_name, kcu.ordinal_position`

const foreignKeysSelect = `
	SELECT constraint_name,
	       table_schema,
	       table_name,
	       column_name,
	       referenced_table_schema,
	       referenced_table_name,
	       referenced_column_name
	FROM information_schema.key_column_usage
	WHERE table_schema = ?
	  AND referenced_table_name IS NOT NULL`

const (
	listSchemaForeignKeysSQL = foreignKeysSelect + `
	ORDER BY table_name, constraint_name, ordinal_position`

	listTableForeignKeysSQL = foreignKeysSelect + `
	  AND table_name = ?
	ORDER BY constraint_name, ordinal_position`
)

// ListSchemas returns user databases in name order.
func (d *Driver) ListSchemas(ctx context.Context) ([]string, error) {
	return d.fetchStrings(ctx, listSchemasSQL, "failed to list schemas")
}

// ListTables returns the base tables of schema in name order.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	return d.fetchStrings(ctx, listTablesSQL, "failed to list tables", schema)
}

// ListColumns returns a table's columns in ordinal order.
func (d *Driver) ListColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	rows, err := d.db.QueryContext(ctx, listColumnsSQL, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to list columns")
	}
	defer rows.Close()

	cols := []database.Column{}
	for rows.Next() {
		var (
			c     database.Column
			extra string
		)
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimaryKey, &extra, &c.DefaultValue); err != nil {
			return nil, mapError(err, "failed to scan column")
		}
		c.IsAutoGenerated = autoGenerated(extra)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to list columns")
	}
	return cols, nil
}

// ListIndexes folds per-column statistics rows into one record per index.
func (d *Driver) ListIndexes(ctx context.Context, schema, table string) ([]database.IndexInfo, error) {
	rows, err := d.db.QueryContext(ctx, listIndexesSQL, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to list indexes")
	}
	defer rows.Close()

	var list []indexRow
	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.name, &r.column, &r.unique, &r.primary); err != nil {
			return nil, mapError(err, "failed to scan index")
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to list indexes")
	}
	return foldIndexes(list), nil
}

// ListConstraints folds per-column rows into one record per constraint.
func (d *Driver) ListConstraints(ctx context.Context, schema, table string) ([]database.ConstraintInfo, error) {
	rows, err := d.db.QueryContext(ctx, listConstraintsSQL, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to list constraints")
	}
	defer rows.Close()

	var list []constraintRow
	for rows.Next() {
		var r constraintRow
		if err := rows.Scan(&r.name, &r.kind, &r.column, &r.check); err != nil {
			return nil, mapError(err, "failed to scan constraint")
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to list constraints")
	}
	return foldConstraints(list), nil
}

// ListForeignKeys lists one table's relationships, or the whole schema's
// when table is empty.
func (d *Driver) ListForeignKeys(ctx context.Context, schema, table string) ([]database.ForeignKey, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if table == "" {
		rows, err = d.db.QueryContext(ctx, listSchemaForeignKeysSQL, schema)
	} else {
		rows, err = d.db.QueryContext(ctx, listTableForeignKeysSQL, schema, table)
	}
	if err != nil {
		return nil, mapError(err, "failed to list foreign keys")
	}
	defer rows.Close()

	fks := []database.ForeignKey{}
	for rows.Next() {
		var fk database.ForeignKey
		if err := rows.Scan(&fk.ConstraintName, &fk.SourceSchema, &fk.SourceTable, &fk.SourceColumn,
			&fk.TargetSchema, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return nil, mapError(err, "failed to scan foreign key")
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to list foreign keys")
	}
	return fks, nil
}

// autoGenerated reports whether a column's EXTRA value marks it as filled
// in by the server. DEFAULT_GENERATED only means the default is an
// expression, such as CURRENT_TIMESTAMP, and does not count.
func autoGenerated(extra string) bool {
	e := strings.ToUpper(extra)
	return strings.Contains(e, "AUTO_INCREMENT") ||
		strings.Contains(e, "VIRTUAL GENERATED") ||
		strings.Contains(e, "STORED GENERATED")
}

// indexRow is one statistics row: a single column of an index.
type indexRow struct {
	name, column    string
	unique, primary bool
}

// foldIndexes merges consecutive rows of the same index. Rows must be
// ordered by index name, then column position.
func foldIndexes(list []indexRow) []database.IndexInfo {
	indexes := []database.IndexInfo{}
	for _, r := range list {
		if n := len(indexes); n > 0 && indexes[n-1].Name == r.name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, r.column)
			continue
		}
		indexes = append(indexes, database.IndexInfo{
			Name:      r.name,
			Columns:   []string{r.column},
			IsUnique:  r.unique,
			IsPrimary: r.primary,
		})
	}
	return indexes
}

// constraintRow is one constraint/key-column pair. column is null for
// CHECK constraints.
type constraintRow struct {
	name, kind string
	column     sql.NullString
	check      *string
}

// foldConstraints merges consecutive rows of the same constraint.
func foldConstraints(list []constraintRow) []database.ConstraintInfo {
	cons := []database.ConstraintInfo{}
	for _, r := range list {
		n := len(cons)
		if n == 0 || cons[n-1].Name != r.name || cons[n-1].Type != r.kind {
			cons = append(cons, database.ConstraintInfo{Name: r.name, Type: r.kind, Columns: []string{}, Definition: r.check})
			n++
		}
		if r.column.Valid {
			cons[n-1].Columns = append(cons[n-1].Columns, r.column.String)
		}
	}
	return cons
}

// fetchStrings is a helper for queries that return a single text column.
func (d *Driver) fetchStrings(ctx context.Context, q, errMsg string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	defer rows.Close()

	list := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, mapError(err, errMsg)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errMsg)
	}
	return list, nil
}
