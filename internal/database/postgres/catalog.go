package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/koustreak/dbpilot/internal/database"
)

const listSchemasSQL = `
	SELECT schema_name::text
	FROM information_schema.schemata
	WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	  AND schema_name NOT LIKE 'pg_temp_%'
	  AND schema_name NOT LIKE 'pg_toast_temp_%'
	ORDER BY schema_name`

const listTablesSQL = `
	SELECT table_name::text
	FROM information_schema.tables
	WHERE table_schema = $1
	  AND table_type   = 'BASE TABLE'
	ORDER BY table_name`

const listColumnsSQL = `
	SELECT c.column_name::text,
	       c.data_type::text,
	       c.is_nullable = 'YES',
	       pk.column_name IS NOT NULL,
	       CASE
	           WHEN c.column_default LIKE 'nextval%'   THEN true
	           WHEN c.is_generated = 'ALWAYS'          THEN true
	           WHEN c.identity_generation IS NOT NULL THEN true
	           ELSE false
	       END,
	       c.column_default::text
	FROM information_schema.columns c
	LEFT JOIN (
	    SELECT kcu.column_name
	    FROM information_schema.table_constraints tc
	    JOIN information_schema.key_column_usage kcu
	      ON tc.constraint_name = kcu.constraint_name
	     AND tc.table_schema    = kcu.table_schema
	    WHERE tc.constraint_type = 'PRIMARY KEY'
	      AND tc.table_schema    = $1
	      AND tc.table_name      = $2
	) pk ON c.column_name = pk.column_name
	WHERE c.table_schema = $1
	  AND c.table_name   = $2
	ORDER BY c.ordinal_position`

const listIndexesSQL = `
	SELECT i.relname::text,
	       array_agg(a.attname::text ORDER BY array_position(ix.indkey, a.attnum)),
	       ix.indisunique,
	       ix.indisprimary
	FROM pg_index ix
	JOIN pg_class t      ON t.oid = ix.indrelid
	JOIN pg_class i      ON i.oid = ix.indexrelid
	JOIN pg_namespace n  ON n.oid = t.relnamespace
	JOIN pg_attribute a  ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
	WHERE n.nspname = $1
	  AND t.relname = $2
	GROUP BY i.relname, ix.indisunique, ix.indisprimary
	ORDER BY i.relname`

const listConstraintsSQL = `
	SELECT tc.constraint_name::text,
	       tc.constraint_type::text,
	       array_remove(array_agg(kcu.column_name::text ORDER BY kcu.ordinal_position), NULL),
	       cc.check_clause::text
	FROM information_schema.table_constraints tc
	LEFT JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name
	 AND tc.table_schema    = kcu.table_schema
	LEFT JOIN information_schema.check_constraints cc
	  ON tc.constraint_name   = cc.constraint_name
	 AND tc.constraint_schema = cc.constraint_schema
	WHERE tc.table_schema = $1
	  AND tc.table_name   = $2
	GROUP BY tc.constraint_name, tc.constraint_type, cc.check_clause
	ORDER BY tc.constraint_type, tc.constraint_name`

const foreignKeysSelect = `
	SELECT tc.constraint_name::text,
	       tc.table_schema::text,
	       tc.table_name::text,
	       kcu.column_name::text,
	       ccu.table_schema::text,
	       ccu.table_name::text,
	       ccu.column_name::text
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name
	 AND tc.table_schema    = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
	  ON ccu.constraint_name = tc.constraint_name
	 AND ccu.table_schema    = tc.table_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
	  AND tc.table_schema    = $1`

const (
	listSchemaForeignKeysSQL = foreignKeysSelect + `
	ORDER BY tc.table_name, tc.constraint_name`

	listTableForeignKeysSQL = foreignKeysSelect + `
	  AND tc.table_name = $2
	ORDER BY tc.constraint_name`
)

// ListSchemas returns user schemas in name order.
func (d *Driver) ListSchemas(ctx context.Context) ([]string, error) {
	return d.fetchStrings(ctx, listSchemasSQL, "failed to list schemas")
}

// ListTables returns the base tables of schema in name order.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	return d.fetchStrings(ctx, listTablesSQL, "failed to list tables", schema)
}

// ListColumns returns a table's columns in ordinal order.
func (d *Driver) ListColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	rows, err := d.pool.Query(ctx, listColumnsSQL, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to list columns")
	}

	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (database.Column, error) {
		var c database.Column
		err := row.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimaryKey, &c.IsAutoGenerated, &c.DefaultValue)
		return c, err
	})
	if err != nil {
		return nil, mapError(err, "failed to scan columns")
	}
	return cols, nil
}

func (d *Driver) ListIndexes(ctx context.Context, schema, table string) ([]database.IndexInfo, error) {
	rows, err := d.pool.Query(ctx, listIndexesSQL, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to list indexes")
	}

	idx, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (database.IndexInfo, error) {
		var i database.IndexInfo
		err := row.Scan(&i.Name, &i.Columns, &i.IsUnique, &i.IsPrimary)
		return i, err
	})
	if err != nil {
		return nil, mapError(err, "failed to scan indexes")
	}
	return idx, nil
}

func (d *Driver) ListConstraints(ctx context.Context, schema, table string) ([]database.ConstraintInfo, error) {
	rows, err := d.pool.Query(ctx, listConstraintsSQL, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to list constraints")
	}

	cons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (database.ConstraintInfo, error) {
		var c database.ConstraintInfo
		err := row.Scan(&c.Name, &c.Type, &c.Columns, &c.Definition)
		if c.Columns == nil {
			c.Columns = []string{}
		}
		return c, err
	})
	if err != nil {
		return nil, mapError(err, "failed to scan constraints")
	}
	return cons, nil
}

// ListForeignKeys lists one table's relationships, or the whole schema's
// when table is empty.
func (d *Driver) ListForeignKeys(ctx context.Context, schema, table string) ([]database.ForeignKey, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if table == "" {
		rows, err = d.pool.Query(ctx, listSchemaForeignKeysSQL, schema)
	} else {
		rows, err = d.pool.Query(ctx, listTableForeignKeysSQL, schema, table)
	}
	if err != nil {
		return nil, mapError(err, "failed to list foreign keys")
	}

	fks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (database.ForeignKey, error) {
		var fk database.ForeignKey
		err := row.Scan(&fk.ConstraintName, &fk.SourceSchema, &fk.SourceTable, &fk.SourceColumn,
			&fk.TargetSchema, &fk.TargetTable, &fk.TargetColumn)
		return fk, err
	})
	if err != nil {
		return nil, mapError(err, "failed to scan foreign keys")
	}
	return fks, nil
}

// fetchStrings is a helper for queries that return a single text column.
func (d *Driver) fetchStrings(ctx context.Context, q, errMsg string, args ...any) ([]string, error) {
	rows, err := d.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}

	list, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	return list, nil
}
