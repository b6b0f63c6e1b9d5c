// Package database holds the driver-neutral core of dbpilot: the connection
// config, catalog and row types, the dynamic value union and its codec, the
// identifier validator, row identities and the statement constructors.
//
// Drivers (postgres, mysql) implement DB; everything above this package
// talks only to these interfaces.
package database

import "context"

// DB is the central contract for a live, pooled connection.
// All layers above this package talk only to this interface;
// they never import the postgres or mysql packages directly.
type DB interface {
	Catalog

	// Dialect selects identifier quoting and placeholder style.
	Dialect() Dialect

	// Ping issues a trivial liveness statement.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a statement that returns rows and decodes every value
	// through the codec. Per-value decode failures become Null.
	Query(ctx context.Context, sql string, args ...any) (*ResultSet, error)

	// Exec executes a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Catalog reads the structure of a database. Each driver implements the
// engine-specific queries; InspectGraph and InspectTable are shared.
type Catalog interface {
	ListSchemas(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]string, error)
	ListColumns(ctx context.Context, schema, table string) ([]Column, error)
	ListIndexes(ctx context.Context, schema, table string) ([]IndexInfo, error)
	ListConstraints(ctx context.Context, schema, table string) ([]ConstraintInfo, error)

	// ListForeignKeys lists relationships of one table, or of the whole
	// schema when table is empty.
	ListForeignKeys(ctx context.Context, schema, table string) ([]ForeignKey, error)
}

// ResultColumn names a result column and the server's type tag for it.
type ResultColumn struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// ResultSet is a fully decoded result.
type ResultSet struct {
	Columns []ResultColumn
	Rows    [][]Value
}

// ColumnNames returns the result column names in order.
func (r *ResultSet) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}
