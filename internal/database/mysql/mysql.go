// Package mysql implements database.DB for MySQL using database/sql and
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
)

// Driver is a MySQL implementation of database.DB.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

var _ database.DB = (*Driver)(nil)

// Open builds the pool described by cfg and verifies it with a liveness
// statement before returning.
func Open(ctx context.Context, cfg database.Config) (*Driver, error) {
	db, err := buildPool(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "invalid mysql config", err)
	}

	d := &Driver{db: db}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Dialect reports backtick quoting and ? placeholders.
func (d *Driver) Dialect() database.Dialect {
	return database.DialectMySQL
}

// Ping runs SELECT 1.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "SELECT 1"); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close shuts down the connection pool.
func (d *Driver) Close() {
	_ = d.db.Close()
}

// Query executes a statement and decodes every returned value.
func (d *Driver) Query(ctx context.Context, query string, args ...any) (*database.ResultSet, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	return decodeRows(rows)
}

// Exec executes a statement returning rows affected.
func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "statement failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err, "rows affected unavailable")
	}
	return n, nil
}
