// Package postgres implements database.DB for PostgreSQL using pgxpool.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
)

// Driver is a PostgreSQL implementation of database.DB.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
}

var _ database.DB = (*Driver)(nil)

// Open builds the pool described by cfg and verifies it with a liveness
// statement before returning.
func Open(ctx context.Context, cfg database.Config) (*Driver, error) {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "invalid postgres config", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "failed to create connection pool")
	}

	d := &Driver{pool: pool}
	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// Dialect reports Postgres quoting and $n placeholders.
func (d *Driver) Dialect() database.Dialect {
	return database.DialectPostgres
}

// Ping runs SELECT 1.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, "SELECT 1"); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool.
func (d *Driver) Close() {
	d.pool.Close()
}

// Query executes a statement and decodes every returned value.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (*database.ResultSet, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	return decodeRows(rows)
}

// Exec executes a statement returning the number of rows affected.
func (d *Driver) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err, "statement failed")
	}
	return tag.RowsAffected(), nil
}
