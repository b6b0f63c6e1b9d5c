// Package dbtest provides an in-memory database.DB for tests of the layers
// above the drivers.
package dbtest

import (
	"context"
	"strings"
	"sync"

	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
)

// Call records one statement sent to the fake.
type Call struct {
	SQL  string
	Args []any
}

// Fake serves canned catalog metadata and results and records every
// statement it receives. The zero value is an empty Postgres-dialect
// database.
type Fake struct {
	mu sync.Mutex

	D       database.Dialect
	Schemas []string
	Tables  map[string][]string          // schema → tables
	Columns map[string][]database.Column // "schema.table" → columns

	// Results maps an exact SQL string to the result Query returns.
	Results map[string]*database.ResultSet

	// Affected decides the Exec row count; nil means 1.
	Affected func(sql string, args []any) int64

	PingErr  error
	QueryErr error
	ExecErr  error

	Queries []Call
	Execs   []Call
	Pings   int
	Closed  bool
}

var _ database.DB = (*Fake)(nil)

func (f *Fake) Dialect() database.Dialect { return f.D }

func (f *Fake) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pings++
	return f.PingErr
}

func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

func (f *Fake) Query(_ context.Context, sql string, args ...any) (*database.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, Call{SQL: sql, Args: args})
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	if rs, ok := f.Results[sql]; ok {
		return rs, nil
	}
	return nil, errs.Newf(errs.ErrKindDatabase, "no canned result for %q", sql)
}

func (f *Fake) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Execs = append(f.Execs, Call{SQL: sql, Args: args})
	if f.ExecErr != nil {
		return 0, f.ExecErr
	}
	if f.Affected != nil {
		return f.Affected(sql, args), nil
	}
	return 1, nil
}

func (f *Fake) ListSchemas(context.Context) ([]string, error) {
	return f.Schemas, nil
}

func (f *Fake) ListTables(_ context.Context, schema string) ([]string, error) {
	return f.Tables[schema], nil
}

func (f *Fake) ListColumns(_ context.Context, schema, table string) ([]database.Column, error) {
	cols, ok := f.Columns[schema+"."+table]
	if !ok {
		return []database.Column{}, nil
	}
	return cols, nil
}

func (f *Fake) ListIndexes(context.Context, string, string) ([]database.IndexInfo, error) {
	return []database.IndexInfo{}, nil
}

func (f *Fake) ListConstraints(context.Context, string, string) ([]database.ConstraintInfo, error) {
	return []database.ConstraintInfo{}, nil
}

func (f *Fake) ListForeignKeys(context.Context, string, string) ([]database.ForeignKey, error) {
	return []database.ForeignKey{}, nil
}

// ExecCount returns how many Exec calls contained substr.
func (f *Fake) ExecCount(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Execs {
		if strings.Contains(c.SQL, substr) {
			n++
		}
	}
	return n
}
