// Package crud runs table browsing and row writes against a database.DB.
//
// Every identifier goes through the database statement constructors; only
// values travel as bind parameters.
package crud

import (
	"context"
	"strings"
	"time"

	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
)

// DefaultPageSize is used when a page request has no limit.
const DefaultPageSize = 100

// Page reads one page of a table: its columns and primary key, the total
// row count, and the decoded rows stamped with their row ids.
func Page(ctx context.Context, db database.DB, req database.TableDataRequest) (*database.TableData, error) {
	d := db.Dialect()
	if req.Limit == 0 {
		req.Limit = DefaultPageSize
	}

	count, err := database.CountRows(d, req.Schema, req.Table)
	if err != nil {
		return nil, err
	}
	page, err := database.SelectPage(d, req.Schema, req.Table, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	cols, err := db.ListColumns(ctx, req.Schema, req.Table)
	if err != nil {
		return nil, err
	}
	pk := database.PrimaryKey(cols)

	total, err := scalarCount(ctx, db, count)
	if err != nil {
		return nil, err
	}

	rs, err := db.Query(ctx, page.SQL, page.Args...)
	if err != nil {
		return nil, err
	}

	names := rs.ColumnNames()
	rows := make([]database.Row, len(rs.Rows))
	for i, vals := range rs.Rows {
		rows[i] = database.Row{
			ID:     database.EncodeRowID(names, vals, pk),
			Values: vals,
		}
	}

	return &database.TableData{
		Columns:       cols,
		Rows:          rows,
		TotalCount:    total,
		PrimaryKeys:   pk,
		HasPrimaryKey: len(pk) > 0,
	}, nil
}

// Count returns the number of rows in a table.
func Count(ctx context.Context, db database.DB, schema, table string) (int64, error) {
	st, err := database.CountRows(db.Dialect(), schema, table)
	if err != nil {
		return 0, err
	}
	return scalarCount(ctx, db, st)
}

func scalarCount(ctx context.Context, db database.DB, st database.Statement) (int64, error) {
	rs, err := db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, err
	}
	if len(rs.Rows) == 0 || len(rs.Rows[0]) == 0 {
		return 0, nil
	}
	v := rs.Rows[0][0]
	if n, ok := v.AsInteger(); ok {
		return n, nil
	}
	if f, ok := v.AsFloat(); ok {
		return int64(f), nil
	}
	return 0, errs.Newf(errs.ErrKindDatabase, "unexpected count value %s", v)
}

// Insert writes each row with its own INSERT. Rows with no values are
// skipped and count as zero.
func Insert(ctx context.Context, db database.DB, schema, table string, rows []database.RowInsert) (int, error) {
	if _, err := database.SafeTableRef(db.Dialect(), schema, table); err != nil {
		return 0, err
	}

	inserted := 0
	for _, r := range rows {
		if len(r.Values) == 0 {
			continue
		}
		st, err := database.InsertRow(db.Dialect(), schema, table, r.Values)
		if err != nil {
			return inserted, err
		}
		n, err := db.Exec(ctx, st.SQL, st.Args...)
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

// Update applies single-column edits addressed by row id and returns the
// summed affected-row count. An id that no longer matches a row, or that
// does not carry the full primary key, contributes zero.
func Update(ctx context.Context, db database.DB, schema, table string, updates []database.RowUpdate) (int64, error) {
	pk, err := writablePrimaryKey(ctx, db, schema, table)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, u := range updates {
		key := database.DecodeRowID(u.RowID)
		if !key.Covers(pk) {
			continue
		}
		st, err := database.UpdateCell(db.Dialect(), schema, table, u.Column, u.NewValue, pk, key)
		if err != nil {
			return total, err
		}
		n, err := db.Exec(ctx, st.SQL, st.Args...)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Delete removes rows addressed by row id and returns the summed
// affected-row count.
func Delete(ctx context.Context, db database.DB, schema, table string, deletes []database.RowDelete) (int64, error) {
	pk, err := writablePrimaryKey(ctx, db, schema, table)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, del := range deletes {
		key := database.DecodeRowID(del.RowID)
		if !key.Covers(pk) {
			continue
		}
		st, err := database.DeleteRow(db.Dialect(), schema, table, pk, key)
		if err != nil {
			return total, err
		}
		n, err := db.Exec(ctx, st.SQL, st.Args...)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// writablePrimaryKey rejects tables without a primary key.
func writablePrimaryKey(ctx context.Context, db database.DB, schema, table string) ([]string, error) {
	if _, err := database.SafeTableRef(db.Dialect(), schema, table); err != nil {
		return nil, err
	}
	cols, err := db.ListColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	pk := database.PrimaryKey(cols)
	if len(pk) == 0 {
		return nil, errs.InvalidConfig("table %s.%s has no primary key; editing is disabled", schema, table)
	}
	return pk, nil
}

// Execute runs arbitrary SQL typed by the user and decodes the result.
func Execute(ctx context.Context, db database.DB, sql string) (*database.QueryResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, errs.InvalidConfig("query is empty")
	}

	start := time.Now()
	rs, err := db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &database.QueryResult{
		Columns:         rs.Columns,
		Rows:            rs.Rows,
		RowCount:        len(rs.Rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
