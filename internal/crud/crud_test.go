package crud

import (
	"context"
	"testing"

	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/database/dbtest"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	countUsersSQL = `SELECT COUNT(*) FROM "public"."users"`
	pageUsersSQL  = `SELECT * FROM "public"."users" LIMIT 2 OFFSET 0`
)

func newFake() *dbtest.Fake {
	return &dbtest.Fake{
		Columns: map[string][]database.Column{
			"public.users": {
				{Name: "id", DataType: "integer", IsPrimaryKey: true, IsAutoGenerated: true},
				{Name: "email", DataType: "text", IsNullable: true},
			},
			"public.audit": {
				{Name: "message", DataType: "text"},
			},
		},
		Results: map[string]*database.ResultSet{
			countUsersSQL: {
				Columns: []database.ResultColumn{{Name: "count", DataType: "INT8"}},
				Rows:    [][]database.Value{{database.Integer(3)}},
			},
			pageUsersSQL: {
				Columns: []database.ResultColumn{{Name: "id", DataType: "INT4"}, {Name: "email", DataType: "TEXT"}},
				Rows: [][]database.Value{
					{database.Integer(1), database.Text("a@x.io")},
					{database.Integer(2), database.Null()},
				},
			},
		},
	}
}

func TestPage(t *testing.T) {
	db := newFake()
	data, err := Page(context.Background(), db, database.TableDataRequest{
		Schema: "public", Table: "users", Limit: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), data.TotalCount)
	assert.True(t, data.HasPrimaryKey)
	assert.Equal(t, []string{"id"}, data.PrimaryKeys)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, database.RowID(`{"id":1}`), data.Rows[0].ID)
	assert.Equal(t, database.RowID(`{"id":2}`), data.Rows[1].ID)
	assert.True(t, data.Rows[1].Values[1].IsNull())

	export := data.Export()
	assert.Equal(t, []string{"id", "email"}, export.Columns)
	assert.Len(t, export.Rows, 2)
}

func TestPage_NoPrimaryKey(t *testing.T) {
	db := newFake()
	db.Results[`SELECT COUNT(*) FROM "public"."audit"`] = &database.ResultSet{Rows: [][]database.Value{{database.Integer(1)}}}
	db.Results[`SELECT * FROM "public"."audit" LIMIT 100 OFFSET 0`] = &database.ResultSet{
		Columns: []database.ResultColumn{{Name: "message", DataType: "TEXT"}},
		Rows:    [][]database.Value{{database.Text("hello")}},
	}

	data, err := Page(context.Background(), db, database.TableDataRequest{Schema: "public", Table: "audit"})
	require.NoError(t, err)
	assert.False(t, data.HasPrimaryKey)
	assert.Empty(t, data.PrimaryKeys)
	assert.Equal(t, database.RowID(""), data.Rows[0].ID)
}

func TestPage_InjectionRejectedBeforeSQL(t *testing.T) {
	db := newFake()
	_, err := Page(context.Background(), db, database.TableDataRequest{
		Schema: `public"; DROP TABLE users; --`, Table: "users",
	})
	assert.True(t, errs.IsInvalidConfig(err))
	assert.Empty(t, db.Queries)
	assert.Empty(t, db.Execs)
}

func TestCount(t *testing.T) {
	n, err := Count(context.Background(), newFake(), "public", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestInsert(t *testing.T) {
	db := newFake()
	n, err := Insert(context.Background(), db, "public", "users", []database.RowInsert{
		{Values: map[string]database.Value{"email": database.Text("b@x.io")}},
		{Values: map[string]database.Value{}},
		{Values: map[string]database.Value{"email": database.Text("'null'")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, db.Execs, 2)
	assert.Equal(t, `INSERT INTO "public"."users" ("email") VALUES ($1)`, db.Execs[0].SQL)
	assert.Equal(t, []any{"null"}, db.Execs[1].Args)
}

func TestInsert_EmptyMapExecutesNothing(t *testing.T) {
	db := newFake()
	n, err := Insert(context.Background(), db, "public", "users", []database.RowInsert{{Values: map[string]database.Value{}}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, db.Execs)
}

func TestUpdate(t *testing.T) {
	db := newFake()
	n, err := Update(context.Background(), db, "public", "users", []database.RowUpdate{
		{RowID: `{"id":1}`, Column: "email", NewValue: database.Text("new@x.io")},
		{RowID: `{"id":2}`, Column: "email", NewValue: database.Null()},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, `UPDATE "public"."users" SET "email" = $1 WHERE "id" = $2`, db.Execs[0].SQL)
	assert.Equal(t, []any{"new@x.io", int64(1)}, db.Execs[0].Args)
	assert.Equal(t, []any{nil, int64(2)}, db.Execs[1].Args)
}

func TestUpdate_StaleRowIDIsZero(t *testing.T) {
	db := newFake()
	db.Affected = func(string, []any) int64 { return 0 }

	n, err := Update(context.Background(), db, "public", "users", []database.RowUpdate{
		{RowID: `{"id":999}`, Column: "email", NewValue: database.Text("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpdate_MalformedAndPartialIDsSkipped(t *testing.T) {
	db := newFake()
	n, err := Update(context.Background(), db, "public", "users", []database.RowUpdate{
		{RowID: "", Column: "email", NewValue: database.Text("x")},
		{RowID: "garbage", Column: "email", NewValue: database.Text("x")},
		{RowID: `{"other":1}`, Column: "email", NewValue: database.Text("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Empty(t, db.Execs)
}

func TestUpdate_NoPrimaryKey(t *testing.T) {
	db := newFake()
	_, err := Update(context.Background(), db, "public", "audit", []database.RowUpdate{
		{RowID: `{"message":"x"}`, Column: "message", NewValue: database.Text("y")},
	})
	assert.True(t, errs.IsInvalidConfig(err))
	assert.Empty(t, db.Execs)
}

func TestUpdate_BadColumn(t *testing.T) {
	db := newFake()
	_, err := Update(context.Background(), db, "public", "users", []database.RowUpdate{
		{RowID: `{"id":1}`, Column: "email = 'x' --", NewValue: database.Text("y")},
	})
	assert.True(t, errs.IsInvalidConfig(err))
	assert.Empty(t, db.Execs)
}

func TestDelete(t *testing.T) {
	db := newFake()
	n, err := Delete(context.Background(), db, "public", "users", []database.RowDelete{
		{RowID: `{"id":1}`},
		{RowID: `{"id":2}`},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, `DELETE FROM "public"."users" WHERE "id" = $1`, db.Execs[1].SQL)
	assert.Equal(t, []any{int64(2)}, db.Execs[1].Args)
}

func TestDelete_NoPrimaryKey(t *testing.T) {
	_, err := Delete(context.Background(), newFake(), "public", "audit", []database.RowDelete{{RowID: "{}"}})
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestExecute(t *testing.T) {
	db := newFake()
	db.Results["SELECT 1 AS one"] = &database.ResultSet{
		Columns: []database.ResultColumn{{Name: "one", DataType: "INT4"}},
		Rows:    [][]database.Value{{database.Integer(1)}},
	}

	res, err := Execute(context.Background(), db, "SELECT 1 AS one")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, "one", res.Columns[0].Name)
	assert.GreaterOrEqual(t, res.ExecutionTimeMs, int64(0))

	_, err = Execute(context.Background(), db, "   ")
	assert.True(t, errs.IsInvalidConfig(err))

	_, err = Execute(context.Background(), db, "SELECT nope")
	assert.True(t, errs.IsDatabase(err))
}
