package service

import (
	"context"
	"testing"

	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/database/dbtest"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/export"
	"github.com/koustreak/dbpilot/internal/filestore/local"
	"github.com/koustreak/dbpilot/internal/history"
	"github.com/koustreak/dbpilot/internal/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFake() *dbtest.Fake {
	return &dbtest.Fake{
		Schemas: []string{"public"},
		Tables:  map[string][]string{"public": {"users"}},
		Columns: map[string][]database.Column{
			"public.users": {
				{Name: "id", DataType: "integer", IsPrimaryKey: true},
				{Name: "email", DataType: "text", IsNullable: true},
			},
		},
		Results: map[string]*database.ResultSet{
			`SELECT COUNT(*) FROM "public"."users"`: {
				Rows: [][]database.Value{{database.Integer(1)}},
			},
			`SELECT * FROM "public"."users" LIMIT 100 OFFSET 0`: {
				Columns: []database.ResultColumn{{Name: "id"}, {Name: "email"}},
				Rows:    [][]database.Value{{database.Integer(7), database.Text("a@x.io")}},
			},
		},
	}
}

func connected(t *testing.T, db *dbtest.Fake, exporter *export.Exporter, opts ...Option) *Service {
	t.Helper()
	m := session.New(nil, session.WithOpener(func(context.Context, database.Config) (database.DB, error) {
		return db, nil
	}))
	_, err := m.Connect(context.Background(), database.Config{Host: "localhost", Database: "app", Username: "dev"})
	require.NoError(t, err)
	return New(m, exporter, nil, opts...)
}

func TestNotConnected(t *testing.T) {
	s := New(session.New(nil), nil, nil)
	ctx := context.Background()

	_, err := s.Schemas(ctx)
	assert.True(t, errs.IsNotConnected(err))
	_, err = s.Page(ctx, database.TableDataRequest{Schema: "public", Table: "users"})
	assert.True(t, errs.IsNotConnected(err))
	_, err = s.Execute(ctx, "SELECT 1")
	assert.True(t, errs.IsNotConnected(err))
}

func TestSchemaContext(t *testing.T) {
	s := connected(t, newFake(), nil)
	text, err := s.SchemaContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Table public.users:\n  id integer PRIMARY KEY NOT NULL\n  email text\n", text)
}

func TestTableDetail(t *testing.T) {
	s := connected(t, newFake(), nil)
	ctx := context.Background()

	detail, err := s.TableDetail(ctx, "public", "users")
	require.NoError(t, err)
	assert.Len(t, detail.Columns, 2)

	_, err = s.TableDetail(ctx, "public", "ghost")
	assert.True(t, errs.IsNotFound(err))

	_, err = s.TableDetail(ctx, "public", "users; --")
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestForeignKeys_ValidatesSchema(t *testing.T) {
	s := connected(t, newFake(), nil)
	fks, err := s.ForeignKeys(context.Background(), "public")
	require.NoError(t, err)
	assert.Empty(t, fks)

	_, err = s.ForeignKeys(context.Background(), "1bad")
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestWrites(t *testing.T) {
	db := newFake()
	s := connected(t, db, nil)
	ctx := context.Background()

	n, err := s.Insert(ctx, "public", "users", []database.RowInsert{{Values: map[string]database.Value{"email": database.Text("b@x.io")}}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	affected, err := s.Update(ctx, "public", "users", []database.RowUpdate{{RowID: `{"id":7}`, Column: "email", NewValue: database.Null()}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = s.Delete(ctx, "public", "users", []database.RowDelete{{RowID: `{"id":7}`}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, 1, db.ExecCount("INSERT"))
	assert.Equal(t, 1, db.ExecCount("UPDATE"))
	assert.Equal(t, 1, db.ExecCount("DELETE"))
}

func TestExport(t *testing.T) {
	store := local.NewWithFs(afero.NewMemMapFs())
	s := connected(t, newFake(), export.New(store, 0))
	ctx := context.Background()

	res, err := s.Export(ctx, database.TableDataRequest{Schema: "public", Table: "users"}, export.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, res.Object.Key, "exports/public.users-")

	objs, err := s.Exports(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, res.Object.Key, objs[0].Key)
}

func TestExport_NotConfigured(t *testing.T) {
	s := connected(t, newFake(), nil)
	_, err := s.Export(context.Background(), database.TableDataRequest{Schema: "public", Table: "users"}, export.FormatCSV)
	assert.True(t, errs.IsInvalidConfig(err))
	_, err = s.Exports(context.Background())
	assert.True(t, errs.IsInvalidConfig(err))
	_, _, err = s.OpenExport(context.Background(), "x.csv")
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestExecute_RecordsHistory(t *testing.T) {
	db := newFake()
	db.Results["SELECT 1"] = &database.ResultSet{
		Columns: []database.ResultColumn{{Name: "?column?"}},
		Rows:    [][]database.Value{{database.Integer(1)}},
	}
	h := history.New(afero.NewMemMapFs(), "/history.json", 0)
	s := connected(t, db, nil, WithHistory(h))
	ctx := context.Background()

	_, err := s.Execute(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "SELEC 1")
	assert.True(t, errs.IsDatabase(err))
	_, err = s.Execute(ctx, "   ")
	assert.True(t, errs.IsInvalidConfig(err))

	items, err := s.History()
	require.NoError(t, err)
	require.Len(t, items, 2, "refused statements are not recorded")

	assert.Equal(t, "SELEC 1", items[0].Query)
	require.NotNil(t, items[0].Error)
	assert.Nil(t, items[0].RowCount)

	assert.Equal(t, "SELECT 1", items[1].Query)
	require.NotNil(t, items[1].RowCount)
	assert.Equal(t, 1, *items[1].RowCount)
	assert.Nil(t, items[1].Error)
}

func TestHistory_NotConfigured(t *testing.T) {
	s := connected(t, newFake(), nil)
	items, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.True(t, errs.IsInvalidConfig(s.SaveHistory(nil)))
}

func TestSaveHistory(t *testing.T) {
	h := history.New(afero.NewMemMapFs(), "/history.json", 0)
	s := connected(t, newFake(), nil, WithHistory(h))

	require.NoError(t, s.SaveHistory([]history.Item{{ID: "1", Query: "SELECT 2"}}))
	items, err := s.History()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SELECT 2", items[0].Query)
}
