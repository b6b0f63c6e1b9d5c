package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog serves canned metadata and can fail on a chosen table.
type fakeCatalog struct {
	schemas []string
	tables  map[string][]string
	columns map[string][]Column
	failOn  string
	calls   []string
}

func (f *fakeCatalog) ListSchemas(context.Context) ([]string, error) {
	return f.schemas, nil
}

func (f *fakeCatalog) ListTables(_ context.Context, schema string) ([]string, error) {
	return f.tables[schema], nil
}

func (f *fakeCatalog) ListColumns(_ context.Context, schema, table string) ([]Column, error) {
	f.calls = append(f.calls, schema+"."+table)
	if table == f.failOn {
		return nil, errors.New("boom")
	}
	return f.columns[schema+"."+table], nil
}

func (f *fakeCatalog) ListIndexes(_ context.Context, _, table string) ([]IndexInfo, error) {
	if table == f.failOn+"_idx" {
		return nil, errors.New("index boom")
	}
	return []IndexInfo{{Name: table + "_pkey", Columns: []string{"id"}, IsUnique: true, IsPrimary: true}}, nil
}

func (f *fakeCatalog) ListConstraints(_ context.Context, _, table string) ([]ConstraintInfo, error) {
	return []ConstraintInfo{{Name: table + "_pkey", Type: "PRIMARY KEY", Columns: []string{"id"}}}, nil
}

func (f *fakeCatalog) ListForeignKeys(context.Context, string, string) ([]ForeignKey, error) {
	return []ForeignKey{}, nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		schemas: []string{"app", "public"},
		tables: map[string][]string{
			"app":    {"accounts"},
			"public": {"users", "orders"},
		},
		columns: map[string][]Column{
			"app.accounts": {{Name: "id", DataType: "INT8", IsPrimaryKey: true}},
			"public.users": {
				{Name: "id", DataType: "INT4", IsPrimaryKey: true},
				{Name: "email", DataType: "TEXT", IsNullable: true},
			},
			"public.orders": {{Name: "total", DataType: "NUMERIC"}},
		},
	}
}

func TestInspectGraph(t *testing.T) {
	c := newFakeCatalog()

	graph, err := InspectGraph(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, graph, 2)

	assert.Equal(t, "app", graph[0].Name)
	assert.Equal(t, "public", graph[1].Name)
	require.Len(t, graph[1].Tables, 2)
	assert.Equal(t, "users", graph[1].Tables[0].Name)
	assert.Equal(t, "public", graph[1].Tables[0].Schema)
	assert.Equal(t, []string{"id"}, PrimaryKey(graph[1].Tables[0].Columns))
}

func TestInspectGraph_StopsAtFirstFailure(t *testing.T) {
	c := newFakeCatalog()
	c.failOn = "users"

	graph, err := InspectGraph(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, graph)
	assert.Equal(t, []string{"app.accounts", "public.users"}, c.calls, "orders never read")
}

func TestInspectTable(t *testing.T) {
	detail, err := InspectTable(context.Background(), newFakeCatalog(), "public", "users")
	require.NoError(t, err)
	assert.Equal(t, "users", detail.Name)
	assert.Len(t, detail.Columns, 2)
	assert.Len(t, detail.Indexes, 1)
	assert.Len(t, detail.Constraints, 1)
	assert.NotNil(t, detail.ForeignKeys)
}

func TestInspectTable_PartialFailure(t *testing.T) {
	c := newFakeCatalog()
	c.failOn = "users"

	_, err := InspectTable(context.Background(), c, "public", "users_idx")
	require.Error(t, err)
}

func TestRenderSchemaContext(t *testing.T) {
	graph := SchemaGraph{
		{Name: "public", Tables: []Table{
			{Schema: "public", Name: "users", Columns: []Column{
				{Name: "id", DataType: "INT4", IsPrimaryKey: true},
				{Name: "email", DataType: "TEXT", IsNullable: true},
			}},
			{Schema: "public", Name: "tags", Columns: []Column{
				{Name: "label", DataType: "VARCHAR", IsNullable: false},
			}},
		}},
	}

	want := "Table public.users:\n" +
		"  id INT4 PRIMARY KEY NOT NULL\n" +
		"  email TEXT\n" +
		"\n" +
		"Table public.tags:\n" +
		"  label VARCHAR NOT NULL\n"
	assert.Equal(t, want, RenderSchemaContext(graph))
	assert.Empty(t, RenderSchemaContext(nil))
}

func TestPrimaryKey_Empty(t *testing.T) {
	assert.Empty(t, PrimaryKey([]Column{{Name: "a"}}))
}
