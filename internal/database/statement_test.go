package database

import (
	"testing"

	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountRows(t *testing.T) {
	st, err := CountRows(DialectPostgres, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "public"."users"`, st.SQL)
	assert.Empty(t, st.Args)
}

func TestSelectPage(t *testing.T) {
	st, err := SelectPage(DialectPostgres, "public", "users", 50, 100)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "public"."users" LIMIT 50 OFFSET 100`, st.SQL)
	assert.Empty(t, st.Args)

	st, err = SelectPage(DialectMySQL, "shop", "orders", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `shop`.`orders` LIMIT 10 OFFSET 0", st.SQL)
}

func TestInsertRow(t *testing.T) {
	st, err := InsertRow(DialectPostgres, "public", "users", map[string]Value{
		"name":   Text("ann"),
		"age":    Integer(30),
		"active": Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "public"."users" ("active", "age", "name") VALUES ($1, $2, $3)`,
		st.SQL)
	assert.Equal(t, []any{true, int64(30), "ann"}, st.Args)
}

func TestInsertRow_MySQL(t *testing.T) {
	st, err := InsertRow(DialectMySQL, "shop", "items", map[string]Value{
		"sku":  Text("A-1"),
		"note": Text("null"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `shop`.`items` (`note`, `sku`) VALUES (?, ?)", st.SQL)
	assert.Equal(t, []any{nil, "A-1"}, st.Args)
}

func TestInsertRow_Rejects(t *testing.T) {
	_, err := InsertRow(DialectPostgres, "public", "users", map[string]Value{})
	assert.True(t, errs.IsInvalidConfig(err))

	_, err = InsertRow(DialectPostgres, "public", "users", map[string]Value{"bad col": Integer(1)})
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestUpdateCell_BindOrder(t *testing.T) {
	pk := []string{"tenant", "id"}
	key := RowKey{"id": Integer(9), "tenant": Text("acme")}

	st, err := UpdateCell(DialectPostgres, "public", "orders", "status", Text("shipped"), pk, key)
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "public"."orders" SET "status" = $1 WHERE "tenant" = $2 AND "id" = $3`,
		st.SQL)
	assert.Equal(t, []any{"shipped", "acme", int64(9)}, st.Args)

	st, err = UpdateCell(DialectMySQL, "shop", "orders", "status", Null(), pk, key)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `shop`.`orders` SET `status` = ? WHERE `tenant` = ? AND `id` = ?", st.SQL)
	assert.Equal(t, []any{nil, "acme", int64(9)}, st.Args)
}

func TestUpdateCell_Rejects(t *testing.T) {
	key := RowKey{"id": Integer(1)}

	_, err := UpdateCell(DialectPostgres, "public", "users", "name", Text("x"), nil, key)
	assert.True(t, errs.IsInvalidConfig(err), "no primary key")

	_, err = UpdateCell(DialectPostgres, "public", "users", "name; --", Text("x"), []string{"id"}, key)
	assert.True(t, errs.IsInvalidConfig(err), "bad column")

	_, err = UpdateCell(DialectPostgres, `public"; DROP TABLE users; --`, "users", "name", Text("x"), []string{"id"}, key)
	assert.True(t, errs.IsInvalidConfig(err), "bad schema")
}

func TestDeleteRow(t *testing.T) {
	st, err := DeleteRow(DialectPostgres, "public", "users", []string{"id"}, RowKey{"id": Integer(3)})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "public"."users" WHERE "id" = $1`, st.SQL)
	assert.Equal(t, []any{int64(3)}, st.Args)

	_, err = DeleteRow(DialectPostgres, "public", "users", nil, RowKey{})
	assert.True(t, errs.IsInvalidConfig(err))
}
