package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfig(t *testing.T) {
	c := buildConfig(database.Config{
		Driver:         database.DriverMySQL,
		Host:           "db.local",
		Port:           3307,
		Database:       "shop",
		Username:       "root",
		Password:       "p@ss:word/x",
		SSLMode:        database.SSLRequire,
		ConnectTimeout: 3 * time.Second,
	})

	assert.Equal(t, "root", c.User)
	assert.Equal(t, "p@ss:word/x", c.Passwd)
	assert.Equal(t, "tcp", c.Net)
	assert.Equal(t, "db.local:3307", c.Addr)
	assert.Equal(t, "shop", c.DBName)
	assert.True(t, c.ParseTime)
	assert.Equal(t, time.UTC, c.Loc)
	assert.Equal(t, 3*time.Second, c.Timeout)
	assert.Equal(t, "skip-verify", c.TLSConfig)

	parsed, err := gomysql.ParseDSN(c.FormatDSN())
	require.NoError(t, err)
	assert.Equal(t, "p@ss:word/x", parsed.Passwd, "password survives DSN round trip")
}

func TestBuildConfig_SSLModes(t *testing.T) {
	for mode, want := range map[database.SSLMode]string{
		database.SSLDisable: "false",
		database.SSLPrefer:  "preferred",
		database.SSLRequire: "skip-verify",
	} {
		c := buildConfig(database.Config{Host: "h", Port: 3306, SSLMode: mode})
		assert.Equal(t, want, c.TLSConfig, string(mode))
	}
}

func TestBuildPool(t *testing.T) {
	db, err := buildPool(database.Config{Driver: database.DriverMySQL, Host: "localhost", Database: "shop"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 5, db.Stats().MaxOpenConnections)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
		msg  string
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout, ""},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound, ""},
		{"bad conn", driver.ErrBadConn, errs.ErrKindDatabase, "connection lost"},
		{"duplicate", &gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, errs.ErrKindDatabase, "conflict: Duplicate entry"},
		{"fk", &gomysql.MySQLError{Number: 1452, Message: "Cannot add"}, errs.ErrKindDatabase, "foreign key violation"},
		{"denied", &gomysql.MySQLError{Number: 1045, Message: "Access denied"}, errs.ErrKindDatabase, "connection error"},
		{"no table", &gomysql.MySQLError{Number: 1146, Message: "doesn't exist"}, errs.ErrKindDatabase, "invalid query"},
		{"query timeout", &gomysql.MySQLError{Number: 3024, Message: "max_execution_time"}, errs.ErrKindTimeout, ""},
		{"other", errors.New("io"), errs.ErrKindDatabase, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "op")
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}

	assert.NoError(t, mapError(nil, "noop"))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "BIGINT", typeName("UNSIGNED BIGINT"))
	assert.Equal(t, "VARCHAR", typeName("varchar"))
	assert.Equal(t, "JSON", typeName("JSON"))
	assert.Equal(t, unknownType, typeName(""))
}

func TestAutoGenerated(t *testing.T) {
	tests := []struct {
		extra string
		want  bool
	}{
		{"", false},
		{"auto_increment", true},
		{"VIRTUAL GENERATED", true},
		{"STORED GENERATED", true},
		{"DEFAULT_GENERATED", false},
		{"DEFAULT_GENERATED on update CURRENT_TIMESTAMP", false},
		{"on update CURRENT_TIMESTAMP", false},
	}
	for _, tt := range tests {
		t.Run(tt.extra, func(t *testing.T) {
			assert.Equal(t, tt.want, autoGenerated(tt.extra))
		})
	}
}

func TestFoldIndexes(t *testing.T) {
	got := foldIndexes([]indexRow{
		{name: "PRIMARY", column: "id", unique: true, primary: true},
		{name: "idx_name", column: "last", unique: false},
		{name: "idx_name", column: "first", unique: false},
		{name: "uq_email", column: "email", unique: true},
	})
	assert.Equal(t, []database.IndexInfo{
		{Name: "PRIMARY", Columns: []string{"id"}, IsUnique: true, IsPrimary: true},
		{Name: "idx_name", Columns: []string{"last", "first"}},
		{Name: "uq_email", Columns: []string{"email"}, IsUnique: true},
	}, got)

	assert.Equal(t, []database.IndexInfo{}, foldIndexes(nil))
}

func TestFoldConstraints(t *testing.T) {
	check := "(`qty` > 0)"
	col := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

	got := foldConstraints([]constraintRow{
		{name: "chk_qty", kind: "CHECK", check: &check},
		{name: "fk_user", kind: "FOREIGN KEY", column: col("user_id")},
		{name: "PRIMARY", kind: "PRIMARY KEY", column: col("order_id")},
		{name: "PRIMARY", kind: "PRIMARY KEY", column: col("line")},
		{name: "uq_ref", kind: "UNIQUE", column: col("ref")},
	})
	assert.Equal(t, []database.ConstraintInfo{
		{Name: "chk_qty", Type: "CHECK", Columns: []string{}, Definition: &check},
		{Name: "fk_user", Type: "FOREIGN KEY", Columns: []string{"user_id"}},
		{Name: "PRIMARY", Type: "PRIMARY KEY", Columns: []string{"order_id", "line"}},
		{Name: "uq_ref", Type: "UNIQUE", Columns: []string{"ref"}},
	}, got)
}
