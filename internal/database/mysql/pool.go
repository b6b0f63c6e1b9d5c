package mysql

import (
	"database/sql"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbpilot/internal/database"
)

const (
	defaultMaxOpenConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// tlsModes maps the connection SSL mode onto the driver's tls parameter.
var tlsModes = map[database.SSLMode]string{
	database.SSLDisable: "false",
	database.SSLPrefer:  "preferred",
	database.SSLRequire: "skip-verify",
}

// buildPool configures and returns a *sql.DB with pool settings
func buildPool(cfg database.Config) (*sql.DB, error) {
	cfg = cfg.WithDefaults()

	connector, err := gomysql.NewConnector(buildConfig(cfg))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	maxOpen := int(cfg.MaxConns)
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := int(cfg.MinConns)
	if maxIdle == 0 {
		maxIdle = maxOpen
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
	return db, nil
}

// buildConfig constructs the driver config. Timestamps are parsed into
// time.Time in UTC.
func buildConfig(cfg database.Config) *gomysql.Config {
	c := gomysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Timeout = cfg.ConnectTimeout
	if mode, ok := tlsModes[cfg.SSLMode]; ok {
		c.TLSConfig = mode
	}
	return c
}
