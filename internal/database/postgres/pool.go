package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/dbpilot/internal/database"
)

const (
	defaultMaxConns    = 5
	defaultConnTimeout = 10 * time.Second
	maxConnIdleTime    = 5 * time.Minute
)

// buildPoolConfig turns a connection config into a pgxpool config.
func buildPoolConfig(cfg database.Config) (*pgxpool.Config, error) {
	cfg = cfg.WithDefaults()

	poolCfg, err := pgxpool.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = withDefault(cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnIdleTime = maxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if poolCfg.ConnConfig.ConnectTimeout == 0 {
		poolCfg.ConnConfig.ConnectTimeout = defaultConnTimeout
	}
	return poolCfg, nil
}

// buildDSN constructs the keyword/value connection string. Every value is
// quoted so passwords with spaces or quotes survive.
func buildDSN(cfg database.Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = database.SSLDisable
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(cfg.Host), port, quote(cfg.Username), quote(cfg.Password), quote(cfg.Database), sslMode,
	)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}
