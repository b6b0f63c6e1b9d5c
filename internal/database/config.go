package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/koustreak/dbpilot/internal/errs"
)

// Driver identifies the database engine.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// SSLMode is the TLS policy used when connecting.
type SSLMode string

const (
	SSLDisable SSLMode = "disable"
	SSLPrefer  SSLMode = "prefer"
	SSLRequire SSLMode = "require"
)

// Config holds everything needed to connect to and pool a database.
//
// Password is accepted on input (JSON request bodies, environment) but is
// never serialised back out and never written to the YAML config file.
type Config struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Driver   Driver  `json:"driver" yaml:"driver"`
	Host     string  `json:"host" yaml:"host"`
	Port     int     `json:"port" yaml:"port"`
	Database string  `json:"database" yaml:"database"`
	Username string  `json:"username" yaml:"username"`
	Password string  `json:"password,omitempty" yaml:"-"`
	SSLMode  SSLMode `json:"ssl_mode" yaml:"ssl_mode"`

	// Pool tuning
	MaxConns       int32         `json:"max_conns,omitempty" yaml:"max_conns"`
	MinConns       int32         `json:"min_conns,omitempty" yaml:"min_conns"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout"`
}

// MarshalJSON drops the password.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	p := plain(c)
	p.Password = ""
	return json.Marshal(p)
}

// WithDefaults returns a copy with zero fields replaced by driver defaults.
func (c Config) WithDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.SSLMode == "" {
		c.SSLMode = SSLDisable
	}
	if c.Port == 0 {
		switch c.Driver {
		case DriverMySQL:
			c.Port = 3306
		default:
			c.Port = 5432
		}
	}
	if c.MaxConns == 0 {
		c.MaxConns = 5
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// Validate reports malformed connection settings as InvalidConfig.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, "":
	default:
		return errs.InvalidConfig("unsupported driver %q", c.Driver)
	}
	switch c.SSLMode {
	case SSLDisable, SSLPrefer, SSLRequire, "":
	default:
		return errs.InvalidConfig("unsupported ssl_mode %q", c.SSLMode)
	}
	if c.Host == "" {
		return errs.InvalidConfig("host is required")
	}
	if c.Database == "" {
		return errs.InvalidConfig("database is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.InvalidConfig("port %d out of range", c.Port)
	}
	if c.MinConns < 0 || c.MaxConns < 0 || (c.MaxConns > 0 && c.MinConns > c.MaxConns) {
		return errs.InvalidConfig("invalid pool size (min %d, max %d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// DisplayName is the label reported by the session status.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.Username, c.Host, c.WithDefaults().Port, c.Database)
}
