// Package config loads dbpilot's YAML settings file and the .env files
// that carry credentials.
//
// Passwords and storage secrets are never read from or written to YAML.
// They come from the environment:
//
//	DBPILOT_PASSWORD_<PROFILE ID>   per-profile database password
//	DBPILOT_PASSWORD                fallback database password
//	DBPILOT_EXPORT_SECRET_KEY       object storage secret key
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/filestore"
	"github.com/koustreak/dbpilot/internal/history"
	"github.com/koustreak/dbpilot/internal/logger"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

const (
	// DefaultPath is the settings file used when --config is not given.
	DefaultPath = "~/.config/dbpilot/config.yaml"

	defaultExportDir   = "~/.config/dbpilot/exports"
	defaultHistoryPath = "~/.config/dbpilot/query_history.json"

	envPassword        = "DBPILOT_PASSWORD"
	envExportSecretKey = "DBPILOT_EXPORT_SECRET_KEY"
)

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RateLimit is the sustained request rate per second; 0 disables
	// limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HistoryConfig locates the raw SQL query history file.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	MaxItems int    `yaml:"max_items"`
}

// Config is the whole settings file.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         logger.Config     `yaml:"log"`
	Export      filestore.Config  `yaml:"export"`
	History     HistoryConfig     `yaml:"history"`
	Connections []database.Config `yaml:"connections"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8484",
			RateLimit:       20,
			Burst:           40,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:     *logger.DefaultConfig(),
		Export:  *filestore.DefaultConfig(defaultExportDir),
		History: HistoryConfig{
			Path:     defaultHistoryPath,
			MaxItems: history.DefaultMaxItems,
		},
	}
}

// Load reads path from fs on top of Default. An empty path means
// DefaultPath; a missing file yields the defaults. Secrets are then filled
// from the environment.
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errs.InvalidConfig("cannot resolve config path %q: %v", path, err)
	}

	cfg := Default()
	raw, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errs.InvalidConfig("cannot read config %s: %v", path, err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errs.InvalidConfig("cannot parse config %s: %v", path, err)
		}
	}

	if cfg.Export.Dir != "" {
		if cfg.Export.Dir, err = homedir.Expand(cfg.Export.Dir); err != nil {
			return nil, errs.InvalidConfig("cannot resolve export dir: %v", err)
		}
	}
	if cfg.History.Path != "" {
		if cfg.History.Path, err = homedir.Expand(cfg.History.Path); err != nil {
			return nil, errs.InvalidConfig("cannot resolve history path: %v", err)
		}
	}
	if cfg.Export.SecretKey == "" {
		cfg.Export.SecretKey = os.Getenv(envExportSecretKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory. Secrets are
// omitted by their yaml tags.
func Save(fs afero.Fs, path string, cfg *Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return errs.InvalidConfig("cannot resolve config path %q: %v", path, err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "encoding config", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "creating config dir", err)
	}
	if err := afero.WriteFile(fs, path, out, 0o600); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "writing config", err)
	}
	return nil
}

// Validate checks the server and export sections and that profile ids are
// unique.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errs.InvalidConfig("server.addr is required")
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return errs.InvalidConfig("server rate limit and burst must not be negative")
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if c.History.MaxItems < 0 {
		return errs.InvalidConfig("history.max_items must not be negative")
	}

	seen := make(map[string]bool, len(c.Connections))
	for _, p := range c.Connections {
		if p.ID == "" {
			return errs.InvalidConfig("every connection profile needs an id")
		}
		if seen[p.ID] {
			return errs.InvalidConfig("duplicate connection profile %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Profile returns the connection profile with the given id, its password
// taken from the environment.
func (c *Config) Profile(id string) (database.Config, error) {
	for _, p := range c.Connections {
		if p.ID == id {
			p.Password = Password(id)
			return p, nil
		}
	}
	return database.Config{}, errs.Newf(errs.ErrKindNotFound, "connection profile %q not found", id)
}

// Password looks up DBPILOT_PASSWORD_<ID>, then DBPILOT_PASSWORD.
func Password(id string) string {
	if v, ok := os.LookupEnv(passwordVar(id)); ok {
		return v
	}
	return os.Getenv(envPassword)
}

func passwordVar(id string) string {
	var b strings.Builder
	b.WriteString(envPassword)
	b.WriteByte('_')
	for _, r := range strings.ToUpper(id) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// LoadEnv reads .env and then .env.local from dir. Variables already in
// the process environment win over .env; .env.local overrides both.
// Missing files are skipped.
func LoadEnv(fs afero.Fs, dir string) error {
	if err := applyEnvFile(fs, filepath.Join(dir, ".env"), false); err != nil {
		return err
	}
	return applyEnvFile(fs, filepath.Join(dir, ".env.local"), true)
}

func applyEnvFile(fs afero.Fs, name string, override bool) error {
	raw, err := afero.ReadFile(fs, name)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.InvalidConfig("cannot read %s: %v", name, err)
	}

	vars, err := godotenv.Parse(bytes.NewReader(raw))
	if err != nil {
		return errs.InvalidConfig("cannot parse %s: %v", name, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "setting "+k, err)
		}
	}
	return nil
}
