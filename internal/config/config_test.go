package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/filestore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: 0.0.0.0:9000
  rate_limit: 5
  burst: 10
log:
  level: debug
  format: console
export:
  provider: minio
  endpoint: localhost:9000
  bucket: exports
  access_key: minio
  presign_ttl: 30m
history:
  path: /var/lib/dbpilot/history.json
  max_items: 50
connections:
  - id: prod
    name: Production
    driver: postgres
    host: db.internal
    database: app
    username: reader
    connect_timeout: 5s
  - id: shop-mysql
    driver: mysql
    host: localhost
    database: shop
    username: root
`

func writeFile(t *testing.T, fs afero.Fs, name, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o600))
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "/etc/dbpilot/none.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, filestore.ProviderLocal, cfg.Export.Provider)
	assert.NotEmpty(t, cfg.Export.Dir)
	assert.Empty(t, cfg.Connections)
	assert.Equal(t, 200, cfg.History.MaxItems)
	assert.True(t, strings.HasSuffix(cfg.History.Path, "query_history.json"))
	assert.NotContains(t, cfg.History.Path, "~")
}

func TestLoad_File(t *testing.T) {
	t.Setenv(envExportSecretKey, "s3cr3t")
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/cfg/config.yaml", sampleYAML)

	cfg, err := Load(fs, "/cfg/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, 10, cfg.Server.Burst)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout, "unset keys keep defaults")

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.Equal(t, filestore.ProviderMinIO, cfg.Export.Provider)
	assert.Equal(t, 30*time.Minute, cfg.Export.PresignTTL)
	assert.Equal(t, "s3cr3t", cfg.Export.SecretKey)

	assert.Equal(t, HistoryConfig{Path: "/var/lib/dbpilot/history.json", MaxItems: 50}, cfg.History)

	require.Len(t, cfg.Connections, 2)
	assert.Equal(t, database.DriverMySQL, cfg.Connections[1].Driver)
	assert.Equal(t, 5*time.Second, cfg.Connections[0].ConnectTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: [unterminated"},
		{"missing profile id", "connections:\n  - host: x\n"},
		{"duplicate profile", "connections:\n  - id: a\n  - id: a\n"},
		{"bad provider", "export:\n  provider: ftp\n"},
		{"negative burst", "server:\n  burst: -1\n"},
		{"negative history limit", "history:\n  max_items: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/c.yaml", tt.body)
			_, err := Load(fs, "/c.yaml")
			assert.True(t, errs.IsInvalidConfig(err), "got %v", err)
		})
	}
}

func TestProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.yaml", sampleYAML)
	cfg, err := Load(fs, "/c.yaml")
	require.NoError(t, err)

	t.Setenv("DBPILOT_PASSWORD", "fallback")
	t.Setenv("DBPILOT_PASSWORD_SHOP_MYSQL", "shop-pass")

	p, err := cfg.Profile("shop-mysql")
	require.NoError(t, err)
	assert.Equal(t, "shop-pass", p.Password)

	p, err = cfg.Profile("prod")
	require.NoError(t, err)
	assert.Equal(t, "fallback", p.Password)
	assert.Equal(t, "db.internal", p.Host)

	_, err = cfg.Profile("missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestSave_OmitsSecrets(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := Default()
	cfg.Export.SecretKey = "do-not-write"
	cfg.Connections = []database.Config{{ID: "local", Host: "localhost", Database: "app", Username: "dev", Password: "hunter2"}}

	require.NoError(t, Save(fs, "/home/dev/.config/dbpilot/config.yaml", cfg))
	raw, err := afero.ReadFile(fs, "/home/dev/.config/dbpilot/config.yaml")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.NotContains(t, string(raw), "do-not-write")

	back, err := Load(fs, "/home/dev/.config/dbpilot/config.yaml")
	require.NoError(t, err)
	require.Len(t, back.Connections, 1)
	assert.Equal(t, "local", back.Connections[0].ID)
	assert.Empty(t, back.Connections[0].Password)
}

func TestLoadEnv(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/proj/.env", "DBPILOT_TEST_A=from-env\nDBPILOT_TEST_B=from-env\nDBPILOT_TEST_C=from-env\n")
	writeFile(t, fs, "/proj/.env.local", "DBPILOT_TEST_B=from-local\n")

	t.Setenv("DBPILOT_TEST_A", "")
	t.Setenv("DBPILOT_TEST_B", "")
	t.Setenv("DBPILOT_TEST_C", "process")

	require.NoError(t, LoadEnv(fs, "/proj"))
	assert.Equal(t, "", os.Getenv("DBPILOT_TEST_A"), "already set, .env does not override")
	assert.Equal(t, "from-local", os.Getenv("DBPILOT_TEST_B"))
	assert.Equal(t, "process", os.Getenv("DBPILOT_TEST_C"))
}

func TestLoadEnv_MissingFiles(t *testing.T) {
	assert.NoError(t, LoadEnv(afero.NewMemMapFs(), "/nowhere"))
}

func TestPasswordVar(t *testing.T) {
	assert.Equal(t, "DBPILOT_PASSWORD_SHOP_MYSQL", passwordVar("shop-mysql"))
	assert.Equal(t, "DBPILOT_PASSWORD_PROD1", passwordVar("prod1"))
}
