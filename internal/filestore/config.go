package filestore

import (
	"time"

	"github.com/koustreak/dbpilot/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderLocal Provider = "local"
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend; empty means ProviderLocal.
	Provider Provider `yaml:"provider"`

	// Dir is the root directory of the local provider.
	Dir string `yaml:"dir"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"-"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket receives every export.
	Bucket string `yaml:"bucket"`

	// PresignTTL is the lifetime of download links.
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// DefaultConfig returns a local store rooted at dir.
func DefaultConfig(dir string) *Config {
	return &Config{
		Provider:   ProviderLocal,
		Dir:        dir,
		PresignTTL: 15 * time.Minute,
	}
}

// Validate reports missing provider settings as InvalidConfig.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal, "":
		if c.Dir == "" {
			return errs.InvalidConfig("export dir is required for the local provider")
		}
	case ProviderMinIO:
		if c.Endpoint == "" || c.Bucket == "" {
			return errs.InvalidConfig("export endpoint and bucket are required for the minio provider")
		}
	default:
		return errs.InvalidConfig("unsupported export provider %q", c.Provider)
	}
	return nil
}
