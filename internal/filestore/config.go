package filestore

import (
	"github.com/koustreak/datrigen/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `yaml:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`

	// DefaultBucket is used when a caller does not name a bucket.
	DefaultBucket string `yaml:"default_bucket"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}

// Validate reports the first missing connection setting.
func (c *Config) Validate() error {
	switch {
	case c.Provider != "" && c.Provider != ProviderMinIO:
		return errs.New(errs.ErrKindInvalidInput, "unsupported filestore provider: "+string(c.Provider))
	case c.Endpoint == "":
		return errs.New(errs.ErrKindInvalidInput, "filestore endpoint is required")
	case c.AccessKey == "" || c.SecretKey == "":
		return errs.New(errs.ErrKindInvalidInput, "filestore credentials are required")
	}
	return nil
}
