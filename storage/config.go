package storage

import (
	"errors"
	"fmt"
)

// Backend names.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Defaults.
const (
	DefaultBasePath = "./data/transcripts"
	DefaultRegion   = "us-east-1"
)

// Config selects and configures the transcript store.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`

	// BasePath is the root directory of the local backend.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Region string `yaml:"region" mapstructure:"region"`
	// Prefix is prepended to every key in the bucket.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	// Endpoint points at an S3-compatible service such as MinIO.
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks the settings of the selected backend.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.New("storage: base_path is required for local provider")
		}
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, errors.New("storage: bucket is required for s3 provider"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("storage: region is required for s3 provider"))
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, errors.New("storage: access_key and secret_key must be set together"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", errors.Join(errs...))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}

// Details is a one-line summary for logs.
func (c *Config) Details() string {
	if c.Provider == ProviderS3 {
		d := "s3://" + c.Bucket + "/" + c.Prefix
		if c.Endpoint != "" {
			d += " via " + c.Endpoint
		}
		return d
	}
	return "local " + c.BasePath
}
