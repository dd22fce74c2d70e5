package job

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config configures job scheduling and retention.
type Config struct {
	// MaxConcurrent bounds how many recordings are processed at once.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// TTL is how long finished jobs stay readable.
	TTL   time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Store string        `yaml:"store" mapstructure:"store"`
	// UploadDir holds uploaded audio until its job finishes.
	UploadDir string `yaml:"upload_dir" mapstructure:"upload_dir"`
	// SubmitRate and SubmitBurst limit new submissions per second.
	SubmitRate  float64 `yaml:"submit_rate" mapstructure:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst" mapstructure:"submit_burst"`
	// ListLimit caps the recent jobs listing.
	ListLimit int `yaml:"list_limit" mapstructure:"list_limit"`
	// ShutdownTimeout is how long Stop waits for running jobs.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(os.TempDir(), "diarscribe-uploads")
	}
	if c.SubmitRate <= 0 {
		c.SubmitRate = 1
	}
	if c.SubmitBurst <= 0 {
		c.SubmitBurst = 5
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 50
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Store != StoreMemory && c.Store != StoreRedis {
		return fmt.Errorf("jobs.store must be %q or %q (got: %q)", StoreMemory, StoreRedis, c.Store)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("jobs.max_concurrent must be >= 1")
	}
	return nil
}
