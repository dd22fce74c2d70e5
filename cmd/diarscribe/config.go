package main

import (
	"fmt"

	"github.com/kbukum/diarscribe/auth"
	"github.com/kbukum/diarscribe/config"
	"github.com/kbukum/diarscribe/diarization"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/observability"
	"github.com/kbukum/diarscribe/redis"
	"github.com/kbukum/diarscribe/server"
	"github.com/kbukum/diarscribe/storage"
	"github.com/kbukum/diarscribe/transcription"
)

// AppConfig is the full service configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Transcription transcription.Config `yaml:"transcription" mapstructure:"transcription"`
	Diarization   diarization.Config   `yaml:"diarization" mapstructure:"diarization"`
	Jobs          job.Config           `yaml:"jobs" mapstructure:"jobs"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
}

// ApplyDefaults fills every section. An enabled redis section moves the job
// store to redis unless a store was chosen explicitly, and the diarization
// token falls back to the usual HuggingFace environment variables.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Jobs.Store == "" && c.Redis.Enabled {
		c.Jobs.Store = job.StoreRedis
	}
	if c.Diarization.Token == "" {
		c.Diarization.Token = config.FirstEnv("HF_TOKEN", "HUGGINGFACE_TOKEN")
	}

	c.Server.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	c.Diarization.ApplyDefaults()
	c.Jobs.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Auth.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"server", &c.Server},
		{"transcription", &c.Transcription},
		{"diarization", &c.Diarization},
		{"jobs", &c.Jobs},
		{"storage", &c.Storage},
		{"redis", &c.Redis},
		{"observability", &c.Observability},
		{"auth", &c.Auth},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if c.Jobs.Store == job.StoreRedis && !c.Redis.Enabled {
		return fmt.Errorf("jobs.store is %q but redis.enabled is false", job.StoreRedis)
	}
	return nil
}
