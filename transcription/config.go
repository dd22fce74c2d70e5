package transcription

import (
	"fmt"
	"slices"
	"time"

	"github.com/kbukum/diarscribe/device"
	"github.com/kbukum/diarscribe/provider"
)

// Backend names.
const (
	BackendWhisper  = "whisper"
	BackendWhisperX = "whisperx"
)

// Config configures the speech-to-text backend.
type Config struct {
	// Provider selects the backend: "whisper" (HTTP sidecar) or "whisperx" (CLI).
	Provider string `yaml:"provider" mapstructure:"provider"`
	// URL is the whisper sidecar base URL.
	URL string `yaml:"url" mapstructure:"url"`
	// Binary is the whisperx executable.
	Binary string `yaml:"binary" mapstructure:"binary"`
	// WorkDir holds the CLI output files. Defaults to the OS temp dir.
	WorkDir     string `yaml:"work_dir" mapstructure:"work_dir"`
	Model       string `yaml:"model" mapstructure:"model"`
	Language    string `yaml:"language" mapstructure:"language"`
	Device      string `yaml:"device" mapstructure:"device"`
	ComputeType string `yaml:"compute_type" mapstructure:"compute_type"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Threads     int    `yaml:"threads" mapstructure:"threads"`
	// NoAlign skips word-level alignment.
	NoAlign bool          `yaml:"no_align" mapstructure:"no_align"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// MaxThreads caps the CPU thread setting.
const MaxThreads = 64

// ApplyDefaults fills unset fields. Device "auto" is resolved against the host.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = BackendWhisper
	}
	if c.URL == "" {
		c.URL = "http://localhost:8387"
	}
	if c.Binary == "" {
		c.Binary = "whisperx"
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Language == "" {
		c.Language = "en"
	}
	dev := device.Resolve(c.Device)
	c.Device = dev.Device
	if c.ComputeType == "" {
		c.ComputeType = dev.ComputeType
	}
	if c.BatchSize <= 0 {
		c.BatchSize = dev.BatchSize
	}
	if c.Threads <= 0 {
		c.Threads = 16
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Hour
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !slices.Contains([]string{BackendWhisper, BackendWhisperX}, c.Provider) {
		return fmt.Errorf("transcription.provider must be %q or %q (got: %q)", BackendWhisper, BackendWhisperX, c.Provider)
	}
	if !ValidModel(c.Model) {
		return fmt.Errorf("transcription.model must be one of %v (got: %q)", Models, c.Model)
	}
	if c.Threads < 1 || c.Threads > MaxThreads {
		return fmt.Errorf("transcription.threads must be within [1, %d] (got: %d)", MaxThreads, c.Threads)
	}
	return nil
}

// Request builds a request for audioPath from the configured defaults.
// A non-empty model or a positive thread count overrides them.
func (c *Config) Request(audioPath, model string, threads int) Request {
	if model == "" {
		model = c.Model
	}
	if threads <= 0 {
		threads = c.Threads
	}
	return Request{
		AudioPath:   audioPath,
		Model:       model,
		Language:    c.Language,
		Device:      c.Device,
		ComputeType: c.ComputeType,
		Threads:     threads,
		BatchSize:   c.BatchSize,
		Align:       !c.NoAlign,
	}
}
