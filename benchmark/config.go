// Package benchmark - Configuration, execution and reporting of decode
// benchmark runs.
package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-decodebench/images"
	"github.com/nvr-ai/go-decodebench/logging"
	"github.com/nvr-ai/go-decodebench/pipeline"
	"github.com/nvr-ai/go-decodebench/util"
)

// Environment variables read by ApplyEnvironmentOverrides.
const (
	EnvWorkers  = "DECODEBENCH_WORKERS"
	EnvLogLevel = "DECODEBENCH_LOG_LEVEL"
)

// Config holds the parameters of a benchmark run.
type Config struct {
	// Directory holds the input images.
	Directory string `json:"directory" yaml:"directory"`
	// Decoder is the decode backend: std, gocv or vips.
	Decoder string `json:"decoder" yaml:"decoder"`
	// Resize is an optional WxH post-decode downscale.
	Resize string `json:"resize,omitempty" yaml:"resize,omitempty"`
	// Workers is the decode pool size.
	Workers int `json:"workers" yaml:"workers"`
	// LoadConcurrency caps concurrent reads. If 0, defaults to 2 × Workers.
	LoadConcurrency int `json:"load_concurrency" yaml:"load_concurrency"`
	// QueueDepth bounds the decode inbox. If 0, it is unbounded.
	QueueDepth int `json:"queue_depth" yaml:"queue_depth"`
	// Baseline runs the sequential pipeline before a parallel run.
	Baseline bool `json:"baseline" yaml:"baseline"`
	// Index keeps only files whose name index lies in the range.
	Index util.IndexRange `json:"index" yaml:"index"`
	// SaturateCache is a size such as 2GB to write and read back before each
	// timed run. Empty disables it.
	SaturateCache string `json:"saturate_cache,omitempty" yaml:"saturate_cache,omitempty"`
	// JSONOutput is an optional file for the JSON dump of every run.
	JSONOutput string `json:"json_output,omitempty" yaml:"json_output,omitempty"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level" yaml:"log_level"`
	// LogFormat is console or json.
	LogFormat logging.Format `json:"log_format" yaml:"log_format"`
	// Sweep configures the sweep command.
	Sweep SweepConfig `json:"sweep" yaml:"sweep"`

	// envErr is a malformed environment override, reported by Validate.
	envErr error
}

// SweepConfig is the image count × worker count matrix of a sweep.
type SweepConfig struct {
	ImageCounts  []int  `json:"image_counts" yaml:"image_counts"`
	WorkerCounts []int  `json:"worker_counts" yaml:"worker_counts"`
	Repetitions  int    `json:"repetitions" yaml:"repetitions"`
	CSVOutput    string `json:"csv_output,omitempty" yaml:"csv_output,omitempty"`
}

// DefaultConfig returns default benchmark configuration
func DefaultConfig() *Config {
	return &Config{
		Decoder:   string(images.DecoderStd),
		Workers:   runtime.NumCPU(),
		Baseline:  true,
		LogLevel:  "info",
		LogFormat: logging.FormatConsole,
		Sweep: SweepConfig{
			ImageCounts:  []int{50, 100, 300, 500, 700, 900},
			WorkerCounts: []int{1, 2, 4, 6, 8, 16},
			Repetitions:  10,
		},
	}
}

// LoadConfig loads configuration from a YAML or JSON file on top of the
// defaults, then applies environment overrides.
//
// Arguments:
// - filename: A .yaml, .yml or .json file.
//
// Returns:
// - The configuration. It is not validated.
// - error if the file cannot be read or parsed.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, errors.Errorf("unsupported config file extension %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", filename)
	}

	config.ApplyEnvironmentOverrides()
	return config, nil
}

// ApplyEnvironmentOverrides applies environment variable overrides. A
// malformed worker count is kept and fails Validate.
func (c *Config) ApplyEnvironmentOverrides() {
	if val := os.Getenv(EnvWorkers); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			c.envErr = errors.Errorf("%s=%q is not a number", EnvWorkers, val)
		} else {
			c.Workers = n
			c.envErr = nil
		}
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}
}

// SetWorkers sets the worker count, replacing any environment override.
func (c *Config) SetWorkers(n int) {
	c.Workers = n
	c.envErr = nil
}

// EffectiveLoadConcurrency returns the read concurrency a run will use.
func (c *Config) EffectiveLoadConcurrency() int {
	if c.LoadConcurrency == 0 {
		return 2 * c.Workers
	}
	return c.LoadConcurrency
}

// Validate checks the configuration before any stage starts.
//
// Returns:
// - A *pipeline.ConfigError naming the first invalid field.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return pipeline.NewConfigError("directory", "no image directory given")
	}
	info, err := os.Stat(c.Directory)
	if err != nil {
		return &pipeline.ConfigError{Field: "directory", Err: err}
	}
	if !info.IsDir() {
		return pipeline.NewConfigError("directory", "%s is not a directory", c.Directory)
	}

	if c.envErr != nil {
		return &pipeline.ConfigError{Field: "workers", Err: c.envErr}
	}
	if c.Workers < 1 {
		return pipeline.NewConfigError("workers", "must be at least 1, got %d", c.Workers)
	}
	if c.LoadConcurrency < 0 {
		return pipeline.NewConfigError("load_concurrency", "must not be negative, got %d", c.LoadConcurrency)
	}
	if c.QueueDepth < 0 {
		return pipeline.NewConfigError("queue_depth", "must not be negative, got %d", c.QueueDepth)
	}
	if c.Index.Min < 0 || (c.Index.Enabled() && c.Index.Max < c.Index.Min) {
		return pipeline.NewConfigError("index", "invalid range [%d, %d]", c.Index.Min, c.Index.Max)
	}

	if _, err := images.ParseDecoderKind(c.Decoder); err != nil {
		return &pipeline.ConfigError{Field: "decoder", Err: err}
	}
	if _, err := images.ParseResizer(c.Resize); err != nil {
		return &pipeline.ConfigError{Field: "resize", Err: err}
	}
	if _, err := util.ParseSize(c.SaturateCache); err != nil {
		return &pipeline.ConfigError{Field: "saturate_cache", Err: err}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &pipeline.ConfigError{Field: "log_level", Err: err}
	}

	return c.Sweep.validate()
}

func (s SweepConfig) validate() error {
	if s.Repetitions < 1 {
		return pipeline.NewConfigError("sweep.repetitions", "must be at least 1, got %d", s.Repetitions)
	}
	for _, n := range s.ImageCounts {
		if n < 1 {
			return pipeline.NewConfigError("sweep.image_counts", "must be at least 1, got %d", n)
		}
	}
	for _, n := range s.WorkerCounts {
		if n < 1 {
			return pipeline.NewConfigError("sweep.worker_counts", "must be at least 1, got %d", n)
		}
	}
	return nil
}

// DecoderFactory builds the decoder factory the configuration selects.
func (c *Config) DecoderFactory() (images.DecoderFactory, error) {
	kind, err := images.ParseDecoderKind(c.Decoder)
	if err != nil {
		return nil, err
	}
	resizer, err := images.ParseResizer(c.Resize)
	if err != nil {
		return nil, err
	}
	return images.NewDecoderFactory(kind, resizer)
}
