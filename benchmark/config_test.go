package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-decodebench/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "std", config.Decoder)
	assert.GreaterOrEqual(t, config.Workers, 1)
	assert.True(t, config.Baseline)
	assert.Equal(t, 2*config.Workers, config.EffectiveLoadConcurrency())
	assert.Equal(t, []int{50, 100, 300, 500, 700, 900}, config.Sweep.ImageCounts)
	assert.Equal(t, []int{1, 2, 4, 6, 8, 16}, config.Sweep.WorkerCounts)
	assert.Equal(t, 10, config.Sweep.Repetitions)
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
directory: /data/images
decoder: vips
workers: 6
load_concurrency: 3
queue_depth: 32
index:
  min: 1
  max: 500
sweep:
  image_counts: [10, 20]
  worker_counts: [1, 2]
  repetitions: 3
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/images", config.Directory)
	assert.Equal(t, "vips", config.Decoder)
	assert.Equal(t, 6, config.Workers)
	assert.Equal(t, 3, config.EffectiveLoadConcurrency())
	assert.Equal(t, 32, config.QueueDepth)
	assert.Equal(t, 1, config.Index.Min)
	assert.Equal(t, 500, config.Index.Max)
	assert.Equal(t, []int{10, 20}, config.Sweep.ImageCounts)
	assert.Equal(t, 3, config.Sweep.Repetitions)
	// Unset fields keep their defaults.
	assert.True(t, config.Baseline)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"directory": "imgs", "workers": 2, "baseline": false}`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "imgs", config.Directory)
	assert.Equal(t, 2, config.Workers)
	assert.False(t, config.Baseline)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	toml := filepath.Join(dir, "bench.toml")
	require.NoError(t, os.WriteFile(toml, []byte("workers = 2"), 0o644))
	_, err = LoadConfig(toml)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [not, a, number]"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvWorkers, "7")
	t.Setenv(EnvLogLevel, "debug")

	config := DefaultConfig()
	config.ApplyEnvironmentOverrides()
	assert.Equal(t, 7, config.Workers)
	assert.Equal(t, "debug", config.LogLevel)

}

func TestApplyEnvironmentOverridesMalformedWorkers(t *testing.T) {
	for _, val := range []string{"abc", "4x", "2.5"} {
		t.Run(val, func(t *testing.T) {
			t.Setenv(EnvWorkers, val)

			config := DefaultConfig()
			config.Directory = t.TempDir()
			config.ApplyEnvironmentOverrides()

			err := config.Validate()
			require.Error(t, err)
			cfgErr, ok := err.(*pipeline.ConfigError)
			require.True(t, ok, "want *pipeline.ConfigError, got %T", err)
			assert.Equal(t, "workers", cfgErr.Field)
			assert.Contains(t, err.Error(), EnvWorkers)

			// An explicit worker count replaces the bad override.
			config.SetWorkers(3)
			assert.NoError(t, config.Validate())
			assert.Equal(t, 3, config.Workers)
		})
	}
}

func TestLoadConfigMalformedWorkersEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 4\n"), 0o644))
	t.Setenv(EnvWorkers, "abc")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	config.Directory = dir

	assert.True(t, pipeline.IsConfigError(config.Validate()))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "no directory", modify: func(c *Config) { c.Directory = "" }, field: "directory"},
		{name: "missing directory", modify: func(c *Config) { c.Directory = filepath.Join(dir, "nope") }, field: "directory"},
		{name: "file not directory", modify: func(c *Config) { c.Directory = file }, field: "directory"},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, field: "workers"},
		{name: "negative concurrency", modify: func(c *Config) { c.LoadConcurrency = -1 }, field: "load_concurrency"},
		{name: "negative queue depth", modify: func(c *Config) { c.QueueDepth = -1 }, field: "queue_depth"},
		{name: "inverted index range", modify: func(c *Config) { c.Index.Min, c.Index.Max = 10, 5 }, field: "index"},
		{name: "unknown decoder", modify: func(c *Config) { c.Decoder = "magick" }, field: "decoder"},
		{name: "bad resize", modify: func(c *Config) { c.Resize = "640by480" }, field: "resize"},
		{name: "bad cache size", modify: func(c *Config) { c.SaturateCache = "lots" }, field: "saturate_cache"},
		{name: "bad log level", modify: func(c *Config) { c.LogLevel = "loud" }, field: "log_level"},
		{name: "zero repetitions", modify: func(c *Config) { c.Sweep.Repetitions = 0 }, field: "sweep.repetitions"},
		{name: "zero sweep workers", modify: func(c *Config) { c.Sweep.WorkerCounts = []int{2, 0} }, field: "sweep.worker_counts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Directory = dir
			tt.modify(config)

			err := config.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			cfgErr, ok := err.(*pipeline.ConfigError)
			require.True(t, ok, "want *pipeline.ConfigError, got %T", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
