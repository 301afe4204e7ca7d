package benchmark

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-decodebench/images"
	"github.com/nvr-ai/go-decodebench/pipeline"
	"github.com/nvr-ai/go-decodebench/profiler"
	"github.com/nvr-ai/go-decodebench/util"
)

// Run is one measured benchmark run.
type Run struct {
	// Mode is the pipeline being measured.
	Mode    profiler.Mode            `json:"mode"`
	Result  profiler.RunResult       `json:"result"`
	Records []profiler.TimingRecord `json:"records"`
}

// Suite executes benchmark runs against one image directory.
type Suite struct {
	config     *Config
	logger     *zap.Logger
	decoders   images.DecoderFactory
	cacheBytes int64

	mu      sync.RWMutex
	results []Run
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - config: The benchmark configuration. It is validated here.
//   - logger: The logger, nil for none.
//
// Returns:
//   - *Suite: The benchmark suite.
//   - error: A *pipeline.ConfigError if the configuration is invalid.
func NewSuite(config *Config, logger *zap.Logger) (*Suite, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	decoders, err := config.DecoderFactory()
	if err != nil {
		return nil, &pipeline.ConfigError{Field: "decoder", Err: err}
	}
	cacheBytes, err := util.ParseSize(config.SaturateCache)
	if err != nil {
		return nil, &pipeline.ConfigError{Field: "saturate_cache", Err: err}
	}

	return &Suite{
		config:     config,
		logger:     logger,
		decoders:   decoders,
		cacheBytes: cacheBytes,
	}, nil
}

// Paths enumerates the input images.
func (s *Suite) Paths() ([]string, error) {
	paths, err := util.EnumerateImagePaths(s.config.Directory, s.config.Index)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate images")
	}
	return paths, nil
}

// RunSequential measures the sequential pipeline over every input image.
func (s *Suite) RunSequential(ctx context.Context) (*Run, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}
	return s.Measure(ctx, MeasureArgs{Paths: paths, Mode: profiler.ModeSequential, Workers: 1})
}

// RunParallel measures the parallel pipeline over every input image,
// preceded by a sequential baseline when the configuration asks for one.
func (s *Suite) RunParallel(ctx context.Context) (*Run, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}
	return s.Measure(ctx, MeasureArgs{
		Paths:    paths,
		Mode:     profiler.ModeParallel,
		Workers:  s.config.Workers,
		Baseline: s.config.Baseline,
	})
}

// MeasureArgs represents the arguments for measuring one run.
type MeasureArgs struct {
	// Paths are the image files.
	Paths []string
	// Mode is the pipeline to measure.
	Mode profiler.Mode
	// Workers is the decode pool size for a parallel run. A sequential run
	// always uses one reader and one decoder.
	Workers int
	// Baseline runs the sequential pipeline first so a parallel run gets a
	// speedup.
	Baseline bool
}

// Measure runs one pipeline and derives its RunResult.
//
// Arguments:
//   - ctx: Passed to the pipelines.
//   - args: What to measure.
//
// Returns:
//   - *Run: The measured run.
//   - error: A pipeline error that aborted the run.
func (s *Suite) Measure(ctx context.Context, args MeasureArgs) (*Run, error) {
	paths, mode, workers := args.Paths, args.Mode, args.Workers

	agg := profiler.NewAggregator()
	logger := s.logger.With(zap.String("run_id", agg.RunID()), zap.String("mode", string(mode)))

	loadConcurrency := s.config.LoadConcurrency
	if loadConcurrency == 0 {
		loadConcurrency = 2 * workers
	}
	if mode == profiler.ModeSequential {
		workers, loadConcurrency = 1, 1
	}
	opts := pipeline.Options{
		Workers:         workers,
		LoadConcurrency: loadConcurrency,
		QueueDepth:      s.config.QueueDepth,
		Decoders:        s.decoders,
		Aggregator:      agg,
		Logger:          logger,
	}

	if mode == profiler.ModeParallel && args.Baseline {
		if err := s.saturateCache(); err != nil {
			return nil, err
		}
		if _, err := pipeline.RunSequential(ctx, paths, opts); err != nil {
			return nil, errors.Wrap(err, "sequential baseline failed")
		}
	}

	if err := s.saturateCache(); err != nil {
		return nil, err
	}
	if err := agg.Transition(profiler.StateLoading); err != nil {
		return nil, err
	}

	var err error
	switch mode {
	case profiler.ModeSequential:
		_, err = pipeline.RunSequential(ctx, paths, opts)
	case profiler.ModeParallel:
		_, err = pipeline.RunParallel(ctx, paths, opts)
	default:
		err = errors.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	if err := agg.Transition(profiler.StateAggregating); err != nil {
		return nil, err
	}
	run := Run{
		Mode: mode,
		Result: agg.Result(profiler.ResultArgs{
			WorkerCount:     workers,
			LoadConcurrency: loadConcurrency,
		}),
		Records: agg.Records(),
	}
	if err := agg.Transition(profiler.StateDone); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.results = append(s.results, run)
	s.mu.Unlock()

	logger.Info("run completed",
		zap.Int("decoded", run.Result.Processed(mode)),
		zap.Duration("sequential", run.Result.TotalSequentialTime),
		zap.Duration("parallel", run.Result.TotalParallelTime),
		zap.Float64("speedup", float64(run.Result.Speedup)))

	return &run, nil
}

func (s *Suite) saturateCache() error {
	if s.cacheBytes <= 0 {
		return nil
	}
	s.logger.Debug("saturating page cache", zap.Int64("bytes", s.cacheBytes))
	return util.SaturateCache("", s.cacheBytes)
}

// Results returns all benchmark results
func (s *Suite) Results() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Run, len(s.results))
	copy(results, s.results)
	return results
}

// SaveResults writes every run, with its timing records, as JSON.
func (s *Suite) SaveResults(filename string) error {
	data, err := json.MarshalIndent(s.Results(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write results file")
	}

	s.logger.Info("results saved", zap.String("path", filename))
	return nil
}
