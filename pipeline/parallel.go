package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-decodebench/profiler"
)

// RunParallel reads paths through LoadAsync and decodes them on a pool of
// opts.Workers workers, overlapping the two stages. Failed reads and failed
// decodes are skipped. The run only fails on reads when none succeeded.
//
// Arguments:
// - ctx: Cancelling ctx stops both stages.
// - paths: The image files to process.
// - opts: The pool and load parameters.
//
// Returns:
// - The outcome, with images in completion order.
// - error: A *ConfigError for bad options, the first *IOError when every
//   read failed, or the error starting the pool.
func RunParallel(ctx context.Context, paths []string, opts Options) (*Outcome, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	agg, logger := opts.Aggregator, opts.Logger

	outcome := &Outcome{Mode: profiler.ModeParallel, Attempted: len(paths)}
	defer func() { agg.SetCounts(profiler.ModeParallel, outcome.Counts()) }()

	logger.Debug("parallel run starting",
		zap.Int("paths", len(paths)),
		zap.Int("workers", opts.Workers),
		zap.Int("load_concurrency", opts.LoadConcurrency),
		zap.Int("queue_depth", opts.QueueDepth))

	runDone := agg.Start(profiler.StageParallel, "")
	pool := NewDecodePool(opts)
	if err := pool.Start(ctx); err != nil {
		runDone()
		return outcome, errors.Wrap(err, "failed to start decode pool")
	}
	decodeDone := agg.Start(profiler.StageDecode, "")

	loads := LoadAsync(ctx, paths, opts.LoadConcurrency, agg)

	var ioErrs []error
	fed := make(chan error, 1)
	go func() {
		defer pool.Close()
		for res := range loads {
			if res.Err != nil {
				ioErrs = append(ioErrs, res.Err)
				logger.Warn("skipping image", zap.String("path", res.File.Path), zap.Error(res.Err))
				continue
			}
			outcome.Loaded++
			if err := pool.Submit(ctx, res.File); err != nil {
				fed <- err
				return
			}
		}
		advance(agg, profiler.StateLoading, profiler.StateDecoding)
		fed <- nil
	}()

	var decodeErrs []error
	for res := range pool.Results() {
		if res.Err != nil {
			decodeErrs = append(decodeErrs, res.Err)
			logger.Warn("skipping image", zap.String("path", res.Input.Path), zap.Error(res.Err))
			continue
		}
		outcome.Images = append(outcome.Images, res.Output)
	}
	decodeDone()
	runDone()

	feedErr := <-fed
	if err := pool.Wait(); err != nil {
		logger.Warn("failed to close decoder", zap.Error(err))
	}

	outcome.Failures = append(ioErrs, decodeErrs...)
	agg.ObserveQueueDepth(pool.Stats().MaxQueueDepth)

	logger.Debug("parallel run finished",
		zap.Int("loaded", outcome.Loaded),
		zap.Int("decoded", len(outcome.Images)),
		zap.Int("failed", len(outcome.Failures)),
		zap.Int("max_queue_depth", pool.Stats().MaxQueueDepth))

	if feedErr != nil {
		return outcome, feedErr
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	if outcome.Loaded == 0 && len(ioErrs) > 0 {
		return outcome, ioErrs[0]
	}
	return outcome, nil
}
