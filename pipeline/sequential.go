package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-decodebench/profiler"
	"github.com/nvr-ai/go-decodebench/util"
)

// RunSequential reads and decodes each path in order on the calling
// goroutine. A read failure aborts the run. A decode failure skips the item.
//
// Arguments:
// - ctx: Checked between items.
// - paths: The image files, in the order they are processed.
// - opts: Only Decoders, Aggregator and Logger are used.
//
// Returns:
// - The outcome, with images in input order. It is returned even on error.
// - error: An *IOError, or the error creating the decoder.
func RunSequential(ctx context.Context, paths []string, opts Options) (*Outcome, error) {
	opts = opts.withDefaults()
	agg, logger := opts.Aggregator, opts.Logger

	decoder, err := opts.Decoders()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	defer func() {
		if err := decoder.Close(); err != nil {
			logger.Warn("failed to close decoder", zap.Error(err))
		}
	}()

	outcome := &Outcome{Mode: profiler.ModeSequential}
	defer func() { agg.SetCounts(profiler.ModeSequential, outcome.Counts()) }()

	logger.Debug("sequential run starting", zap.Int("paths", len(paths)))
	runDone := agg.Start(profiler.StageSequential, "")
	defer runDone()

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		itemDone := agg.Start(profiler.StageSequentialItem, path)
		outcome.Attempted++

		file, err := util.ReadImageFile(i, path)
		if err != nil {
			itemDone()
			ioErr := &IOError{Path: path, Err: err}
			outcome.Failures = append(outcome.Failures, ioErr)
			logger.Error("sequential run aborted", zap.String("path", path), zap.Error(err))
			return outcome, ioErr
		}
		outcome.Loaded++
		if i == len(paths)-1 {
			advance(agg, profiler.StateLoading, profiler.StateDecoding)
		}

		img, err := decoder.Decode(path, file.Data)
		itemDone()
		if err != nil {
			outcome.Failures = append(outcome.Failures, &DecodeError{Path: path, Err: err})
			logger.Warn("skipping image", zap.String("path", path), zap.Error(err))
			continue
		}
		outcome.Images = append(outcome.Images, img)
	}

	advance(agg, profiler.StateLoading, profiler.StateDecoding)
	logger.Debug("sequential run finished",
		zap.Int("decoded", len(outcome.Images)),
		zap.Int("failed", len(outcome.Failures)))

	return outcome, nil
}
