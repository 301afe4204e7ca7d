package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-decodebench/profiler"
	"github.com/nvr-ai/go-decodebench/util"
)

// LoadResult is one finished read. Err is an *IOError when the read failed.
type LoadResult struct {
	File util.ImageFile
	Err  error
}

// LoadAsync reads paths with at most concurrency reads in flight and emits
// each result as soon as its read completes. A failed read is emitted as a
// LoadResult with an IOError and does not affect the other reads. The
// channel is closed once every path has been emitted or ctx is done.
//
// Arguments:
// - ctx: Stops outstanding sends when done.
// - paths: The image files to read.
// - concurrency: The maximum number of concurrent reads.
// - agg: Receives a load stage record and one record per read.
//
// Returns:
// - A channel of results in completion order.
func LoadAsync(ctx context.Context, paths []string, concurrency int, agg *profiler.Aggregator) <-chan LoadResult {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make(chan LoadResult, concurrency)

	go func() {
		defer close(out)
		stageDone := agg.Start(profiler.StageLoad, "")
		defer stageDone()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i, path := range paths {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				readDone := agg.Start(profiler.StageReadItem, path)
				file, err := util.ReadImageFile(i, path)
				readDone()

				res := LoadResult{File: file}
				if err != nil {
					res.Err = &IOError{Path: path, Err: err}
				}

				select {
				case out <- res:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}

		_ = g.Wait()
	}()

	return out
}
