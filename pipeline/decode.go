package pipeline

import (
	"context"

	"github.com/nvr-ai/go-decodebench/images"
	"github.com/nvr-ai/go-decodebench/profiler"
	"github.com/nvr-ai/go-decodebench/util"
	"github.com/nvr-ai/go-decodebench/workers"
)

// DecodePool is a fixed set of decode workers, each with its own decoder.
type DecodePool = workers.Pool[util.ImageFile, *images.Decoded]

// decodeWorker owns one decoder for the lifetime of its pool goroutine.
type decodeWorker struct {
	decoder images.Decoder
	agg     *profiler.Aggregator
}

func (w *decodeWorker) Process(_ context.Context, file util.ImageFile) (*images.Decoded, error) {
	done := w.agg.Start(profiler.StageDecodeItem, file.Path)
	defer done()

	img, err := w.decoder.Decode(file.Path, file.Data)
	if err != nil {
		return nil, &DecodeError{Path: file.Path, Err: err}
	}
	return img, nil
}

func (w *decodeWorker) Close() error {
	return w.decoder.Close()
}

// NewDecodePool creates a pool of opts.Workers decode workers. The pool must
// be started before use.
//
// Arguments:
// - opts: Workers, QueueDepth, Decoders and Aggregator are used.
//
// Returns:
// - The decode pool.
func NewDecodePool(opts Options) *DecodePool {
	opts = opts.withDefaults()

	factory := func(int) (workers.Worker[util.ImageFile, *images.Decoded], error) {
		decoder, err := opts.Decoders()
		if err != nil {
			return nil, err
		}
		return &decodeWorker{decoder: decoder, agg: opts.Aggregator}, nil
	}

	return workers.NewPool[util.ImageFile, *images.Decoded](workers.Config{
		WorkerCount: opts.Workers,
		QueueDepth:  opts.QueueDepth,
	}, factory)
}
