// Package pipeline - The sequential baseline and the concurrent load/decode
// pipeline being measured against it.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/nvr-ai/go-decodebench/images"
	"github.com/nvr-ai/go-decodebench/profiler"
)

// Options configure a pipeline run.
type Options struct {
	// Workers is the size of the decode pool. Ignored by RunSequential.
	Workers int
	// LoadConcurrency caps concurrent reads. If 0, defaults to 2 × Workers.
	LoadConcurrency int
	// QueueDepth bounds the decode inbox. If 0, it is unbounded.
	QueueDepth int
	// Decoders builds one decoder per worker, or one for a sequential run.
	Decoders images.DecoderFactory
	// Aggregator receives every TimingRecord of the run.
	Aggregator *profiler.Aggregator
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.LoadConcurrency == 0 {
		o.LoadConcurrency = 2 * o.Workers
	}
	if o.Decoders == nil {
		o.Decoders = func() (images.Decoder, error) { return images.NewStdDecoder(nil), nil }
	}
	if o.Aggregator == nil {
		o.Aggregator = profiler.NewAggregator()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// validate checks the parallel parameters.
func (o Options) validate() error {
	if o.Workers < 1 {
		return NewConfigError("workers", "must be at least 1, got %d", o.Workers)
	}
	if o.LoadConcurrency < 1 {
		return NewConfigError("load_concurrency", "must be at least 1, got %d", o.LoadConcurrency)
	}
	if o.QueueDepth < 0 {
		return NewConfigError("queue_depth", "must not be negative, got %d", o.QueueDepth)
	}
	return nil
}

// advance moves the run from one state to the next when it is in from. A
// baseline run that precedes the measured one leaves the state untouched.
func advance(agg *profiler.Aggregator, from, to profiler.RunState) {
	if agg.State() == from {
		_ = agg.Transition(to)
	}
}
