// Package workers - A fixed-size pool of workers, each owning its own state,
// fed from a shared inbox.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("pool is closed")

// Worker processes inputs on behalf of one pool goroutine. A Worker is only
// ever used by the goroutine it was created for.
type Worker[In, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
	Close() error
}

// WorkerFactory creates the Worker for the goroutine with the given id.
type WorkerFactory[In, Out any] func(id int) (Worker[In, Out], error)

// Result holds the outcome of processing one input.
type Result[In, Out any] struct {
	Worker   int
	Input    In
	Output   Out
	Err      error
	Duration time.Duration
}

// Config holds configuration for the worker pool
type Config struct {
	// WorkerCount is the number of workers to spawn
	// If 0, defaults to runtime.NumCPU()
	WorkerCount int

	// QueueDepth bounds the inbox. Submit blocks while it is full.
	// If 0, the inbox is unbounded.
	QueueDepth int
}

// Stats holds pool statistics
type Stats struct {
	Workers       int   `json:"workers"`
	Submitted     int64 `json:"submitted"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	QueueDepth    int   `json:"queue_depth"`
	MaxQueueDepth int   `json:"max_queue_depth"`
}

// Pool manages a pool of workers for parallel task execution
type Pool[In, Out any] struct {
	config  Config
	factory WorkerFactory[In, Out]
	inbox   *inbox[In]
	results chan Result[In, Out]
	wg      sync.WaitGroup

	submitted int64
	completed int64
	failed    int64

	mu       sync.Mutex
	started  bool
	closeErr error
}

// NewPool creates a new worker pool with the given configuration.
//
// Arguments:
// - config: The pool configuration.
// - factory: Creates one Worker per goroutine when the pool starts.
//
// Returns:
// - A pool that must be started before use.
func NewPool[In, Out any](config Config, factory WorkerFactory[In, Out]) *Pool[In, Out] {
	if config.WorkerCount <= 0 {
		config.WorkerCount = runtime.NumCPU()
	}
	if config.QueueDepth < 0 {
		config.QueueDepth = 0
	}

	return &Pool[In, Out]{
		config:  config,
		factory: factory,
		inbox:   newInbox[In](config.QueueDepth),
		results: make(chan Result[In, Out], config.WorkerCount),
	}
}

// Start creates every worker and starts their goroutines. If any worker
// cannot be created, the ones already created are closed and no goroutine is
// started.
//
// Arguments:
// - ctx: Cancelling ctx stops the workers without draining the inbox.
//
// Returns:
// - error if the pool was already started or a worker could not be created.
func (p *Pool[In, Out]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started")
	}

	created := make([]Worker[In, Out], 0, p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		w, err := p.factory(i)
		if err != nil {
			for _, c := range created {
				_ = c.Close()
			}
			return fmt.Errorf("failed to create worker %d: %w", i, err)
		}
		created = append(created, w)
	}

	for i, w := range created {
		p.wg.Add(1)
		go p.worker(ctx, i, w)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	p.started = true
	return nil
}

// Submit hands an input to the pool. It blocks only when the inbox is
// bounded and full.
func (p *Pool[In, Out]) Submit(ctx context.Context, in In) error {
	if err := p.inbox.push(ctx, in); err != nil {
		return err
	}
	atomic.AddInt64(&p.submitted, 1)
	return nil
}

// Close stops accepting inputs. Workers finish what is already queued and
// then exit, after which Results is closed.
func (p *Pool[In, Out]) Close() {
	p.inbox.close()
}

// Results returns the channel results are delivered on. It must be drained
// until closed.
func (p *Pool[In, Out]) Results() <-chan Result[In, Out] {
	return p.results
}

// Wait blocks until every worker has exited.
//
// Returns:
// - The first error returned by a Worker's Close.
func (p *Pool[In, Out]) Wait() error {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeErr
}

// Stats returns current pool statistics
func (p *Pool[In, Out]) Stats() Stats {
	depth, maxDepth := p.inbox.depth()
	return Stats{
		Workers:       p.config.WorkerCount,
		Submitted:     atomic.LoadInt64(&p.submitted),
		Completed:     atomic.LoadInt64(&p.completed),
		Failed:        atomic.LoadInt64(&p.failed),
		QueueDepth:    depth,
		MaxQueueDepth: maxDepth,
	}
}

// worker is the main worker loop
func (p *Pool[In, Out]) worker(ctx context.Context, id int, w Worker[In, Out]) {
	defer p.wg.Done()
	defer func() {
		if err := w.Close(); err != nil {
			p.mu.Lock()
			if p.closeErr == nil {
				p.closeErr = fmt.Errorf("worker %d: %w", id, err)
			}
			p.mu.Unlock()
		}
	}()

	for {
		in, ok := p.inbox.pop(ctx)
		if !ok {
			return
		}

		start := time.Now()
		out, err := w.Process(ctx, in)
		res := Result[In, Out]{
			Worker:   id,
			Input:    in,
			Output:   out,
			Err:      err,
			Duration: time.Since(start),
		}

		atomic.AddInt64(&p.completed, 1)
		if err != nil {
			atomic.AddInt64(&p.failed, 1)
		}

		select {
		case p.results <- res:
		case <-ctx.Done():
			return
		}
	}
}
