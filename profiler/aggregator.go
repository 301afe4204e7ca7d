// Package profiler - Timing records, run state and the statistics derived
// from them.
package profiler

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
)

// Aggregator collects the TimingRecords of one benchmark run and derives its
// RunResult. It is safe for concurrent use by every stage of a run.
type Aggregator struct {
	mu sync.Mutex

	runID   string
	started time.Time
	state   RunState
	records []TimingRecord
	counts  map[Mode]Counts

	maxQueueDepth int

	// Per-item latency distributions, one timer per stage.
	registry metrics.Registry

	startMem runtime.MemStats
	now      func() time.Time
}

// NewAggregator creates an aggregator in the IDLE state.
//
// Returns:
// - A new Aggregator with a fresh run ID.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		runID:    uuid.NewString(),
		state:    StateIdle,
		counts:   make(map[Mode]Counts),
		registry: metrics.NewRegistry(),
		now:      time.Now,
	}
	a.started = a.now()
	runtime.ReadMemStats(&a.startMem)
	return a
}

// RunID returns the identifier of the run.
func (a *Aggregator) RunID() string {
	return a.runID
}

// State returns the current run state.
func (a *Aggregator) State() RunState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Transition moves the run to the next state. Only the linear
// IDLE → LOADING → DECODING → AGGREGATING → DONE path is accepted.
//
// Arguments:
// - to: The state to enter.
//
// Returns:
// - error if to is not the successor of the current state.
func (a *Aggregator) Transition(to RunState) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, ok := a.state.next()
	if !ok || next != to {
		return fmt.Errorf("invalid run state transition %s -> %s", a.state, to)
	}
	a.state = to
	return nil
}

// Start begins timing a stage invocation.
//
// Arguments:
// - stage: The stage being timed.
// - path: The item path for item stages, "" for run-level stages.
//
// Returns:
// - A function to call when the invocation completes.
func (a *Aggregator) Start(stage Stage, path string) func() {
	start := a.now()
	return func() {
		end := a.now()
		a.Record(TimingRecord{
			Stage:    stage,
			Path:     path,
			Start:    start,
			End:      end,
			Duration: end.Sub(start),
		})
	}
}

// Record appends a finished TimingRecord. Records are never edited after
// being appended.
func (a *Aggregator) Record(rec TimingRecord) {
	metrics.GetOrRegisterTimer(string(rec.Stage), a.registry).Update(rec.Duration)

	a.mu.Lock()
	a.records = append(a.records, rec)
	a.mu.Unlock()
}

// Records returns a copy of the records appended so far.
func (a *Aggregator) Records() []TimingRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]TimingRecord, len(a.records))
	copy(records, a.records)
	return records
}

// SetCounts stores the item counts of a pipeline.
func (a *Aggregator) SetCounts(mode Mode, counts Counts) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[mode] = counts
}

// ObserveQueueDepth keeps the largest decode inbox depth reported.
func (a *Aggregator) ObserveQueueDepth(depth int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if depth > a.maxQueueDepth {
		a.maxQueueDepth = depth
	}
}

// ResultArgs are the run parameters that are not measured.
type ResultArgs struct {
	WorkerCount     int
	LoadConcurrency int
}

// Result derives the RunResult from the records collected so far.
//
// Speedup is sequential/parallel time and efficiency is speedup/workers. Both
// are NaN when either pipeline is missing, measured no items, or took zero
// time.
//
// Arguments:
// - args: The run parameters.
//
// Returns:
// - The RunResult.
func (a *Aggregator) Result(args ResultArgs) RunResult {
	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	a.mu.Lock()
	defer a.mu.Unlock()

	totals := make(map[Stage]time.Duration)
	for _, rec := range a.records {
		totals[rec.Stage] += rec.Duration
	}

	counts := make(map[Mode]Counts, len(a.counts))
	for mode, c := range a.counts {
		counts[mode] = c
	}

	seq := totals[StageSequential]
	par := totals[StageParallel]

	speedup := math.NaN()
	if seq > 0 && par > 0 && counts[ModeSequential].Attempted > 0 && counts[ModeParallel].Attempted > 0 {
		speedup = seq.Seconds() / par.Seconds()
	}
	efficiency := math.NaN()
	if args.WorkerCount > 0 {
		efficiency = speedup / float64(args.WorkerCount)
	}

	return RunResult{
		RunID:               a.runID,
		Timestamp:           a.started,
		WorkerCount:         args.WorkerCount,
		LoadConcurrency:     args.LoadConcurrency,
		TotalSequentialTime: seq,
		TotalParallelTime:   par,
		LoadTime:            totals[StageLoad],
		DecodeTime:          totals[StageDecode],
		Speedup:             Ratio(speedup),
		Efficiency:          Ratio(efficiency),
		Counts:              counts,
		Latency:             a.latency(),
		MaxQueueDepth:       a.maxQueueDepth,
		Memory: MemoryMetrics{
			AllocBytes:      endMem.Alloc,
			TotalAllocBytes: endMem.TotalAlloc - a.startMem.TotalAlloc,
			SysBytes:        endMem.Sys,
			NumGC:           endMem.NumGC - a.startMem.NumGC,
			HeapAllocBytes:  endMem.HeapAlloc,
			HeapSysBytes:    endMem.HeapSys,
		},
	}
}

// latency snapshots every per-stage timer.
func (a *Aggregator) latency() map[Stage]LatencyStats {
	stats := make(map[Stage]LatencyStats)
	a.registry.Each(func(name string, metric interface{}) {
		timer, ok := metric.(metrics.Timer)
		if !ok {
			return
		}
		snap := timer.Snapshot()
		if snap.Count() == 0 {
			return
		}
		ps := snap.Percentiles([]float64{0.5, 0.95, 0.99})
		stats[Stage(name)] = LatencyStats{
			Count: snap.Count(),
			Mean:  time.Duration(snap.Mean()),
			Min:   time.Duration(snap.Min()),
			Max:   time.Duration(snap.Max()),
			P50:   time.Duration(ps[0]),
			P95:   time.Duration(ps[1]),
			P99:   time.Duration(ps[2]),
		}
	})
	return stats
}
