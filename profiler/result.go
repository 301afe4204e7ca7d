package profiler

import (
	"encoding/json"
	"math"
	"time"
)

// Mode identifies which pipeline produced a measurement.
type Mode string

// Mode constants
const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// Stage names a timed span. Run-level stages get one TimingRecord per
// invocation; item stages get one per path.
type Stage string

// Stage constants
const (
	// StageSequential spans a whole sequential run.
	StageSequential Stage = "sequential"
	// StageParallel spans a whole parallel run, load and decode overlapped.
	StageParallel Stage = "parallel"
	// StageLoad spans the async load stage of a parallel run.
	StageLoad Stage = "load"
	// StageDecode spans the decode pool of a parallel run.
	StageDecode Stage = "decode"
	// StageSequentialItem spans read+decode of one path in a sequential run.
	StageSequentialItem Stage = "sequential.item"
	// StageReadItem spans the read of one path in a parallel run.
	StageReadItem Stage = "parallel.read"
	// StageDecodeItem spans the decode of one path in a parallel run.
	StageDecodeItem Stage = "parallel.decode"
)

// TimingRecord is one timed span.
type TimingRecord struct {
	Stage    Stage         `json:"stage"`
	Path     string        `json:"path,omitempty"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// Counts summarises what happened to the items of one pipeline.
type Counts struct {
	Attempted    int `json:"attempted"`
	Loaded       int `json:"loaded"`
	Decoded      int `json:"decoded"`
	IOErrors     int `json:"io_errors"`
	DecodeErrors int `json:"decode_errors"`
}

// Ratio is a float64 that encodes NaN and ±Inf as JSON null.
type Ratio float64

// Defined reports whether r is a finite number.
func (r Ratio) Defined() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

// LatencyStats summarises the per-item durations of a stage.
type LatencyStats struct {
	Count int64         `json:"count"`
	Mean  time.Duration `json:"mean"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// RunResult is the outcome of one benchmark run. It is only produced by
// Aggregator.Result.
type RunResult struct {
	RunID               string                 `json:"run_id"`
	Timestamp           time.Time              `json:"timestamp"`
	WorkerCount         int                    `json:"worker_count"`
	LoadConcurrency     int                    `json:"load_concurrency"`
	TotalSequentialTime time.Duration          `json:"total_sequential_time"`
	TotalParallelTime   time.Duration          `json:"total_parallel_time"`
	LoadTime            time.Duration          `json:"load_time"`
	DecodeTime          time.Duration          `json:"decode_time"`
	Speedup             Ratio                  `json:"speedup"`
	Efficiency          Ratio                  `json:"efficiency"`
	Counts              map[Mode]Counts        `json:"counts"`
	Latency             map[Stage]LatencyStats `json:"latency"`
	MaxQueueDepth       int                    `json:"max_queue_depth"`
	Memory              MemoryMetrics          `json:"memory"`
}

// HasMode reports whether the run measured the given pipeline.
func (r RunResult) HasMode(mode Mode) bool {
	_, ok := r.Counts[mode]
	return ok
}

// Processed returns the number of decoded images for a pipeline.
func (r RunResult) Processed(mode Mode) int {
	return r.Counts[mode].Decoded
}
