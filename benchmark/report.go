package benchmark

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"

	"github.com/nvr-ai/go-decodebench/profiler"
)

// formatRatio prints a ratio, or n/a when it is undefined.
func formatRatio(r profiler.Ratio, suffix string) string {
	if !r.Defined() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%s", float64(r), suffix)
}

// formatDuration prints a duration in seconds, or n/a when it was not
// measured.
func formatDuration(d time.Duration, measured bool) string {
	if !measured {
		return "n/a"
	}
	return fmt.Sprintf("%.4fs", d.Seconds())
}

// WriteReport writes a human readable report of one run.
//
// Arguments:
//   - w: The destination.
//   - run: The run to report.
//
// Returns:
//   - error: If writing fails.
func WriteReport(w io.Writer, run *Run) error {
	r := run.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Run\t%s\n", r.RunID)
	fmt.Fprintf(tw, "Mode\t%s\n", run.Mode)
	if r.HasMode(profiler.ModeParallel) {
		fmt.Fprintf(tw, "Workers\t%d\n", r.WorkerCount)
		fmt.Fprintf(tw, "Load concurrency\t%d\n", r.LoadConcurrency)
	}
	fmt.Fprintf(tw, "Sequential time\t%s\n", formatDuration(r.TotalSequentialTime, r.HasMode(profiler.ModeSequential)))
	fmt.Fprintf(tw, "Parallel time\t%s\n", formatDuration(r.TotalParallelTime, r.HasMode(profiler.ModeParallel)))
	if r.HasMode(profiler.ModeParallel) {
		fmt.Fprintf(tw, "  load stage\t%s\n", formatDuration(r.LoadTime, true))
		fmt.Fprintf(tw, "  decode stage\t%s\n", formatDuration(r.DecodeTime, true))
		fmt.Fprintf(tw, "Max queue depth\t%d\n", r.MaxQueueDepth)
	}
	fmt.Fprintf(tw, "Speedup\t%s\n", formatRatio(r.Speedup, "x"))
	fmt.Fprintf(tw, "Efficiency\t%s\n", formatRatio(r.Efficiency, ""))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Pipeline\tAttempted\tLoaded\tDecoded\tIO errors\tDecode errors")
	for _, mode := range []profiler.Mode{profiler.ModeSequential, profiler.ModeParallel} {
		c, ok := r.Counts[mode]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			mode, c.Attempted, c.Loaded, c.Decoded, c.IOErrors, c.DecodeErrors)
	}

	if len(r.Latency) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Stage\tCount\tMean\tP50\tP95\tP99\tMax")

		stages := make([]string, 0, len(r.Latency))
		for stage := range r.Latency {
			stages = append(stages, string(stage))
		}
		sort.Strings(stages)

		for _, stage := range stages {
			l := r.Latency[profiler.Stage(stage)]
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
				stage, l.Count, l.Mean, l.P50, l.P95, l.P99, l.Max)
		}
	}

	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Allocated\t%s\n", units.BytesSize(float64(r.Memory.TotalAllocBytes)))
	fmt.Fprintf(tw, "Heap in use\t%s\n", units.BytesSize(float64(r.Memory.HeapAllocBytes)))
	fmt.Fprintf(tw, "GC cycles\t%d\n", r.Memory.NumGC)

	return tw.Flush()
}
