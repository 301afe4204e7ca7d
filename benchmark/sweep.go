package benchmark

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/nvr-ai/go-decodebench/profiler"
)

// SweepHeader is the header row of the sweep CSV.
var SweepHeader = []string{
	"Num_Images",
	"Num_Workers",
	"Sequential_Time_Avg",
	"Sequential_Time_Std",
	"Parallel_Time_Avg",
	"Speedup_Avg",
	"Efficiency_Avg",
}

// SweepRow is one cell of the image count × worker count matrix. Times are
// in seconds.
type SweepRow struct {
	NumImages         int     `json:"num_images"`
	NumWorkers        int     `json:"num_workers"`
	SequentialTimeAvg float64 `json:"sequential_time_avg"`
	SequentialTimeStd float64 `json:"sequential_time_std"`
	ParallelTimeAvg   float64 `json:"parallel_time_avg"`
	SpeedupAvg        float64 `json:"speedup_avg"`
	EfficiencyAvg     float64 `json:"efficiency_avg"`
}

// Sweep measures every image count against every worker count.
//
// For each image count the sequential pipeline is repeated and averaged
// once. Each parallel repetition is compared against that average, and
// efficiency is the mean speedup divided by the worker count.
//
// Arguments:
//   - ctx: Passed to every run.
//
// Returns:
//   - []SweepRow: One row per image count and worker count.
//   - error: If enumeration or any run fails.
func (s *Suite) Sweep(ctx context.Context) ([]SweepRow, error) {
	all, err := s.Paths()
	if err != nil {
		return nil, err
	}

	sweep := s.config.Sweep
	var rows []SweepRow
	measured := make(map[int]bool, len(sweep.ImageCounts))

	for _, count := range sweep.ImageCounts {
		paths := all
		if count < len(all) {
			paths = all[:count]
		} else if count > len(all) {
			s.logger.Warn("not enough images for sweep step",
				zap.Int("wanted", count), zap.Int("available", len(all)))
		}
		if measured[len(paths)] {
			s.logger.Debug("skipping repeated sweep step", zap.Int("images", len(paths)))
			continue
		}
		measured[len(paths)] = true

		seqTimes := make([]float64, 0, sweep.Repetitions)
		for i := 0; i < sweep.Repetitions; i++ {
			run, err := s.Measure(ctx, MeasureArgs{Paths: paths, Mode: profiler.ModeSequential, Workers: 1})
			if err != nil {
				return rows, errors.Wrapf(err, "sequential run with %d images failed", len(paths))
			}
			seqTimes = append(seqTimes, run.Result.TotalSequentialTime.Seconds())
		}
		seqAvg, seqStd := meanStdDev(seqTimes)

		for _, workers := range sweep.WorkerCounts {
			parTimes := make([]float64, 0, sweep.Repetitions)
			speedups := make([]float64, 0, sweep.Repetitions)
			for i := 0; i < sweep.Repetitions; i++ {
				run, err := s.Measure(ctx, MeasureArgs{Paths: paths, Mode: profiler.ModeParallel, Workers: workers})
				if err != nil {
					return rows, errors.Wrapf(err, "parallel run with %d images and %d workers failed", len(paths), workers)
				}
				par := run.Result.TotalParallelTime.Seconds()
				parTimes = append(parTimes, par)
				speedups = append(speedups, speedup(seqAvg, par))
			}

			parAvg, _ := meanStdDev(parTimes)
			speedupAvg := meanDefined(speedups)
			row := SweepRow{
				NumImages:         len(paths),
				NumWorkers:        workers,
				SequentialTimeAvg: seqAvg,
				SequentialTimeStd: seqStd,
				ParallelTimeAvg:   parAvg,
				SpeedupAvg:        speedupAvg,
				EfficiencyAvg:     speedupAvg / float64(workers),
			}
			rows = append(rows, row)

			s.logger.Info("sweep step completed",
				zap.Int("images", row.NumImages),
				zap.Int("workers", row.NumWorkers),
				zap.Float64("sequential_avg", row.SequentialTimeAvg),
				zap.Float64("parallel_avg", row.ParallelTimeAvg),
				zap.Float64("speedup", row.SpeedupAvg),
				zap.Float64("efficiency", row.EfficiencyAvg))
		}
	}

	return rows, nil
}

// speedup returns seq/par, or NaN when either time was not measurable.
func speedup(seq, par float64) float64 {
	if seq <= 0 || par <= 0 {
		return math.NaN()
	}
	return seq / par
}

// meanDefined averages the finite values of xs. It is NaN when there are
// none.
func meanDefined(xs []float64) float64 {
	finite := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			finite = append(finite, x)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	mean, _ := meanStdDev(finite)
	return mean
}

// meanStdDev returns the mean and sample standard deviation of xs. The
// deviation of a single sample is 0.
func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

// WriteSweepCSV writes sweep rows to a CSV file.
func WriteSweepCSV(filename string, rows []SweepRow) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create sweep CSV")
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(SweepHeader); err != nil {
		return errors.Wrap(err, "failed to write sweep CSV")
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.NumImages),
			strconv.Itoa(row.NumWorkers),
			strconv.FormatFloat(row.SequentialTimeAvg, 'f', 6, 64),
			strconv.FormatFloat(row.SequentialTimeStd, 'f', 6, 64),
			strconv.FormatFloat(row.ParallelTimeAvg, 'f', 6, 64),
			strconv.FormatFloat(row.SpeedupAvg, 'f', 4, 64),
			strconv.FormatFloat(row.EfficiencyAvg, 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "failed to write sweep CSV")
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush sweep CSV")
}
