package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-decodebench/benchmark"
	"github.com/nvr-ai/go-decodebench/logging"
	"github.com/nvr-ai/go-decodebench/pipeline"
	"github.com/nvr-ai/go-decodebench/profiler"
)

const usage = `Usage: decodebench <command> <directory> [flags]

Commands:
  run-sequential   Read and decode every image one after another
  run-parallel     Read concurrently and decode on a worker pool
  sweep            Measure a matrix of image counts and worker counts

Run 'decodebench <command> -h' for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the flag values of every command. Only flags the user set
// override the configuration.
type options struct {
	config        string
	decoder       string
	resize        string
	minIndex      int
	maxIndex      int
	saturateCache string
	jsonOutput    string
	logLevel      string
	logFormat     string

	workers     int
	concurrency int
	queueDepth  int
	baseline    bool

	imageCounts  string
	workerCounts string
	repetitions  int
	csvOutput    string
}

func newFlagSet(command string, opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.config, "config", "", "Path to a YAML or JSON configuration file")
	fs.StringVar(&opts.decoder, "decoder", "std", "Decoder backend: std, gocv or vips")
	fs.StringVar(&opts.resize, "resize", "", "Downscale decoded images to WxH")
	fs.IntVar(&opts.minIndex, "min-index", 0, "Lowest file name index to include")
	fs.IntVar(&opts.maxIndex, "max-index", 0, "Highest file name index to include, 0 for no limit")
	fs.StringVar(&opts.saturateCache, "saturate-cache", "", "Write and read back this much data (e.g. 2GB) before each run")
	fs.StringVar(&opts.jsonOutput, "json", "", "Write every run with its timing records to this JSON file")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", "console", "Log format: console or json")

	switch command {
	case "run-parallel":
		fs.IntVar(&opts.workers, "workers", 0, "Number of decode workers (default: number of CPUs)")
		fs.IntVar(&opts.concurrency, "concurrency", 0, "Maximum concurrent reads (default: 2 x workers)")
		fs.IntVar(&opts.queueDepth, "queue-depth", 0, "Bound the decode queue, 0 for unbounded")
		fs.BoolVar(&opts.baseline, "baseline", true, "Run the sequential pipeline first to compute speedup")
	case "sweep":
		fs.StringVar(&opts.imageCounts, "images", "", "Comma separated image counts")
		fs.StringVar(&opts.workerCounts, "workers", "", "Comma separated worker counts")
		fs.IntVar(&opts.repetitions, "repetitions", 0, "Repetitions per measurement")
		fs.StringVar(&opts.csvOutput, "csv", "", "Write the sweep rows to this CSV file")
		fs.IntVar(&opts.concurrency, "concurrency", 0, "Maximum concurrent reads (default: 2 x workers)")
		fs.IntVar(&opts.queueDepth, "queue-depth", 0, "Bound the decode queue, 0 for unbounded")
	}

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: decodebench %s <directory> [flags]\n\nFlags:\n", command)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses flags placed before or after the positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// parseInts parses a comma separated list of integers.
func parseInts(s string) ([]int, error) {
	var values []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", part)
		}
		values = append(values, n)
	}
	return values, nil
}

// buildConfig loads the configuration and applies the flags that were set.
func buildConfig(fs *flag.FlagSet, opts *options, dir string) (*benchmark.Config, error) {
	var (
		config *benchmark.Config
		err    error
	)
	if opts.config != "" {
		config, err = benchmark.LoadConfig(opts.config)
		if err != nil {
			return nil, &pipeline.ConfigError{Field: "config", Err: err}
		}
	} else {
		config = benchmark.DefaultConfig()
		config.ApplyEnvironmentOverrides()
	}
	if dir != "" {
		config.Directory = dir
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "decoder":
			config.Decoder = opts.decoder
		case "resize":
			config.Resize = opts.resize
		case "min-index":
			config.Index.Min = opts.minIndex
		case "max-index":
			config.Index.Max = opts.maxIndex
		case "saturate-cache":
			config.SaturateCache = opts.saturateCache
		case "json":
			config.JSONOutput = opts.jsonOutput
		case "log-level":
			config.LogLevel = opts.logLevel
		case "log-format":
			config.LogFormat = logging.Format(opts.logFormat)
		case "concurrency":
			config.LoadConcurrency = opts.concurrency
		case "queue-depth":
			config.QueueDepth = opts.queueDepth
		case "baseline":
			config.Baseline = opts.baseline
		case "repetitions":
			config.Sweep.Repetitions = opts.repetitions
		case "csv":
			config.Sweep.CSVOutput = opts.csvOutput
		case "images":
			counts, err := parseInts(opts.imageCounts)
			if err != nil {
				flagErr = &pipeline.ConfigError{Field: "images", Err: err}
			}
			config.Sweep.ImageCounts = counts
		case "workers":
			if fs.Name() == "sweep" {
				counts, err := parseInts(opts.workerCounts)
				if err != nil {
					flagErr = &pipeline.ConfigError{Field: "workers", Err: err}
				}
				config.Sweep.WorkerCounts = counts
			} else {
				config.SetWorkers(opts.workers)
			}
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	return config, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 1
		}
		return 0
	}

	command := args[0]
	switch command {
	case "run-sequential", "run-parallel", "sweep":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return 1
	}

	var opts options
	fs := newFlagSet(command, &opts, stderr)
	positional, err := parseArgs(fs, args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if len(positional) > 1 {
		fmt.Fprintf(stderr, "error: unexpected arguments %v\n", positional[1:])
		return 1
	}
	dir := ""
	if len(positional) == 1 {
		dir = positional[0]
	}

	config, err := buildConfig(fs, &opts, dir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger, err := logging.New(config.LogLevel, config.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", &pipeline.ConfigError{Field: "log", Err: err})
		return 1
	}
	defer func() { _ = logger.Sync() }()

	suite, err := benchmark.NewSuite(config, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	switch command {
	case "sweep":
		err = runSweep(ctx, suite, config, stdout)
	case "run-sequential":
		err = runOnce(ctx, suite, profiler.ModeSequential, stdout)
	default:
		err = runOnce(ctx, suite, profiler.ModeParallel, stdout)
	}

	if config.JSONOutput != "" && len(suite.Results()) > 0 {
		if saveErr := suite.SaveResults(config.JSONOutput); saveErr != nil {
			logger.Error("failed to save results", zap.Error(saveErr))
			if err == nil {
				err = saveErr
			}
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, suite *benchmark.Suite, mode profiler.Mode, stdout io.Writer) error {
	var (
		result *benchmark.Run
		err    error
	)
	if mode == profiler.ModeSequential {
		result, err = suite.RunSequential(ctx)
	} else {
		result, err = suite.RunParallel(ctx)
	}
	if err != nil {
		return err
	}

	if err := benchmark.WriteReport(stdout, result); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	if result.Result.Processed(mode) == 0 {
		return pipeline.ErrNoImages
	}
	return nil
}

func runSweep(ctx context.Context, suite *benchmark.Suite, config *benchmark.Config, stdout io.Writer) error {
	paths, err := suite.Paths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return pipeline.ErrNoImages
	}

	rows, err := suite.Sweep(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(benchmark.SweepHeader, "\t"))
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%.4f\t%.4f\t%.2f\t%.2f\n",
			row.NumImages, row.NumWorkers,
			row.SequentialTimeAvg, row.SequentialTimeStd, row.ParallelTimeAvg,
			row.SpeedupAvg, row.EfficiencyAvg)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "failed to write sweep table")
	}

	if config.Sweep.CSVOutput != "" {
		return benchmark.WriteSweepCSV(config.Sweep.CSVOutput, rows)
	}
	return nil
}
