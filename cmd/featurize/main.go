package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paveg/featurize/internal/config"
	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/features"
	fio "github.com/paveg/featurize/internal/io"
	"github.com/paveg/featurize/internal/logging"
	"github.com/paveg/featurize/internal/monitoring"
	"github.com/paveg/featurize/internal/resample"
	"github.com/paveg/featurize/internal/union"
	"github.com/paveg/featurize/internal/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	formatCSV     = "csv"
	formatParquet = "parquet"
	topStages     = 10
)

// options holds the parsed command line.
type options struct {
	input        string
	format       string
	output       string
	outputFormat string
	configFile   string
	describe     bool
	version      bool
	logFormat    string
}

func customUsage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintf(out, "featurize (version %s)\n\n", version.Version)
		fmt.Fprintf(out, "Turns a tabular dataset into a numeric feature matrix. Column names select\n")
		fmt.Fprintf(out, "the transform: after a %d character prefix, bin, numcat, txtcat or num.\n\n", features.DefaultPrefixLength)
		fmt.Fprintf(out, "Usage: featurize -input data.csv [options]\n\n")
		fmt.Fprintf(out, "Example: featurize -input train.csv -upsample 0.4 -seed 42 -variance 0.001 -output X.parquet\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSettings are read from defaults, then FEATURIZE_* environment variables,\n")
		fmt.Fprintf(out, "then -config, then flags.\n")
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "featurize: %v\n", err)
		}
		os.Exit(1)
	}
}

// run parses args, builds the feature matrix and writes it. The matrix goes
// to -output or stdout; logs go to stderr.
func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("featurize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = customUsage(fs)

	var opts options
	cfg := config.NewConfig()
	fs.StringVar(&opts.input, "input", "", "Input dataset path (required)")
	fs.StringVar(&opts.format, "format", "", "Input format: csv or parquet (default: from extension)")
	fs.StringVar(&opts.output, "output", "", "Output matrix path (default: stdout)")
	fs.StringVar(&opts.outputFormat, "output-format", "", "Output format: csv or parquet (default: from extension, csv on stdout)")
	fs.StringVar(&opts.configFile, "config", "", "Config file (.json, .yaml or .yml)")
	fs.StringVar(&opts.logFormat, "log-format", string(logging.JSON), "Log encoding: json or console")
	fs.BoolVar(&opts.describe, "describe", false, "Print the provenance of every output column")
	fs.BoolVar(&opts.version, "v", false, "Print version and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit") // alias

	// flag values land in a scratch config and are applied last
	var flags config.Config
	fs.StringVar(&flags.IDColumn, "id", cfg.IDColumn, "Row identifier column")
	fs.StringVar(&flags.TargetColumn, "target", cfg.TargetColumn, "Binary target column")
	fs.IntVar(&flags.RowLimit, "rows", 0, "Read at most N rows (0 = all)")
	fs.Float64Var(&flags.UpsampleRatio, "upsample", 0, "Minority share after upsampling, in [0, 1) (0 = off)")
	fs.Uint64Var(&flags.Seed, "seed", cfg.Seed, "Seed for upsampling")
	fs.Float64Var(&flags.VarianceThreshold, "variance", 0, "Enable the variance filter with this threshold")
	fs.BoolVar(&flags.Polynomial, "poly", false, "Add degree 2 polynomial features to numeric columns")
	fs.BoolVar(&flags.SparseEncoding, "sparse", false, "Keep dummy columns sparse while encoding")
	fs.BoolVar(&flags.Parallel, "parallel", false, "Fit the per-type pipelines concurrently")
	fs.IntVar(&flags.WorkerPoolSize, "workers", 0, "Worker pool size for -parallel (0 = auto)")
	fs.StringVar(&flags.UnknownColumns, "unknown", cfg.UnknownColumns, "Columns without a type tag: drop or error")
	fs.StringVar(&flags.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.BoolVar(&flags.MetricsCollection, "metrics", false, "Log per-stage timings")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.version {
		fmt.Fprint(stdout, version.Info().String())
		return nil
	}
	if opts.input == "" {
		fs.Usage()
		return errors.New("-input is required")
	}

	cfg = cfg.WithEnv()
	if opts.configFile != "" {
		var err error
		if cfg, err = cfg.MergeFile(opts.configFile); err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) { applyFlag(&cfg, flags, f.Name) })

	cfg, warnings, err := config.NewConfigValidator().Validate(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewWithWriter(cfg.LogLevel, logging.Format(opts.logFormat), zapcore.AddSync(stderr))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	logger.Debug("starting", version.Info().Fields()...)
	for _, w := range warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, opts, cfg, logger, stdout, stderr)
}

// applyFlag copies one explicitly set flag onto cfg.
func applyFlag(cfg *config.Config, flags config.Config, name string) {
	switch name {
	case "id":
		cfg.IDColumn = flags.IDColumn
	case "target":
		cfg.TargetColumn = flags.TargetColumn
	case "rows":
		cfg.RowLimit = flags.RowLimit
	case "upsample":
		cfg.UpsampleRatio = flags.UpsampleRatio
	case "seed":
		cfg.Seed = flags.Seed
	case "variance":
		cfg.VarianceFilter = true
		cfg.VarianceThreshold = flags.VarianceThreshold
	case "poly":
		cfg.Polynomial = flags.Polynomial
	case "sparse":
		cfg.SparseEncoding = flags.SparseEncoding
	case "parallel":
		cfg.Parallel = flags.Parallel
	case "workers":
		cfg.WorkerPoolSize = flags.WorkerPoolSize
	case "unknown":
		cfg.UnknownColumns = flags.UnknownColumns
	case "log-level":
		cfg.LogLevel = flags.LogLevel
	case "metrics":
		cfg.MetricsCollection = flags.MetricsCollection
	}
}

func execute(
	ctx context.Context, opts options, cfg config.Config, logger *zap.Logger, stdout, stderr io.Writer,
) error {
	ds, err := readInput(opts, cfg)
	if err != nil {
		return err
	}
	defer ds.Release()
	logger.Info("dataset loaded",
		zap.String("input", opts.input),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", ds.Width()))

	if cfg.UpsampleRatio > 0 {
		up, stats, err := resample.UpsampleWithStats(ds, cfg.ResampleOptions())
		if err != nil {
			return err
		}
		defer up.Release()
		logger.Info("dataset upsampled",
			zap.Int("majority", stats.Majority),
			zap.Int("minority", stats.Minority),
			zap.Int("drawn", stats.Drawn),
			zap.Int("rows", stats.Total))
		ds = up
	}

	var metrics *monitoring.MetricsCollector
	if cfg.MetricsCollection {
		metrics = monitoring.NewMetricsCollector(true)
	}

	u, groups, err := union.Build(ds, cfg, logger, metrics)
	if err != nil {
		return err
	}
	logger.Debug("columns classified",
		zap.Strings("bin", groups.Binary),
		zap.Strings("numcat", groups.NumericCategorical),
		zap.Strings("txtcat", groups.TextCategorical),
		zap.Strings("num", groups.Numeric))

	m, err := u.FitTransformContext(ctx, ds)
	if err != nil {
		return err
	}
	if metrics != nil {
		metrics.Log(logger, topStages)
	}

	if err := writeOutput(opts, m, stdout); err != nil {
		return err
	}
	logger.Info("feature matrix written",
		zap.String("output", outputName(opts.output)),
		zap.Int("rows", m.Rows()),
		zap.Int("columns", m.Cols()),
		zap.Uint64("fingerprint", m.Fingerprint()))

	if opts.describe {
		// keep stdout clean when it carries the matrix
		out := stdout
		if opts.output == "" {
			out = stderr
		}
		return describe(out, m)
	}
	return nil
}

func readInput(opts options, cfg config.Config) (*dataset.Dataset, error) {
	f, err := os.Open(opts.input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	read := fio.ReadOptions{
		IDColumn:     cfg.IDColumn,
		TargetColumn: cfg.TargetColumn,
		RowLimit:     cfg.RowLimit,
	}
	mem := memory.NewGoAllocator()

	format, err := resolveFormat(opts.format, opts.input, formatCSV)
	if err != nil {
		return nil, err
	}
	var reader fio.DatasetReader
	if format == formatParquet {
		po := fio.DefaultParquetOptions()
		po.ReadOptions = read
		reader = fio.NewParquetReader(f, po, mem)
	} else {
		co := fio.DefaultCSVOptions()
		co.ReadOptions = read
		reader = fio.NewCSVReader(f, co, mem)
	}
	return reader.Read()
}

func writeOutput(opts options, m *union.FeatureMatrix, stdout io.Writer) (err error) {
	format, err := resolveFormat(opts.outputFormat, opts.output, formatCSV)
	if err != nil {
		return err
	}

	w := stdout
	if opts.output != "" {
		f, cerr := os.Create(opts.output)
		if cerr != nil {
			return fmt.Errorf("creating output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output: %w", cerr)
			}
		}()
		w = f
	}

	var writer fio.MatrixWriter
	if format == formatParquet {
		writer = fio.NewParquetWriter(w, fio.DefaultParquetOptions())
	} else {
		writer = fio.NewCSVWriter(w, fio.DefaultCSVOptions())
	}
	return writer.Write(m)
}

// resolveFormat returns the explicit format, else the one implied by the
// path extension, else fallback.
func resolveFormat(explicit, path, fallback string) (string, error) {
	format := strings.ToLower(explicit)
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".parquet", ".pq":
			format = formatParquet
		case ".csv":
			format = formatCSV
		default:
			format = fallback
		}
	}
	if format != formatCSV && format != formatParquet {
		return "", fmt.Errorf("unsupported format %q (want csv or parquet)", format)
	}
	return format, nil
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}

// describe prints one line per output column with its pipeline and sources.
func describe(w io.Writer, m *union.FeatureMatrix) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tPIPELINE\tSOURCES")
	for _, c := range m.Columns() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Pipeline, strings.Join(c.Sources, ","))
	}
	return tw.Flush()
}
