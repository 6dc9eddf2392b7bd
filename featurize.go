// Package featurize turns a raw tabular dataset into a single numeric
// feature matrix.
//
// Columns carry their feature type in the name: after a fixed-length prefix,
// the suffix bin, numcat, txtcat or num selects the per-type pipeline that
// imputes, encodes and scales the column. The four pipelines run over the
// same rows and their outputs are concatenated in that order.
//
// This package is the sole public API for the library.
//
//	ds, err := featurize.ReadCSV(f, featurize.DefaultCSVOptions(), memory.NewGoAllocator())
//	if err != nil {
//		return err
//	}
//	defer ds.Release()
//
//	m, _, err := featurize.Prepare(ds, featurize.DefaultConfig(), nil)
package featurize

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/featurize/internal/config"
	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/features"
	fio "github.com/paveg/featurize/internal/io"
	"github.com/paveg/featurize/internal/monitoring"
	"github.com/paveg/featurize/internal/resample"
	"github.com/paveg/featurize/internal/series"
	"github.com/paveg/featurize/internal/transform"
	"github.com/paveg/featurize/internal/union"
	"go.uber.org/zap"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
}

// Dataset is the public type for a raw input table.
// It wraps the internal dataset.Dataset to hide implementation details.
type Dataset struct {
	ds *dataset.Dataset
}

// FeatureType is the type a column name declares through its suffix.
type FeatureType = features.FeatureType

// Feature types in union order.
const (
	Binary             = features.Binary
	NumericCategorical = features.NumericCategorical
	TextCategorical    = features.TextCategorical
	Numeric            = features.Numeric
)

type (
	// Groups holds the ordered column names of each feature type.
	Groups = features.Groups
	// ClassifyOptions configures column classification.
	ClassifyOptions = features.Options
	// PipelineOptions configures the four per-type pipelines.
	PipelineOptions = transform.Options
	// FeatureMatrix is the combined numeric output of a union.
	FeatureMatrix = union.FeatureMatrix
	// ColumnInfo records where a feature matrix column came from.
	ColumnInfo = union.ColumnInfo
	// Config holds every option of a featurize run.
	Config = config.Config
	// CSVOptions configures CSV reading and writing.
	CSVOptions = fio.CSVOptions
	// ParquetOptions configures Parquet reading and writing.
	ParquetOptions = fio.ParquetOptions
	// MetricsCollector records per-stage timings.
	MetricsCollector = monitoring.MetricsCollector
)

// NewSeries creates a new typed series.
func NewSeries[T any](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewNullableSeries creates a typed series where valid[i] == false marks a
// missing cell.
func NewNullableSeries[T any](name string, values []T, valid []bool, mem memory.Allocator) (ISeries, error) {
	return series.NewNullable(name, values, valid, mem)
}

// NewDataset creates a new Dataset from ISeries. The Dataset owns the series.
func NewDataset(series ...ISeries) *Dataset {
	internalSeries := make([]dataset.ISeries, len(series))
	for i, s := range series {
		internalSeries[i] = s
	}
	return &Dataset{ds: dataset.New(internalSeries...)}
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return fio.DefaultCSVOptions()
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return fio.DefaultParquetOptions()
}

// ReadCSV reads a dataset from CSV.
func ReadCSV(r io.Reader, opts CSVOptions, mem memory.Allocator) (*Dataset, error) {
	ds, err := fio.NewCSVReader(r, opts, mem).Read()
	if err != nil {
		return nil, err
	}
	return &Dataset{ds: ds}, nil
}

// ReadParquet reads a dataset from Parquet.
func ReadParquet(r io.Reader, opts ParquetOptions, mem memory.Allocator) (*Dataset, error) {
	ds, err := fio.NewParquetReader(r, opts, mem).Read()
	if err != nil {
		return nil, err
	}
	return &Dataset{ds: ds}, nil
}

// WriteCSV writes a feature matrix as CSV.
func WriteCSV(w io.Writer, m *FeatureMatrix, opts CSVOptions) error {
	return fio.NewCSVWriter(w, opts).Write(m)
}

// WriteParquet writes a feature matrix as Parquet.
func WriteParquet(w io.Writer, m *FeatureMatrix, opts ParquetOptions) error {
	return fio.NewParquetWriter(w, opts).Write(m)
}

// Dataset methods

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	return d.ds.Columns()
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return d.ds.Len()
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	return d.ds.Width()
}

// Column returns the named column.
func (d *Dataset) Column(name string) (ISeries, bool) {
	return d.ds.Column(name)
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	return d.ds.HasColumn(name)
}

// Features returns the column names excluding the ID and target columns.
func (d *Dataset) Features() []string {
	return d.ds.Features()
}

// IDColumn returns the row identifier column, "" when unset.
func (d *Dataset) IDColumn() string {
	return d.ds.IDColumn()
}

// TargetColumn returns the target column, "" when unset.
func (d *Dataset) TargetColumn() string {
	return d.ds.TargetColumn()
}

// WithID returns a view using name as the row identifier.
func (d *Dataset) WithID(name string) (*Dataset, error) {
	ds, err := d.ds.WithID(name)
	if err != nil {
		return nil, err
	}
	return &Dataset{ds: ds}, nil
}

// WithTarget returns a view using name as the binary target.
func (d *Dataset) WithTarget(name string) (*Dataset, error) {
	ds, err := d.ds.WithTarget(name)
	if err != nil {
		return nil, err
	}
	return &Dataset{ds: ds}, nil
}

// Select returns a view with only the named columns, in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	ds, err := d.ds.Select(names...)
	if err != nil {
		return nil, err
	}
	return &Dataset{ds: ds}, nil
}

// Drop returns a view without the named columns.
func (d *Dataset) Drop(names ...string) *Dataset {
	return &Dataset{ds: d.ds.Drop(names...)}
}

// String returns a string representation of the Dataset.
func (d *Dataset) String() string {
	return d.ds.String()
}

// Release releases the memory owned by the Dataset.
func (d *Dataset) Release() {
	d.ds.Release()
}

// DefaultClassifyOptions returns a prefix length of 3 and drops columns
// without a type tag.
func DefaultClassifyOptions() ClassifyOptions {
	return features.DefaultOptions()
}

// Classify groups the feature columns of d by type, preserving column order.
func Classify(d *Dataset, opts ClassifyOptions) (Groups, error) {
	return features.Classify(d.ds.Features(), opts)
}

// Resample upsamples the minority class of d to the given share of the
// output rows, drawing with a generator seeded by seed. A zero ratio
// returns d itself.
func Resample(d *Dataset, ratio float64, seed uint64) (*Dataset, error) {
	out, err := resample.Upsample(d.ds, resample.Options{Ratio: ratio, Seed: seed})
	if err != nil {
		return nil, err
	}
	if out == d.ds {
		return d, nil
	}
	return &Dataset{ds: out}, nil
}

// Union is the public type for the combined per-type pipelines.
type Union struct {
	u *union.Union
}

// UnionOptions controls how a Union runs.
type UnionOptions struct {
	Parallel bool
	Workers  int
	Logger   *zap.Logger
	Metrics  *MetricsCollector
}

// DefaultPipelineOptions returns the pipeline defaults.
func DefaultPipelineOptions() PipelineOptions {
	return transform.DefaultOptions()
}

// NewUnion builds the four per-type pipelines for groups.
func NewUnion(groups Groups, opts PipelineOptions, uopts UnionOptions) *Union {
	return &Union{u: union.New(transform.BuildPipelines(groups, opts), union.Options{
		Parallel: uopts.Parallel,
		Workers:  uopts.Workers,
		Logger:   uopts.Logger,
		Metrics:  uopts.Metrics,
	})}
}

// FitTransform fits every pipeline on d and returns the feature matrix.
func (u *Union) FitTransform(d *Dataset) (*FeatureMatrix, error) {
	return u.u.FitTransform(d.ds)
}

// Transform applies the fitted pipelines to new data with the same schema.
func (u *Union) Transform(d *Dataset) (*FeatureMatrix, error) {
	return u.u.Transform(d.ds)
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return config.NewConfig()
}

// Prepare runs the whole flow on d: optional upsampling, classification,
// then the union fit. The returned Union can transform new data with the
// same schema. A nil logger discards logs.
func Prepare(d *Dataset, cfg Config, logger *zap.Logger) (*FeatureMatrix, *Union, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	input, err := Resample(d, cfg.UpsampleRatio, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}
	if input != d {
		defer input.Release()
		logger.Info("dataset upsampled", zap.Int("rows_in", d.Len()), zap.Int("rows_out", input.Len()))
	}

	var metrics *MetricsCollector
	if cfg.MetricsCollection {
		metrics = monitoring.NewMetricsCollector(true)
	}

	u, _, err := union.Build(input.ds, cfg, logger, metrics)
	if err != nil {
		return nil, nil, err
	}
	m, err := u.FitTransform(input.ds)
	if err != nil {
		return nil, nil, err
	}
	if metrics != nil {
		metrics.Log(logger, 5)
	}
	return m, &Union{u: u}, nil
}
