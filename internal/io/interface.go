// Package io reads raw datasets and writes feature matrices.
//
// Readers build a dataset.Dataset from CSV or Parquet input: the configured
// ID and target columns get their roles, missing cells become Arrow nulls and
// an optional row limit truncates the input. Writers emit a feature matrix as
// CSV or Parquet with one float64 column per feature.
//
// Memory management: readers allocate Arrow buffers from the given allocator;
// callers release the returned dataset with defer ds.Release().
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/featurize/internal/dataset"
)

const (
	// DefaultBatchSize is the default batch size for Parquet writes
	DefaultBatchSize = 1000
)

// DefaultNullValues are the cell values read as missing.
var DefaultNullValues = []string{"", "NA", "NaN", "nan", "null"}

// DatasetReader defines the interface for reading a dataset from a source
type DatasetReader interface {
	Read() (*dataset.Dataset, error)
}

// Matrix is the read-only view of a feature matrix the writers need.
type Matrix interface {
	Rows() int
	Cols() int
	At(i, j int) float64
	Names() []string
}

// MatrixWriter defines the interface for writing a feature matrix
type MatrixWriter interface {
	Write(m Matrix) error
}

// ReadOptions are shared by the dataset readers
type ReadOptions struct {
	// IDColumn names the row identifier; ignored when the column is absent
	IDColumn string
	// TargetColumn names the binary label; ignored when the column is absent
	TargetColumn string
	// RowLimit caps the number of rows read (0 = all)
	RowLimit int
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	ReadOptions
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
	// Header indicates whether the first row contains headers
	Header bool
	// SkipInitialSpace indicates whether to skip initial whitespace
	SkipInitialSpace bool
	// NullValues lists the cell values treated as missing
	NullValues []string
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:        ',',
		Comment:          0,
		Header:           true,
		SkipInitialSpace: false,
		NullValues:       DefaultNullValues,
	}
}

// CSVReader reads CSV data into a Dataset
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions, mem memory.Allocator) *CSVReader {
	return &CSVReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// CSVWriter writes feature matrices to CSV format
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{
		writer:  writer,
		options: options,
	}
}

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	ReadOptions
	// Compression type for Parquet files
	Compression string
	// BatchSize for writing operations
	BatchSize int
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   DefaultBatchSize,
	}
}

// ParquetReader reads Parquet data into a Dataset
type ParquetReader struct {
	reader  io.Reader
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetReader creates a new Parquet reader with the specified options
func NewParquetReader(reader io.Reader, options ParquetOptions, mem memory.Allocator) *ParquetReader {
	return &ParquetReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// ParquetWriter writes feature matrices to Parquet format
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{
		writer:  writer,
		options: options,
	}
}

// assemble builds the dataset and assigns the roles whose columns exist.
func assemble(columns []dataset.ISeries, opts ReadOptions) (*dataset.Dataset, error) {
	id, target := "", ""
	for _, s := range columns {
		switch s.Name() {
		case opts.IDColumn:
			id = s.Name()
		case opts.TargetColumn:
			target = s.Name()
		}
	}
	return dataset.NewWithRoles(id, target, columns...)
}

func releaseAll(columns []dataset.ISeries) {
	for _, s := range columns {
		s.Release()
	}
}
