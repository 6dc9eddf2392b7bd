package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/series"
)

// Read reads Parquet data and returns a Dataset.
func (r *ParquetReader) Read() (*dataset.Dataset, error) {
	// Parquet footers live at the end of the file, so the input is buffered
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.tableToDataset(table)
}

// tableToDataset converts an Arrow table to a Dataset.
func (r *ParquetReader) tableToDataset(table arrow.Table) (*dataset.Dataset, error) {
	rows := int(table.NumRows())
	if r.options.RowLimit > 0 && r.options.RowLimit < rows {
		rows = r.options.RowLimit
	}

	schema := table.Schema()
	names := make([]string, 0, table.NumCols())
	for _, field := range schema.Fields() {
		names = append(names, field.Name)
	}
	if err := checkHeaders(names); err != nil {
		return nil, err
	}

	columns := make([]dataset.ISeries, 0, table.NumCols())
	for i := range int(table.NumCols()) {
		field := schema.Field(i)
		s, err := r.columnToSeries(field.Name, table.Column(i), rows)
		if err != nil {
			releaseAll(columns)
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		columns = append(columns, s)
	}

	ds, err := assemble(columns, r.options.ReadOptions)
	if err != nil {
		return nil, err
	}
	if err := checkUniqueID(ds); err != nil {
		ds.Release()
		return nil, err
	}
	return ds, nil
}

// columnToSeries flattens the column chunks and converts the first rows
// values. Narrow numeric types are widened to int64 and float64.
func (r *ParquetReader) columnToSeries(name string, column *arrow.Column, rows int) (dataset.ISeries, error) {
	chunks := column.Data().Chunks()
	var arr arrow.Array
	switch len(chunks) {
	case 0:
		return emptySeries(name, column.DataType(), r.mem)
	case 1:
		arr = chunks[0]
		arr.Retain()
	default:
		var err error
		arr, err = array.Concatenate(chunks, r.mem)
		if err != nil {
			return nil, fmt.Errorf("concatenating chunks: %w", err)
		}
	}
	defer arr.Release()

	//nolint:exhaustive // Only handling supported types
	switch typed := arr.(type) {
	case *array.Int64:
		return nullable(name, rows, typed, typed.Value, r.mem)
	case *array.Int32:
		return nullable(name, rows, typed, func(i int) int64 { return int64(typed.Value(i)) }, r.mem)
	case *array.Float64:
		return nullable(name, rows, typed, typed.Value, r.mem)
	case *array.Float32:
		return nullable(name, rows, typed, func(i int) float64 { return float64(typed.Value(i)) }, r.mem)
	case *array.String:
		return nullable(name, rows, typed, typed.Value, r.mem)
	case *array.Boolean:
		return nullable(name, rows, typed, typed.Value, r.mem)
	default:
		return nil, fmt.Errorf("unsupported Arrow type: %s", arr.DataType())
	}
}

func nullable[T any](
	name string, rows int, arr arrow.Array, value func(int) T, mem memory.Allocator,
) (dataset.ISeries, error) {
	values := make([]T, rows)
	valid := make([]bool, rows)
	for i := range rows {
		if arr.IsNull(i) {
			continue
		}
		values[i] = value(i)
		valid[i] = true
	}
	return series.NewNullable(name, values, valid, mem)
}

// emptySeries creates an empty series based on Arrow data type.
func emptySeries(name string, dataType arrow.DataType, mem memory.Allocator) (dataset.ISeries, error) {
	//nolint:exhaustive // Only handling supported types
	switch dataType.ID() {
	case arrow.INT64, arrow.INT32:
		return series.NewSafe(name, []int64{}, mem)
	case arrow.FLOAT64, arrow.FLOAT32:
		return series.NewSafe(name, []float64{}, mem)
	case arrow.BOOL:
		return series.NewSafe(name, []bool{}, mem)
	default:
		return series.NewSafe(name, []string{}, mem)
	}
}

// compressionCodec maps a codec name to its Parquet compression.
func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// Write writes the matrix to Parquet format with one float64 column per feature.
func (w *ParquetWriter) Write(m Matrix) error {
	mem := memory.NewGoAllocator()
	table := matrixToTable(m, mem)
	defer table.Release()

	batchSize := w.options.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(w.options.Compression)),
		parquet.WithBatchSize(int64(batchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem))

	writer, err := pqarrow.NewFileWriter(table.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	chunkSize := int64(m.Rows())
	if chunkSize == 0 {
		chunkSize = 1
	}
	if err := writer.WriteTable(table, chunkSize); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// matrixToTable converts the matrix to an Arrow table.
func matrixToTable(m Matrix, mem memory.Allocator) arrow.Table {
	names := m.Names()
	fields := make([]arrow.Field, len(names))
	columns := make([]arrow.Column, len(names))

	builder := array.NewFloat64Builder(mem)
	defer builder.Release()

	for j, name := range names {
		builder.Reserve(m.Rows())
		for i := range m.Rows() {
			builder.Append(m.At(i, j))
		}
		arr := builder.NewArray()

		fields[j] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		arr.Release()
		columns[j] = *arrow.NewColumn(fields[j], chunked)
		chunked.Release()
	}

	return array.NewTable(arrow.NewSchema(fields, nil), columns, int64(m.Rows()))
}
