package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paveg/featurize/internal/dataset"
	pipeerrors "github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/series"
)

const (
	// Boolean string constants
	trueStr  = "true"
	falseStr = "false"
)

type columnType int

const (
	stringColumn columnType = iota
	boolColumn
	intColumn
	floatColumn
)

// Read reads CSV data and returns a Dataset
func (r *CSVReader) Read() (*dataset.Dataset, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.ReuseRecord = false

	var headers []string
	if r.options.Header {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			return dataset.New(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV header: %w", err)
		}
		headers = record
	}

	var rows [][]string
	for r.options.RowLimit <= 0 || len(rows) < r.options.RowLimit {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		rows = append(rows, record)
	}

	if headers == nil {
		if len(rows) == 0 {
			return dataset.New(), nil
		}
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
	}
	if err := checkHeaders(headers); err != nil {
		return nil, err
	}

	nulls := make(map[string]bool, len(r.options.NullValues))
	for _, v := range r.options.NullValues {
		nulls[v] = true
	}

	columns := make([]dataset.ISeries, 0, len(headers))
	for i, header := range headers {
		values := make([]string, len(rows))
		valid := make([]bool, len(rows))
		for j, row := range rows {
			if i < len(row) && !nulls[row[i]] {
				values[j] = row[i]
				valid[j] = true
			}
		}
		s, err := r.createSeries(header, values, valid)
		if err != nil {
			releaseAll(columns)
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
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

func checkHeaders(headers []string) error {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if seen[h] {
			return pipeerrors.NewSchemaError("read", h, "duplicate column name")
		}
		seen[h] = true
	}
	return nil
}

// checkUniqueID rejects datasets whose ID column repeats a value.
func checkUniqueID(ds *dataset.Dataset) error {
	if ds.IDColumn() == "" {
		return nil
	}
	col, _ := ds.Column(ds.IDColumn())
	seen := make(map[string]int, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			return pipeerrors.NewSchemaError("read", ds.IDColumn(),
				fmt.Sprintf("missing row identifier at row %d", i)).WithRows(col.Len())
		}
		key := col.GetAsString(i)
		if first, dup := seen[key]; dup {
			return pipeerrors.NewSchemaError("read", ds.IDColumn(),
				fmt.Sprintf("row identifier %s repeats rows %d and %d", key, first, i)).WithRows(col.Len())
		}
		seen[key] = i
	}
	return nil
}

// createSeries creates a series from string data, inferring the appropriate type
func (r *CSVReader) createSeries(name string, values []string, valid []bool) (dataset.ISeries, error) {
	switch inferType(values, valid) {
	case boolColumn:
		data := make([]bool, len(values))
		for i, v := range values {
			data[i] = valid[i] && strings.EqualFold(v, trueStr)
		}
		return series.NewNullable(name, data, valid, r.mem)
	case intColumn:
		data := make([]int64, len(values))
		for i, v := range values {
			if valid[i] {
				data[i], _ = strconv.ParseInt(v, 10, 64)
			}
		}
		return series.NewNullable(name, data, valid, r.mem)
	case floatColumn:
		data := make([]float64, len(values))
		for i, v := range values {
			if valid[i] {
				data[i], _ = strconv.ParseFloat(v, 64)
			}
		}
		return series.NewNullable(name, data, valid, r.mem)
	default:
		return series.NewNullable(name, values, valid, r.mem)
	}
}

// inferType determines the most specific type all present values parse as
func inferType(values []string, valid []bool) columnType {
	canBeInt := true
	canBeFloat := true
	canBeBool := true
	hasValue := false

	for i, value := range values {
		if !valid[i] {
			continue
		}
		hasValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}
		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}
		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
	}

	// all-missing columns read as float so numeric pipelines can report them
	if !hasValue {
		return floatColumn
	}
	if canBeBool {
		return boolColumn
	}
	if canBeInt {
		return intColumn
	}
	if canBeFloat {
		return floatColumn
	}
	return stringColumn
}

// Write writes the matrix to CSV format
func (w *CSVWriter) Write(m Matrix) error {
	csvWriter := csv.NewWriter(w.writer)
	if w.options.Delimiter != 0 {
		csvWriter.Comma = w.options.Delimiter
	}

	if w.options.Header {
		if err := csvWriter.Write(m.Names()); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	row := make([]string, m.Cols())
	for i := 0; i < m.Rows(); i++ {
		for j := range row {
			row[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}
