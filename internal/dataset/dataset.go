// Package dataset provides the row-indexed, named-column table the feature
// engine consumes. A Dataset keeps a stable column order, an optional unique
// row identifier column and an optional binary target column.
package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/series"
	"github.com/paveg/featurize/internal/validation"
)

// Dataset represents a table of data with typed columns
type Dataset struct {
	columns      map[string]ISeries
	order        []string // Maintains column order
	idColumn     string
	targetColumn string
	owned        bool // views share columns with their root and never release them
}

// New creates a new Dataset from a slice of ISeries. The Dataset owns the series.
func New(series ...ISeries) *Dataset {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, dup := columns[name]; !dup {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &Dataset{
		columns: columns,
		order:   order,
		owned:   true,
	}
}

// NewWithRoles creates an owning Dataset with the given ID and target
// columns; an empty name leaves that role unset. The series are released if
// a role column is missing.
func NewWithRoles(idColumn, targetColumn string, series ...ISeries) (*Dataset, error) {
	ds := New(series...)
	roles := []struct{ op, name string }{{"with_id", idColumn}, {"with_target", targetColumn}}
	for _, role := range roles {
		if role.name != "" && !ds.HasColumn(role.name) {
			ds.Release()
			return nil, errors.NewColumnNotFoundError(role.op, role.name, ds.order)
		}
	}
	ds.idColumn = idColumn
	ds.targetColumn = targetColumn
	return ds, nil
}

// view returns a non-owning copy restricted to names, keeping the role columns.
func (ds *Dataset) view(names []string) *Dataset {
	columns := make(map[string]ISeries, len(names))
	order := make([]string, 0, len(names))
	for _, name := range names {
		if s, exists := ds.columns[name]; exists {
			columns[name] = s
			order = append(order, name)
		}
	}
	v := &Dataset{columns: columns, order: order}
	if _, ok := columns[ds.idColumn]; ok {
		v.idColumn = ds.idColumn
	}
	if _, ok := columns[ds.targetColumn]; ok {
		v.targetColumn = ds.targetColumn
	}
	return v
}

// Columns returns the names of all columns in order
func (ds *Dataset) Columns() []string {
	if len(ds.order) == 0 {
		return []string{}
	}
	return append([]string(nil), ds.order...)
}

// Len returns the number of rows
func (ds *Dataset) Len() int {
	if len(ds.order) == 0 {
		return 0
	}
	return ds.columns[ds.order[0]].Len()
}

// Width returns the number of columns
func (ds *Dataset) Width() int {
	return len(ds.order)
}

// Column returns the series for the given column name
func (ds *Dataset) Column(name string) (ISeries, bool) {
	s, exists := ds.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (ds *Dataset) HasColumn(name string) bool {
	_, exists := ds.columns[name]
	return exists
}

// IDColumn returns the name of the row identifier column, "" when unset.
func (ds *Dataset) IDColumn() string {
	return ds.idColumn
}

// TargetColumn returns the name of the target column, "" when unset.
func (ds *Dataset) TargetColumn() string {
	return ds.targetColumn
}

// WithID returns a view that designates name as the unique row identifier.
func (ds *Dataset) WithID(name string) (*Dataset, error) {
	if name != "" && !ds.HasColumn(name) {
		return nil, errors.NewColumnNotFoundError("with_id", name, ds.order)
	}
	v := ds.view(ds.order)
	v.idColumn = name
	return v, nil
}

// WithTarget returns a view that designates name as the binary target column.
func (ds *Dataset) WithTarget(name string) (*Dataset, error) {
	if name != "" && !ds.HasColumn(name) {
		return nil, errors.NewColumnNotFoundError("with_target", name, ds.order)
	}
	v := ds.view(ds.order)
	v.targetColumn = name
	return v, nil
}

// Features returns the column names in order, excluding the ID and target columns.
func (ds *Dataset) Features() []string {
	names := make([]string, 0, len(ds.order))
	for _, name := range ds.order {
		if name == ds.idColumn || name == ds.targetColumn {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Select returns a view with only the specified columns, in the given order.
// It fails with a SchemaError when a requested column is absent.
func (ds *Dataset) Select(names ...string) (*Dataset, error) {
	if err := validation.ValidateColumns(ds, "select", names...); err != nil {
		return nil, err
	}
	return ds.view(names), nil
}

// Drop returns a view without the specified columns
func (ds *Dataset) Drop(names ...string) *Dataset {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	kept := make([]string, 0, len(ds.order))
	for _, name := range ds.order {
		if !dropSet[name] {
			kept = append(kept, name)
		}
	}
	return ds.view(kept)
}

// Target returns the target column as 0/1 values. Missing or non-binary
// values fail with a SchemaError.
func (ds *Dataset) Target() ([]int, error) {
	if ds.targetColumn == "" {
		return nil, errors.NewSchemaError("target", "", "dataset has no target column")
	}
	s := ds.columns[ds.targetColumn]
	arr := s.Array()
	defer arr.Release()

	labels := make([]int, arr.Len())
	for i := range labels {
		if arr.IsNull(i) {
			return nil, errors.NewSchemaError("target", ds.targetColumn,
				fmt.Sprintf("missing target value at row %d", i)).WithRows(arr.Len())
		}
		var v float64
		switch typed := arr.(type) {
		case *array.Int64:
			v = float64(typed.Value(i))
		case *array.Float64:
			v = typed.Value(i)
		case *array.Boolean:
			if typed.Value(i) {
				v = 1
			}
		default:
			return nil, errors.NewSchemaError("target", ds.targetColumn,
				fmt.Sprintf("unsupported target type %s", arr.DataType()))
		}
		switch {
		case v == 0:
			labels[i] = 0
		case v == 1:
			labels[i] = 1
		default:
			return nil, errors.NewSchemaError("target", ds.targetColumn,
				fmt.Sprintf("target value %v at row %d is not 0 or 1", v, i)).WithRows(arr.Len())
		}
	}
	return labels, nil
}

// Take returns a new Dataset holding the rows at the given indices, in that
// order. Indices may repeat. Missing values are preserved.
func (ds *Dataset) Take(indices []int) (*Dataset, error) {
	length := ds.Len()
	for _, idx := range indices {
		if err := validation.ValidateIndex(idx, length, "take"); err != nil {
			return nil, err
		}
	}

	mem := memory.NewGoAllocator()
	taken := make([]ISeries, 0, len(ds.order))
	for _, name := range ds.order {
		s, err := takeSeries(ds.columns[name], indices, mem)
		if err != nil {
			for _, done := range taken {
				done.Release()
			}
			return nil, err
		}
		taken = append(taken, s)
	}

	out := New(taken...)
	out.idColumn = ds.idColumn
	out.targetColumn = ds.targetColumn
	return out, nil
}

// takeSeries gathers rows from a series into an independent copy
func takeSeries(s ISeries, indices []int, mem memory.Allocator) (ISeries, error) {
	arr := s.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Int64:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Float64:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Boolean:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	default:
		return nil, errors.NewSchemaError("take", s.Name(),
			fmt.Sprintf("unsupported column type %s", arr.DataType()))
	}
}

// takeTyped is a generic helper for gathering typed values with their validity
func takeTyped[T any](
	name string, arr arrow.Array, indices []int, mem memory.Allocator, getValue func(int) T,
) (ISeries, error) {
	values := make([]T, len(indices))
	valid := make([]bool, len(indices))
	for i, idx := range indices {
		if arr.IsNull(idx) {
			continue
		}
		values[i] = getValue(idx)
		valid[i] = true
	}
	return series.NewNullable(name, values, valid, mem)
}

// Float64s returns the named numeric column as float64 values with NaN for
// missing slots. Text columns fail with a SchemaError.
func (ds *Dataset) Float64s(name string) ([]float64, error) {
	s, ok := ds.columns[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("float64s", name, ds.order)
	}
	arr := s.Array()
	defer arr.Release()

	out := make([]float64, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		switch typed := arr.(type) {
		case *array.Int64:
			out[i] = float64(typed.Value(i))
		case *array.Float64:
			out[i] = typed.Value(i)
		case *array.Boolean:
			if typed.Value(i) {
				out[i] = 1
			}
		default:
			return nil, errors.NewSchemaError("float64s", name,
				fmt.Sprintf("column of type %s is not numeric", arr.DataType()))
		}
	}
	return out, nil
}

// String returns a string representation of the Dataset
func (ds *Dataset) String() string {
	if len(ds.order) == 0 {
		return "Dataset[empty]"
	}

	parts := []string{fmt.Sprintf("Dataset[%dx%d]", ds.Len(), ds.Width())}
	for _, name := range ds.order {
		role := ""
		switch name {
		case ds.idColumn:
			role = " (id)"
		case ds.targetColumn:
			role = " (target)"
		}
		parts = append(parts, fmt.Sprintf("  %s: %s%s", name, ds.columns[name].DataType().String(), role))
	}
	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory owned by this Dataset.
// Views created by Select, Drop, WithID and WithTarget share their root's
// columns and must not outlive it; releasing a view is a no-op.
func (ds *Dataset) Release() {
	if !ds.owned {
		return
	}
	for _, s := range ds.columns {
		s.Release()
	}
	ds.owned = false
}
