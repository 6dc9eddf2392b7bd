// Package validation provides reusable input checks shared by the dataset,
// pipeline and union layers. Every failure is reported as a PipelineError.
package validation

import (
	"fmt"

	"github.com/paveg/featurize/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	provider ColumnProvider
	columns  []string
	op       string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(provider ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		provider: provider,
		columns:  columns,
		op:       op,
	}
}

// Validate checks that every column exists
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.provider.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column, v.provider.Columns()).WithRows(v.provider.Len())
		}
	}
	return nil
}

// LengthValidator validates row count agreement
type LengthValidator struct {
	expected int
	actual   int
	op       string
	column   string
}

// NewLengthValidator creates a validator for row count agreement. column names
// the offending column or pipeline and may be empty.
func NewLengthValidator(expected, actual int, op, column string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		column:   column,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		return errors.NewRowCountMismatchError(v.op, v.column, v.expected, v.actual)
	}
	return nil
}

// IndexValidator validates index bounds
type IndexValidator struct {
	index int
	max   int
	op    string
}

// NewIndexValidator creates a validator for index operations
func NewIndexValidator(index, maxIndex int, op string) *IndexValidator {
	return &IndexValidator{
		index: index,
		max:   maxIndex,
		op:    op,
	}
}

// Validate checks if index is within bounds
func (v *IndexValidator) Validate() error {
	if v.index < 0 || v.index >= v.max {
		return errors.NewInvalidInputError(v.op, fmt.Sprintf("index %d out of bounds [0, %d)", v.index, v.max))
	}
	return nil
}

// NotEmptyValidator rejects inputs without rows
type NotEmptyValidator struct {
	provider ColumnProvider
	op       string
}

// NewNotEmptyValidator creates a validator for empty input checks
func NewNotEmptyValidator(provider ColumnProvider, op string) *NotEmptyValidator {
	return &NotEmptyValidator{
		provider: provider,
		op:       op,
	}
}

// Validate checks that the input has at least one row
func (v *NotEmptyValidator) Validate() error {
	if v.provider.Len() == 0 {
		return errors.NewInvalidInputError(v.op, "operation not supported on an empty dataset")
	}
	return nil
}

// ValidateColumns is a convenience function for column validation
func ValidateColumns(provider ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(provider, op, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, column string) error {
	return NewLengthValidator(expected, actual, op, column).Validate()
}

// ValidateIndex is a convenience function for index validation
func ValidateIndex(index, maxIndex int, op string) error {
	return NewIndexValidator(index, maxIndex, op).Validate()
}

// ValidateNotEmpty is a convenience function for empty input validation
func ValidateNotEmpty(provider ColumnProvider, op string) error {
	return NewNotEmptyValidator(provider, op).Validate()
}
