// Package errors provides the error kinds raised while turning a dataset into a
// feature matrix. Every failure carries the stage that raised it, the column it
// concerns and the row count seen at that point, so a failed run can be
// diagnosed without re-running it.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a PipelineError.
type Kind int

const (
	// KindSchema reports a missing column or a column name that does not parse.
	KindSchema Kind = iota + 1
	// KindImputation reports a column with no value to impute from.
	KindImputation
	// KindDegenerateColumn reports a column that cannot be standardized.
	KindDegenerateColumn
	// KindRowCountMismatch reports pipelines that disagree on row count.
	KindRowCountMismatch
	// KindEncoding reports a categorical column that cannot be encoded.
	KindEncoding
	// KindInvalidInput reports an invalid option or argument.
	KindInvalidInput
	// KindInternal reports an unexpected failure from a dependency.
	KindInternal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "SchemaError"
	case KindImputation:
		return "ImputationError"
	case KindDegenerateColumn:
		return "DegenerateColumnError"
	case KindRowCountMismatch:
		return "RowCountMismatchError"
	case KindEncoding:
		return "EncodingError"
	case KindInvalidInput:
		return "InvalidInputError"
	case KindInternal:
		return "InternalError"
	default:
		return fmt.Sprintf("unknown_kind(%d)", int(k))
	}
}

// PipelineError is the single error type returned by the feature engine.
type PipelineError struct {
	Kind    Kind   // Error kind
	Op      string // Stage or operation name (e.g., "impute_median", "union")
	Column  string // Column name if applicable
	Rows    int    // Row count seen by the stage, -1 when unknown
	Message string // Human-readable error description
	Hint    string // Optional remediation hint
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(": ")
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(" failed")
	} else {
		sb.WriteString("operation failed")
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, " on column '%s'", e.Column)
	}
	if e.Rows >= 0 {
		fmt.Fprintf(&sb, " (%d rows)", e.Rows)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	if e.Hint != "" {
		sb.WriteString(". Hint: ")
		sb.WriteString(e.Hint)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind (such as ErrSchema) matches any error of that kind.
func (e *PipelineError) Is(target error) bool {
	pe, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	if pe.Op == "" && pe.Column == "" && pe.Message == "" {
		return e.Kind == pe.Kind
	}
	return e.Kind == pe.Kind && e.Op == pe.Op && e.Column == pe.Column && e.Message == pe.Message
}

// WithHint returns a copy of the error carrying a remediation hint.
func (e *PipelineError) WithHint(hint string) *PipelineError {
	enhanced := *e
	enhanced.Hint = hint
	return &enhanced
}

// WithRows returns a copy of the error carrying the row count.
func (e *PipelineError) WithRows(rows int) *PipelineError {
	enhanced := *e
	enhanced.Rows = rows
	return &enhanced
}

// Kind sentinels for errors.Is
var (
	ErrSchema           = &PipelineError{Kind: KindSchema}
	ErrImputation       = &PipelineError{Kind: KindImputation}
	ErrDegenerateColumn = &PipelineError{Kind: KindDegenerateColumn}
	ErrRowCountMismatch = &PipelineError{Kind: KindRowCountMismatch}
	ErrEncoding         = &PipelineError{Kind: KindEncoding}
	ErrInvalidInput     = &PipelineError{Kind: KindInvalidInput}
	ErrInternal         = &PipelineError{Kind: KindInternal}
)

// NewColumnNotFoundError creates a SchemaError for a requested column that is absent.
func NewColumnNotFoundError(op, column string, available []string) *PipelineError {
	err := &PipelineError{
		Kind:    KindSchema,
		Op:      op,
		Column:  column,
		Rows:    -1,
		Message: "column does not exist",
	}
	if len(available) > 0 {
		err.Hint = fmt.Sprintf("available columns: [%s]", strings.Join(available, ", "))
	}
	return err
}

// NewSchemaError creates a SchemaError with a custom message.
func NewSchemaError(op, column, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindSchema,
		Op:      op,
		Column:  column,
		Rows:    -1,
		Message: message,
	}
}

// NewImputationError creates an error for a column with no value to impute from.
func NewImputationError(op, column string, rows int) *PipelineError {
	return &PipelineError{
		Kind:    KindImputation,
		Op:      op,
		Column:  column,
		Rows:    rows,
		Message: "column has no non-missing value to impute from",
	}
}

// NewDegenerateColumnError creates an error for a zero-variance column that cannot be scaled.
func NewDegenerateColumnError(op, column string, rows int) *PipelineError {
	return &PipelineError{
		Kind:    KindDegenerateColumn,
		Op:      op,
		Column:  column,
		Rows:    rows,
		Message: "column has zero standard deviation and no variance filter removes it",
		Hint:    "enable the variance filter or drop the constant column",
	}
}

// NewRowCountMismatchError creates an error for outputs whose row counts disagree.
func NewRowCountMismatchError(op, column string, expected, actual int) *PipelineError {
	return &PipelineError{
		Kind:    KindRowCountMismatch,
		Op:      op,
		Column:  column,
		Rows:    actual,
		Message: fmt.Sprintf("expected %d rows, got %d", expected, actual),
	}
}

// NewEncodingError creates an error for a categorical column that cannot be encoded.
func NewEncodingError(op, column, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindEncoding,
		Op:      op,
		Column:  column,
		Rows:    -1,
		Message: message,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindInvalidInput,
		Op:      op,
		Rows:    -1,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindInternal,
		Op:      op,
		Rows:    -1,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
