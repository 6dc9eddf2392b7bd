package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/featurize/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.PipelineError
		expected string
	}{
		{
			name: "Error with column and rows",
			err: &errors.PipelineError{
				Kind:    errors.KindImputation,
				Op:      "impute_median",
				Column:  "x1_bin",
				Rows:    6,
				Message: "column has no non-missing value to impute from",
			},
			expected: "ImputationError: impute_median failed on column 'x1_bin' (6 rows): " +
				"column has no non-missing value to impute from",
		},
		{
			name: "Error without column",
			err: &errors.PipelineError{
				Kind:    errors.KindInvalidInput,
				Op:      "resample",
				Rows:    -1,
				Message: "ratio must be in [0, 1)",
			},
			expected: "InvalidInputError: resample failed: ratio must be in [0, 1)",
		},
		{
			name: "Error with hint",
			err: &errors.PipelineError{
				Kind:    errors.KindSchema,
				Op:      "select",
				Column:  "abcnum",
				Rows:    -1,
				Message: "column does not exist",
				Hint:    "available columns: [id]",
			},
			expected: "SchemaError: select failed on column 'abcnum': column does not exist. " +
				"Hint: available columns: [id]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.NewInternalError("write_parquet", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "underlying error")
}

func TestPipelineError_IsKind(t *testing.T) {
	err := errors.NewImputationError("impute_mean", "x2_num", 4)
	wrapped := fmt.Errorf("num pipeline: %w", err)

	assert.ErrorIs(t, wrapped, errors.ErrImputation)
	assert.NotErrorIs(t, wrapped, errors.ErrSchema)
	assert.NotErrorIs(t, wrapped, errors.ErrDegenerateColumn)
}

func TestPipelineError_IsExact(t *testing.T) {
	err1 := errors.NewSchemaError("classify", "ab", "column name does not parse")
	err2 := errors.NewSchemaError("classify", "ab", "column name does not parse")
	err3 := errors.NewSchemaError("select", "ab", "column name does not parse")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "SchemaError", errors.KindSchema.String())
	assert.Equal(t, "ImputationError", errors.KindImputation.String())
	assert.Equal(t, "DegenerateColumnError", errors.KindDegenerateColumn.String())
	assert.Equal(t, "RowCountMismatchError", errors.KindRowCountMismatch.String())
	assert.Equal(t, "EncodingError", errors.KindEncoding.String())
	assert.Equal(t, "unknown_kind(99)", errors.Kind(99).String())
}

func TestNewColumnNotFoundError(t *testing.T) {
	err := errors.NewColumnNotFoundError("select", "missing", []string{"id", "x1_bin"})

	assert.Equal(t, errors.KindSchema, err.Kind)
	assert.Equal(t, "missing", err.Column)
	assert.Equal(t, "available columns: [id, x1_bin]", err.Hint)

	bare := errors.NewColumnNotFoundError("select", "missing", nil)
	assert.Empty(t, bare.Hint)
}

func TestNewRowCountMismatchError(t *testing.T) {
	err := errors.NewRowCountMismatchError("union", "txtcat", 6, 5)

	assert.Equal(t, 5, err.Rows)
	assert.Equal(t, "expected 6 rows, got 5", err.Message)
	assert.ErrorIs(t, err, errors.ErrRowCountMismatch)
}

func TestWithHintAndRowsCopy(t *testing.T) {
	base := errors.NewEncodingError("encode_dummy", "abctxtcat", "too many categories")
	hinted := base.WithHint("raise max_categories").WithRows(10)

	assert.Empty(t, base.Hint)
	assert.Equal(t, -1, base.Rows)
	assert.Equal(t, "raise max_categories", hinted.Hint)
	assert.Equal(t, 10, hinted.Rows)
}
