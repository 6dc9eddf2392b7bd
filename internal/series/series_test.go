package series

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	tests := []struct {
		name           string
		columnName     string
		data           interface{}
		expectedLen    int
		expectedValues interface{}
	}{
		{
			name:           "string series",
			columnName:     "abctxtcat",
			data:           []string{"a", "b", "c"},
			expectedLen:    3,
			expectedValues: []string{"a", "b", "c"},
		},
		{
			name:           "int64 series",
			columnName:     "abcbin",
			data:           []int64{1, 0, 1},
			expectedLen:    3,
			expectedValues: []int64{1, 0, 1},
		},
		{
			name:           "float64 series",
			columnName:     "abcnum",
			data:           []float64{85.5, 92.0, 78.3},
			expectedLen:    3,
			expectedValues: []float64{85.5, 92.0, 78.3},
		},
		{
			name:           "bool series",
			columnName:     "active",
			data:           []bool{true, false, true},
			expectedLen:    3,
			expectedValues: []bool{true, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			switch data := tt.data.(type) {
			case []string:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.columnName, s.Name())
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			case []int64:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			case []float64:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			case []bool:
				s := New(tt.columnName, data, mem)
				defer s.Release()
				assert.Equal(t, tt.expectedLen, s.Len())
				assert.Equal(t, tt.expectedValues, s.Values())
			}
		})
	}
}

func TestNewNullable(t *testing.T) {
	mem := memory.NewGoAllocator()

	s, err := NewNullable("abcnum", []float64{1, 0, 3}, []bool{true, false, true}, mem)
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, 1, s.NullCount())
	assert.False(t, s.IsNull(0))
	assert.True(t, s.IsNull(1))
	assert.Equal(t, []float64{1, 0, 3}, s.Values())
	assert.Equal(t, "", s.GetAsString(1))
	assert.Equal(t, "3", s.GetAsString(2))
}

func TestNewNullable_MaskLengthMismatch(t *testing.T) {
	_, err := NewNullable("x", []int64{1, 2}, []bool{true}, nil)
	assert.Error(t, err)
}

func TestSeriesValue(t *testing.T) {
	mem := memory.NewGoAllocator()

	series := New("test", []string{"first", "second", "third"}, mem)
	defer series.Release()

	assert.Equal(t, "first", series.Value(0))
	assert.Equal(t, "third", series.Value(2))

	// Invalid indices return the zero value
	assert.Equal(t, "", series.Value(-1))
	assert.Equal(t, "", series.Value(3))
}

func TestSeriesDataType(t *testing.T) {
	mem := memory.NewGoAllocator()

	str := New("s", []string{"a"}, mem)
	defer str.Release()
	ints := New("i", []int64{1}, mem)
	defer ints.Release()

	assert.Equal(t, "utf8", str.DataType().Name())
	assert.Equal(t, "int64", ints.DataType().Name())
}

func TestSeriesString(t *testing.T) {
	mem := memory.NewGoAllocator()

	series := New("test_column", []string{"a", "b", "c"}, mem)
	defer series.Release()

	str := series.String()
	assert.Contains(t, str, "Series[string]")
	assert.Contains(t, str, "test_column")
	assert.Contains(t, str, "len=3")
}

func TestUnsupportedType(t *testing.T) {
	mem := memory.NewGoAllocator()

	assert.Panics(t, func() {
		New("test", []complex64{1 + 2i, 3 + 4i}, mem)
	})

	_, err := NewSafe("test", []int32{1}, mem)
	assert.Error(t, err)
}
