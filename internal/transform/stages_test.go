package transform_test

import (
	"math"
	"testing"

	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/frame"
	"github.com/paveg/featurize/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func mustBlock(t *testing.T, rows int, cols ...frame.Column) *frame.Block {
	t.Helper()
	b, err := frame.NewBlock(rows, cols...)
	require.NoError(t, err)
	return b
}

func fitTransform(t *testing.T, s transform.Stage, b *frame.Block) *frame.Block {
	t.Helper()
	_, out, err := transform.FitTransform(s, b)
	require.NoError(t, err)
	return out
}

func TestSelector(t *testing.T) {
	b := mustBlock(t, 2,
		frame.NewNumeric("a", []float64{1, 2}),
		frame.NewNumeric("b", []float64{3, 4}),
		frame.NewNumeric("c", []float64{5, 6}),
	)

	t.Run("projects in requested order", func(t *testing.T) {
		out := fitTransform(t, transform.NewSelector("c", "a"), b)
		assert.Equal(t, []string{"c", "a"}, out.Names())
		assert.Equal(t, 2, out.Rows)
	})

	t.Run("empty selection keeps rows", func(t *testing.T) {
		out := fitTransform(t, transform.NewSelector(), b)
		assert.Equal(t, 0, out.Width())
		assert.Equal(t, 2, out.Rows)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := transform.NewSelector("zzz").Fit(b)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrSchema)
	})
}

func TestImputer(t *testing.T) {
	tests := []struct {
		name     string
		strategy transform.Strategy
		input    []float64
		expected []float64
	}{
		{"median odd", transform.Median, []float64{1, 0, nan, 1, 0, 1}, []float64{1, 0, 1, 1, 0, 1}},
		{"median even averages", transform.Median, []float64{1, nan, 2, 3, 4}, []float64{1, 2.5, 2, 3, 4}},
		{"mean", transform.Mean, []float64{1, 2, nan, 4, 5, 100}, []float64{1, 2, 22.4, 4, 5, 100}},
		{"most frequent ties go first", transform.MostFrequent, []float64{3, 7, nan, 7, 3}, []float64{3, 7, 3, 7, 3}},
		{"nothing missing", transform.Mean, []float64{1, 2}, []float64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBlock(t, len(tt.input), frame.NewNumeric("x", tt.input))
			out := fitTransform(t, transform.NewImputer(tt.strategy), b)
			assert.InDeltaSlice(t, tt.expected, out.Columns[0].Floats, 1e-9)
			assert.Equal(t, 0, out.Columns[0].MissingCount(out.Rows))
		})
	}
}

func TestImputer_Text(t *testing.T) {
	b := mustBlock(t, 5, frame.NewCategorical("x3_txtcat",
		[]string{"a", "b", "a", "c", ""},
		[]bool{true, true, true, true, false}))

	out := fitTransform(t, transform.NewImputer(transform.MostFrequent), b)
	assert.Equal(t, []string{"a", "b", "a", "c", "a"}, out.Columns[0].Texts)
	assert.Equal(t, 0, out.Columns[0].MissingCount(out.Rows))

	t.Run("median rejects text", func(t *testing.T) {
		_, err := transform.NewImputer(transform.Median).Fit(b)
		assert.ErrorIs(t, err, errors.ErrSchema)
	})
}

func TestImputer_AllMissing(t *testing.T) {
	b := mustBlock(t, 3, frame.NewNumeric("x", []float64{nan, nan, nan}))
	_, err := transform.NewImputer(transform.Mean).Fit(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrImputation)
}

func TestImputer_FittedStatisticsReused(t *testing.T) {
	train := mustBlock(t, 3, frame.NewNumeric("x", []float64{2, 4, nan}))
	fitted, err := transform.NewImputer(transform.Mean).Fit(train)
	require.NoError(t, err)

	test := mustBlock(t, 2, frame.NewNumeric("x", []float64{nan, 10}))
	out, err := fitted.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 10}, out.Columns[0].Floats)
}

func TestImputeColumn(t *testing.T) {
	input := []float64{1, nan, 3}
	b := mustBlock(t, 3, frame.NewNumeric("x", input))

	col, err := transform.ImputeColumn(b, "x", transform.Mean)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, col.Floats)
	assert.True(t, math.IsNaN(b.Columns[0].Floats[1]), "input must not be modified")

	_, err = transform.ImputeColumn(b, "nope", transform.Mean)
	assert.ErrorIs(t, err, errors.ErrSchema)
}

func TestLabelEncoder(t *testing.T) {
	t.Run("numeric codes in numeric order", func(t *testing.T) {
		b := mustBlock(t, 5, frame.NewNumeric("c", []float64{10, 2, 10, 7, nan}))
		out := fitTransform(t, &transform.LabelEncoder{}, b)
		got := out.Columns[0].Floats
		assert.Equal(t, []float64{2, 0, 2, 1}, got[:4])
		assert.True(t, math.IsNaN(got[4]))
	})

	t.Run("text codes in lexicographic order", func(t *testing.T) {
		b := mustBlock(t, 3, frame.NewCategorical("c", []string{"pear", "apple", "fig"}, nil))
		out := fitTransform(t, &transform.LabelEncoder{}, b)
		assert.Equal(t, []float64{2, 0, 1}, out.Columns[0].Floats)
	})

	t.Run("as text carries levels", func(t *testing.T) {
		b := mustBlock(t, 4, frame.NewNumeric("c", []float64{3, 1, 3, 2}))
		out := fitTransform(t, &transform.LabelEncoder{AsText: true}, b)
		col := out.Columns[0]
		assert.Equal(t, frame.Categorical, col.Kind)
		assert.Equal(t, []string{"2", "0", "2", "1"}, col.Texts)
		assert.Equal(t, []string{"0", "1", "2"}, col.Levels)
	})

	t.Run("as text levels follow code order past ten", func(t *testing.T) {
		values := make([]float64, 11)
		for i := range values {
			values[i] = float64(i)
		}
		b := mustBlock(t, 11, frame.NewNumeric("c", values))
		out := fitTransform(t, &transform.LabelEncoder{AsText: true}, b)
		levels := out.Columns[0].Levels
		require.Len(t, levels, 11)
		assert.Equal(t, "2", levels[2])
		assert.Equal(t, "10", levels[10])
	})

	t.Run("unseen value at transform", func(t *testing.T) {
		fitted, err := (&transform.LabelEncoder{}).Fit(mustBlock(t, 2, frame.NewNumeric("c", []float64{1, 2})))
		require.NoError(t, err)
		_, err = fitted.Transform(mustBlock(t, 1, frame.NewNumeric("c", []float64{5})))
		assert.ErrorIs(t, err, errors.ErrEncoding)
	})

	t.Run("cardinality limit", func(t *testing.T) {
		b := mustBlock(t, 3, frame.NewNumeric("c", []float64{1, 2, 3}))
		_, err := (&transform.LabelEncoder{MaxCategories: 2}).Fit(b)
		assert.ErrorIs(t, err, errors.ErrEncoding)
	})
}

func TestDummyEncoder(t *testing.T) {
	b := mustBlock(t, 5, frame.NewCategorical("x3_txtcat",
		[]string{"a", "b", "a", "c", ""},
		[]bool{true, true, true, true, false}))

	tests := []struct {
		name      string
		dropFirst bool
		columns   []string
		values    [][]float64
	}{
		{
			name:      "drop first",
			dropFirst: true,
			columns:   []string{"x3_txtcat_b", "x3_txtcat_c"},
			values: [][]float64{
				{0, 1, 0, 0, 0},
				{0, 0, 0, 1, 0},
			},
		},
		{
			name:    "all levels",
			columns: []string{"x3_txtcat_a", "x3_txtcat_b", "x3_txtcat_c"},
			values: [][]float64{
				{1, 0, 1, 0, 0},
				{0, 1, 0, 0, 0},
				{0, 0, 0, 1, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := fitTransform(t, &transform.DummyEncoder{DropFirst: tt.dropFirst}, b)
			assert.Equal(t, tt.columns, out.Names())
			for i, want := range tt.values {
				assert.Equal(t, want, out.Columns[i].Floats, out.Columns[i].Name)
				assert.Equal(t, []string{"x3_txtcat"}, out.Columns[i].Origin)
			}
		})
	}
}

func TestDummyEncoder_SparseMatchesDense(t *testing.T) {
	b := mustBlock(t, 6, frame.NewCategorical("c", []string{"x", "y", "z", "y", "x", "z"}, nil))

	dense := fitTransform(t, &transform.DummyEncoder{}, b)
	sparse := fitTransform(t, &transform.DummyEncoder{Sparse: true}, b)

	require.Equal(t, dense.Names(), sparse.Names())
	for i := range dense.Columns {
		assert.Equal(t, frame.Indicator, sparse.Columns[i].Kind)
		densified, err := sparse.Columns[i].Float64s(sparse.Rows)
		require.NoError(t, err)
		assert.Equal(t, dense.Columns[i].Floats, densified)
	}
}

func TestDummyEncoder_UnseenCategoryIsAllZeros(t *testing.T) {
	fitted, err := (&transform.DummyEncoder{}).Fit(mustBlock(t, 2, frame.NewCategorical("c", []string{"a", "b"}, nil)))
	require.NoError(t, err)

	out, err := fitted.Transform(mustBlock(t, 2, frame.NewCategorical("c", []string{"q", "b"}, nil)))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, out.Columns[0].Floats)
	assert.Equal(t, []float64{0, 1}, out.Columns[1].Floats)
}

func TestDummyEncoder_RejectsNumeric(t *testing.T) {
	_, err := (&transform.DummyEncoder{}).Fit(mustBlock(t, 1, frame.NewNumeric("c", []float64{1})))
	assert.ErrorIs(t, err, errors.ErrEncoding)
}

func TestPolynomial(t *testing.T) {
	b := mustBlock(t, 2,
		frame.NewNumeric("a", []float64{1, 2}),
		frame.NewNumeric("b", []float64{3, 4}),
	)
	out := fitTransform(t, &transform.Polynomial{Degree: 2}, b)

	assert.Equal(t, []string{"a", "b", "a^2", "a*b", "b^2"}, out.Names())
	assert.Equal(t, []float64{1, 4}, out.Columns[2].Floats)
	assert.Equal(t, []float64{3, 8}, out.Columns[3].Floats)
	assert.Equal(t, []float64{9, 16}, out.Columns[4].Floats)
	assert.Equal(t, []string{"a", "b"}, out.Columns[3].Origin)

	t.Run("column count", func(t *testing.T) {
		for n := 0; n <= 5; n++ {
			cols := make([]frame.Column, n)
			for i := range cols {
				cols[i] = frame.NewNumeric(string(rune('a'+i)), []float64{1})
			}
			out := fitTransform(t, &transform.Polynomial{Degree: 2}, mustBlock(t, 1, cols...))
			assert.Equal(t, n+n*(n+1)/2, out.Width())
		}
	})

	t.Run("degree 3 rejected", func(t *testing.T) {
		_, err := (&transform.Polynomial{Degree: 3}).Fit(b)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestScaler(t *testing.T) {
	b := mustBlock(t, 4, frame.NewNumeric("x", []float64{1, 2, 3, 4}))
	out := fitTransform(t, &transform.Scaler{}, b)

	values := out.Columns[0].Floats
	var sum, sq float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, math.Sqrt(sq/float64(len(values))), 1e-9)
}

func TestScaler_Degenerate(t *testing.T) {
	b := mustBlock(t, 3, frame.NewNumeric("x", []float64{0.1, 0.1, 0.1}))

	_, err := (&transform.Scaler{}).Fit(b)
	assert.ErrorIs(t, err, errors.ErrDegenerateColumn)

	out := fitTransform(t, &transform.Scaler{AllowDegenerate: true}, b)
	assert.Equal(t, []float64{0, 0, 0}, out.Columns[0].Floats)
}

func TestVarianceFilter(t *testing.T) {
	b := mustBlock(t, 4,
		frame.NewNumeric("const", []float64{5, 5, 5, 5}),
		frame.NewNumeric("varies", []float64{0, 1, 0, 1}),
		frame.NewIndicator("rare", []int{2}),
	)

	tests := []struct {
		name      string
		threshold float64
		expected  []string
	}{
		{"zero drops constants", 0, []string{"varies", "rare"}},
		{"threshold between", 0.2, []string{"varies"}},
		{"strictly greater", 0.25, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := fitTransform(t, &transform.VarianceFilter{Threshold: tt.threshold}, b)
			assert.Equal(t, tt.expected, out.Names())
			assert.Equal(t, 4, out.Rows)
		})
	}

	t.Run("kept indicator stays sparse", func(t *testing.T) {
		out := fitTransform(t, &transform.VarianceFilter{}, b)
		assert.Equal(t, frame.Indicator, out.Columns[1].Kind)
	})

	t.Run("negative threshold", func(t *testing.T) {
		_, err := (&transform.VarianceFilter{Threshold: -1}).Fit(b)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestTextCast(t *testing.T) {
	b := mustBlock(t, 4,
		frame.NewNumeric("x3_txtcat", []float64{101, 202, nan, 2.5}),
		frame.NewCategorical("x5_txtcat", []string{"a", "b", "a", "c"}, nil),
		frame.NewIndicator("x6_strcat", []int{0, 2}),
	)

	out := fitTransform(t, transform.TextCast{}, b)
	require.Equal(t, 3, out.Width())

	cast := out.Columns[0]
	assert.Equal(t, frame.Categorical, cast.Kind)
	assert.Equal(t, []string{"101", "202", "", "2.5"}, cast.Texts)
	assert.Equal(t, []bool{true, true, false, true}, cast.Valid)
	assert.Equal(t, []string{"x3_txtcat"}, cast.Origin)

	assert.Equal(t, b.Columns[1], out.Columns[1])
	assert.Equal(t, []string{"1", "0", "1", "0"}, out.Columns[2].Texts)
	assert.True(t, math.IsNaN(b.Columns[0].Floats[2]))
}
