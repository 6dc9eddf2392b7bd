package transform

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/frame"
	"golang.org/x/exp/constraints"
)

// DefaultMaxCategories bounds the distinct values an encoder accepts per column.
const DefaultMaxCategories = 1000

// sortedDistinct returns the distinct values of values, ascending.
func sortedDistinct[T constraints.Ordered](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func checkCardinality(op, column string, n, limit, rows int) error {
	if limit > 0 && n > limit {
		return errors.NewEncodingError(op, column,
			fmt.Sprintf("%d distinct values exceed the limit of %d", n, limit)).
			WithRows(rows).
			WithHint("raise max_categories or rename the column to a numeric type")
	}
	return nil
}

// LabelEncoder maps each distinct value of a column to a code 0..k-1 in
// ascending sort order: numeric order for numeric columns, lexicographic for
// text. Missing values stay missing.
type LabelEncoder struct {
	// AsText emits the codes as categorical text with ordered levels so a
	// following DummyEncoder treats them as categories.
	AsText bool
	// MaxCategories rejects columns with more distinct values; zero disables the check.
	MaxCategories int
}

// Name implements Stage.
func (e *LabelEncoder) Name() string { return "label_encode" }

type labelMapping struct {
	name    string
	numeric map[float64]int
	text    map[string]int
	size    int
}

type fittedLabelEncoder struct {
	asText   bool
	mappings []labelMapping
}

// Fit implements Stage.
func (e *LabelEncoder) Fit(b *frame.Block) (Fitted, error) {
	mappings := make([]labelMapping, 0, b.Width())
	for _, c := range b.Columns {
		m := labelMapping{name: c.Name}
		if c.Kind == frame.Categorical {
			present := make([]string, 0, len(c.Texts))
			for i, v := range c.Texts {
				if c.Valid[i] {
					present = append(present, v)
				}
			}
			levels := sortedDistinct(present)
			m.text = make(map[string]int, len(levels))
			for code, v := range levels {
				m.text[v] = code
			}
			m.size = len(levels)
		} else {
			values, err := c.Float64s(b.Rows)
			if err != nil {
				return nil, err
			}
			present := make([]float64, 0, len(values))
			for _, v := range values {
				if !math.IsNaN(v) {
					present = append(present, v)
				}
			}
			levels := sortedDistinct(present)
			m.numeric = make(map[float64]int, len(levels))
			for code, v := range levels {
				m.numeric[v] = code
			}
			m.size = len(levels)
		}
		if err := checkCardinality(e.Name(), c.Name, m.size, e.MaxCategories, b.Rows); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return &fittedLabelEncoder{asText: e.AsText, mappings: mappings}, nil
}

// Transform implements Fitted.
func (f *fittedLabelEncoder) Transform(b *frame.Block) (*frame.Block, error) {
	names := make([]string, len(f.mappings))
	for i, m := range f.mappings {
		names[i] = m.name
	}
	cols, err := columnsByName("label_encode", b, names)
	if err != nil {
		return nil, err
	}

	out := make([]frame.Column, len(cols))
	for i, c := range cols {
		codes, err := f.mappings[i].encode(c, b.Rows)
		if err != nil {
			return nil, err
		}
		out[i] = f.column(c, codes, f.mappings[i].size)
	}
	return &frame.Block{Rows: b.Rows, Columns: out}, nil
}

// encode returns one code per row; -1 marks a missing value.
func (m labelMapping) encode(c frame.Column, rows int) ([]int, error) {
	codes := make([]int, rows)
	if m.text != nil {
		if c.Kind != frame.Categorical {
			return nil, errors.NewEncodingError("label_encode", c.Name, "column was fitted as text").WithRows(rows)
		}
		for i, v := range c.Texts {
			if !c.Valid[i] {
				codes[i] = -1
				continue
			}
			code, ok := m.text[v]
			if !ok {
				return nil, errors.NewEncodingError("label_encode", c.Name,
					fmt.Sprintf("unseen category %q", v)).WithRows(rows)
			}
			codes[i] = code
		}
		return codes, nil
	}

	values, err := c.Float64s(rows)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if math.IsNaN(v) {
			codes[i] = -1
			continue
		}
		code, ok := m.numeric[v]
		if !ok {
			return nil, errors.NewEncodingError("label_encode", c.Name,
				fmt.Sprintf("unseen category %v", v)).WithRows(rows)
		}
		codes[i] = code
	}
	return codes, nil
}

func (f *fittedLabelEncoder) column(src frame.Column, codes []int, size int) frame.Column {
	if f.asText {
		texts := make([]string, len(codes))
		valid := make([]bool, len(codes))
		for i, code := range codes {
			if code < 0 {
				continue
			}
			texts[i] = strconv.Itoa(code)
			valid[i] = true
		}
		col := frame.NewCategorical(src.Name, texts, valid, src.Origin...)
		col.Levels = make([]string, size)
		for code := range col.Levels {
			col.Levels[code] = strconv.Itoa(code)
		}
		return col
	}

	values := make([]float64, len(codes))
	for i, code := range codes {
		if code < 0 {
			values[i] = math.NaN()
			continue
		}
		values[i] = float64(code)
	}
	return frame.NewNumeric(src.Name, values, src.Origin...)
}

// DummyEncoder expands each categorical column into one 0/1 indicator column
// per category. Missing values and categories not seen during Fit encode as
// all zeros.
type DummyEncoder struct {
	// DropFirst omits the indicator for the first category of each column.
	DropFirst bool
	// Sparse emits indicator columns instead of dense numeric ones.
	Sparse bool
	// MaxCategories rejects columns with more categories; zero disables the check.
	MaxCategories int
}

// Name implements Stage.
func (e *DummyEncoder) Name() string { return "dummy_encode" }

type dummyMapping struct {
	name   string
	levels []string // categories that get an output column
	index  map[string]int
}

type fittedDummyEncoder struct {
	sparse   bool
	mappings []dummyMapping
}

// Fit implements Stage.
func (e *DummyEncoder) Fit(b *frame.Block) (Fitted, error) {
	mappings := make([]dummyMapping, 0, b.Width())
	for _, c := range b.Columns {
		if c.Kind != frame.Categorical {
			return nil, errors.NewEncodingError(e.Name(), c.Name, c.Kind.String()+" column cannot be dummy encoded").
				WithRows(b.Rows).
				WithHint("label encode numeric categories before dummy encoding")
		}

		levels := c.Levels
		if levels == nil {
			present := make([]string, 0, len(c.Texts))
			for i, v := range c.Texts {
				if c.Valid[i] {
					present = append(present, v)
				}
			}
			levels = sortedDistinct(present)
		}
		if err := checkCardinality(e.Name(), c.Name, len(levels), e.MaxCategories, b.Rows); err != nil {
			return nil, err
		}
		if e.DropFirst && len(levels) > 0 {
			levels = levels[1:]
		}

		m := dummyMapping{
			name:   c.Name,
			levels: append([]string(nil), levels...),
			index:  make(map[string]int, len(levels)),
		}
		for i, level := range m.levels {
			m.index[level] = i
		}
		mappings = append(mappings, m)
	}
	return &fittedDummyEncoder{sparse: e.Sparse, mappings: mappings}, nil
}

// Transform implements Fitted.
func (f *fittedDummyEncoder) Transform(b *frame.Block) (*frame.Block, error) {
	names := make([]string, len(f.mappings))
	for i, m := range f.mappings {
		names[i] = m.name
	}
	cols, err := columnsByName("dummy_encode", b, names)
	if err != nil {
		return nil, err
	}

	var out []frame.Column
	for i, c := range cols {
		if c.Kind != frame.Categorical {
			return nil, errors.NewEncodingError("dummy_encode", c.Name, "column was fitted as categorical").
				WithRows(b.Rows)
		}
		out = append(out, f.mappings[i].expand(c, b.Rows, f.sparse)...)
	}
	return &frame.Block{Rows: b.Rows, Columns: out}, nil
}

func (m dummyMapping) expand(c frame.Column, rows int, sparse bool) []frame.Column {
	ones := make([][]int, len(m.levels))
	for row, v := range c.Texts {
		if !c.Valid[row] {
			continue
		}
		if k, ok := m.index[v]; ok {
			ones[k] = append(ones[k], row)
		}
	}

	out := make([]frame.Column, len(m.levels))
	for k, level := range m.levels {
		name := m.name + "_" + level
		if sparse {
			out[k] = frame.NewIndicator(name, ones[k], c.Origin...)
			continue
		}
		dense := make([]float64, rows)
		for _, row := range ones[k] {
			dense[row] = 1
		}
		out[k] = frame.NewNumeric(name, dense, c.Origin...)
	}
	return out
}
