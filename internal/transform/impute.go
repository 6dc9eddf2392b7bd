package transform

import (
	"fmt"
	"math"
	"sort"

	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/frame"
	"gonum.org/v1/gonum/stat"
)

// Strategy selects how an Imputer computes its fill value.
type Strategy int

const (
	Median Strategy = iota
	Mean
	MostFrequent
)

func (s Strategy) String() string {
	switch s {
	case Median:
		return "median"
	case Mean:
		return "mean"
	case MostFrequent:
		return "most_frequent"
	default:
		return fmt.Sprintf("unknown_strategy(%d)", int(s))
	}
}

// Imputer fills missing values column by column.
type Imputer struct {
	Strategy Strategy
}

// NewImputer creates an imputer stage.
func NewImputer(strategy Strategy) *Imputer {
	return &Imputer{Strategy: strategy}
}

// Name implements Stage.
func (im *Imputer) Name() string { return "impute_" + im.Strategy.String() }

// fill is the fitted replacement for one column.
type fill struct {
	name  string
	value float64 // numeric columns
	text  string  // categorical columns
}

type fittedImputer struct {
	op    string
	fills []fill
}

// Fit implements Stage.
func (im *Imputer) Fit(b *frame.Block) (Fitted, error) {
	fills := make([]fill, 0, b.Width())
	for _, c := range b.Columns {
		f, err := fitFill(im.Name(), im.Strategy, c, b.Rows)
		if err != nil {
			return nil, err
		}
		fills = append(fills, f)
	}
	return &fittedImputer{op: im.Name(), fills: fills}, nil
}

// Transform implements Fitted.
func (f *fittedImputer) Transform(b *frame.Block) (*frame.Block, error) {
	names := make([]string, len(f.fills))
	for i, fl := range f.fills {
		names[i] = fl.name
	}
	cols, err := columnsByName(f.op, b, names)
	if err != nil {
		return nil, err
	}
	out := make([]frame.Column, len(cols))
	for i, c := range cols {
		out[i] = applyFill(c, f.fills[i], b.Rows)
	}
	return &frame.Block{Rows: b.Rows, Columns: out}, nil
}

// ImputeColumn returns a copy of the named column with its missing values
// filled according to strategy. It reads b and nothing else.
func ImputeColumn(b *frame.Block, name string, strategy Strategy) (frame.Column, error) {
	op := "impute_" + strategy.String()
	cols, err := columnsByName(op, b, []string{name})
	if err != nil {
		return frame.Column{}, err
	}
	f, err := fitFill(op, strategy, cols[0], b.Rows)
	if err != nil {
		return frame.Column{}, err
	}
	return applyFill(cols[0], f, b.Rows), nil
}

func fitFill(op string, strategy Strategy, c frame.Column, rows int) (fill, error) {
	f := fill{name: c.Name}

	if c.Kind == frame.Categorical {
		if strategy != MostFrequent {
			return f, errors.NewSchemaError(op, c.Name, "text column cannot be imputed with "+strategy.String()).
				WithRows(rows)
		}
		text, ok := modeOf(c.Texts, c.Valid)
		if !ok {
			return f, errors.NewImputationError(op, c.Name, rows)
		}
		f.text = text
		return f, nil
	}

	values, err := c.Float64s(rows)
	if err != nil {
		return f, err
	}
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return f, errors.NewImputationError(op, c.Name, rows)
	}

	switch strategy {
	case Median:
		f.value = median(present)
	case Mean:
		f.value = stat.Mean(present, nil)
	case MostFrequent:
		valid := make([]bool, len(present))
		for i := range valid {
			valid[i] = true
		}
		f.value, _ = modeOf(present, valid)
	default:
		return f, errors.NewInvalidInputError(op, "unknown imputation strategy")
	}
	return f, nil
}

func applyFill(c frame.Column, f fill, rows int) frame.Column {
	switch c.Kind {
	case frame.Categorical:
		texts := append([]string(nil), c.Texts...)
		valid := make([]bool, len(texts))
		for i := range texts {
			if !c.Valid[i] {
				texts[i] = f.text
			}
			valid[i] = true
		}
		out := frame.NewCategorical(c.Name, texts, valid, c.Origin...)
		out.Levels = c.Levels
		return out
	case frame.Numeric:
		values := append([]float64(nil), c.Floats...)
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = f.value
			}
		}
		return frame.NewNumeric(c.Name, values, c.Origin...)
	default:
		// indicator columns never hold missing values
		return c
	}
}

// median of a non-empty slice; an even count averages the two middle values.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// modeOf returns the most frequent valid value; ties go to the value that
// appears first.
func modeOf[T comparable](values []T, valid []bool) (T, bool) {
	var best T
	counts := make(map[T]int)
	bestCount := 0
	for i, v := range values {
		if !valid[i] {
			continue
		}
		counts[v]++
	}
	// second pass in row order so the earliest value wins ties
	for i, v := range values {
		if !valid[i] {
			continue
		}
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best, bestCount > 0
}
