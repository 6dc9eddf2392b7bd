package transform

import (
	"math"
	"strconv"

	"github.com/paveg/featurize/internal/frame"
)

// TextCast turns numeric columns into categorical text so that category
// handling depends on the column's feature type, not on how its values were
// parsed. 101 becomes "101"; booleans arrive as 0/1 and become "0"/"1".
// Categorical columns pass through unchanged.
type TextCast struct{}

// Name implements Stage.
func (TextCast) Name() string { return "as_text" }

type fittedTextCast struct {
	names []string
}

// Fit implements Stage.
func (t TextCast) Fit(b *frame.Block) (Fitted, error) {
	return &fittedTextCast{names: b.Names()}, nil
}

// Transform implements Fitted.
func (f *fittedTextCast) Transform(b *frame.Block) (*frame.Block, error) {
	cols, err := columnsByName("as_text", b, f.names)
	if err != nil {
		return nil, err
	}
	out := make([]frame.Column, len(cols))
	for i, c := range cols {
		if c.Kind == frame.Categorical {
			out[i] = c
			continue
		}
		values, err := c.Float64s(b.Rows)
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(values))
		valid := make([]bool, len(values))
		for j, v := range values {
			if math.IsNaN(v) {
				continue
			}
			texts[j] = strconv.FormatFloat(v, 'g', -1, 64)
			valid[j] = true
		}
		out[i] = frame.NewCategorical(c.Name, texts, valid, c.Origin...)
	}
	return &frame.Block{Rows: b.Rows, Columns: out}, nil
}
