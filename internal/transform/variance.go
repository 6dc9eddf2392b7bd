package transform

import (
	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/frame"
	"gonum.org/v1/gonum/stat"
)

// VarianceFilter keeps the columns whose population variance is strictly
// greater than Threshold. Kept columns pass through unchanged.
type VarianceFilter struct {
	Threshold float64
}

// Name implements Stage.
func (v *VarianceFilter) Name() string { return "variance_filter" }

type fittedVarianceFilter struct {
	keep []string
}

// Fit implements Stage.
func (v *VarianceFilter) Fit(b *frame.Block) (Fitted, error) {
	if v.Threshold < 0 {
		return nil, errors.NewInvalidInputError(v.Name(), "variance threshold must not be negative")
	}
	keep := make([]string, 0, b.Width())
	for _, c := range b.Columns {
		values, err := c.Float64s(b.Rows)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		_, variance := stat.PopMeanVariance(values, nil)
		if variance > v.Threshold {
			keep = append(keep, c.Name)
		}
	}
	return &fittedVarianceFilter{keep: keep}, nil
}

// Transform implements Fitted.
func (f *fittedVarianceFilter) Transform(b *frame.Block) (*frame.Block, error) {
	cols, err := columnsByName("variance_filter", b, f.keep)
	if err != nil {
		return nil, err
	}
	return &frame.Block{Rows: b.Rows, Columns: cols}, nil
}
