package transform

import (
	"math"

	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/frame"
	"gonum.org/v1/gonum/stat"
)

// Polynomial expands numeric columns into the originals followed by every
// pairwise product x_i*x_j with i <= j. No bias column is produced.
type Polynomial struct {
	// Degree must be 2.
	Degree int
}

// Name implements Stage.
func (p *Polynomial) Name() string { return "polynomial" }

type fittedPolynomial struct {
	names []string
}

// Fit implements Stage.
func (p *Polynomial) Fit(b *frame.Block) (Fitted, error) {
	if p.Degree != 2 {
		return nil, errors.NewInvalidInputError(p.Name(), "only degree 2 expansion is supported")
	}
	for _, c := range b.Columns {
		if c.Kind == frame.Categorical {
			return nil, errors.NewSchemaError(p.Name(), c.Name, "polynomial expansion needs numeric input").
				WithRows(b.Rows)
		}
	}
	return &fittedPolynomial{names: b.Names()}, nil
}

// Transform implements Fitted.
func (f *fittedPolynomial) Transform(b *frame.Block) (*frame.Block, error) {
	cols, err := columnsByName("polynomial", b, f.names)
	if err != nil {
		return nil, err
	}
	values := make([][]float64, len(cols))
	for i, c := range cols {
		if values[i], err = c.Float64s(b.Rows); err != nil {
			return nil, err
		}
	}

	n := len(cols)
	out := make([]frame.Column, 0, n+n*(n+1)/2)
	out = append(out, cols...)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			product := make([]float64, b.Rows)
			for row := range product {
				product[row] = values[i][row] * values[j][row]
			}
			out = append(out, frame.NewNumeric(productName(cols[i].Name, cols[j].Name), product,
				mergeOrigins(cols[i].Origin, cols[j].Origin)...))
		}
	}
	return &frame.Block{Rows: b.Rows, Columns: out}, nil
}

func productName(a, b string) string {
	if a == b {
		return a + "^2"
	}
	return a + "*" + b
}

func mergeOrigins(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, name := range b {
		found := false
		for _, existing := range out {
			if existing == name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, name)
		}
	}
	return out
}

// Scaler standardizes numeric columns to zero mean and unit population
// standard deviation.
type Scaler struct {
	// AllowDegenerate maps zero-variance columns to zeros instead of failing.
	AllowDegenerate bool
}

// Name implements Stage.
func (s *Scaler) Name() string { return "standardize" }

type scaleParams struct {
	name       string
	mean       float64
	std        float64
	degenerate bool
}

type fittedScaler struct {
	params []scaleParams
}

// Fit implements Stage.
func (s *Scaler) Fit(b *frame.Block) (Fitted, error) {
	params := make([]scaleParams, 0, b.Width())
	for _, c := range b.Columns {
		values, err := c.Float64s(b.Rows)
		if err != nil {
			return nil, err
		}
		if c.MissingCount(b.Rows) > 0 {
			return nil, errors.NewSchemaError(s.Name(), c.Name, "missing values must be imputed before scaling").
				WithRows(b.Rows)
		}

		p := scaleParams{name: c.Name}
		if len(values) > 0 {
			mean, variance := stat.PopMeanVariance(values, nil)
			p.mean = mean
			p.std = math.Sqrt(variance)
		}
		if isZeroScale(p.std, p.mean) {
			if !s.AllowDegenerate {
				return nil, errors.NewDegenerateColumnError(s.Name(), c.Name, b.Rows).
					WithHint("enable the variance filter to drop constant columns")
			}
			p.degenerate = true
		}
		params = append(params, p)
	}
	return &fittedScaler{params: params}, nil
}

// isZeroScale treats a standard deviation lost in rounding noise as zero.
func isZeroScale(std, mean float64) bool {
	const eps = 2.220446049250313e-16
	return std < 10*eps*math.Max(1, math.Abs(mean))
}

// Transform implements Fitted.
func (f *fittedScaler) Transform(b *frame.Block) (*frame.Block, error) {
	names := make([]string, len(f.params))
	for i, p := range f.params {
		names[i] = p.name
	}
	cols, err := columnsByName("standardize", b, names)
	if err != nil {
		return nil, err
	}

	out := make([]frame.Column, len(cols))
	for i, c := range cols {
		values, err := c.Float64s(b.Rows)
		if err != nil {
			return nil, err
		}
		p := f.params[i]
		scaled := make([]float64, len(values))
		if !p.degenerate {
			for row, v := range values {
				scaled[row] = (v - p.mean) / p.std
			}
		}
		out[i] = frame.NewNumeric(c.Name, scaled, c.Origin...)
	}
	return &frame.Block{Rows: b.Rows, Columns: out}, nil
}
