// Package transform implements the fit/transform stages of a per-type feature
// pipeline and the pipeline that composes them.
//
// A Stage captures whatever statistics it needs in Fit and returns an
// immutable Fitted value; Fitted.Transform applies those statistics to a block
// with the same column schema. Stages never modify their input block.
package transform

import (
	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/frame"
	"github.com/paveg/featurize/internal/validation"
)

// Stage is an unfit transformation step.
type Stage interface {
	// Name identifies the stage in errors, logs and metrics.
	Name() string
	// Fit captures the statistics needed to transform b.
	Fit(b *frame.Block) (Fitted, error)
}

// Fitted is a stage whose statistics are fixed.
type Fitted interface {
	Transform(b *frame.Block) (*frame.Block, error)
}

// FitTransform fits s on b and applies it to the same block.
func FitTransform(s Stage, b *frame.Block) (Fitted, *frame.Block, error) {
	fitted, err := s.Fit(b)
	if err != nil {
		return nil, nil, err
	}
	out, err := fitted.Transform(b)
	if err != nil {
		return nil, nil, err
	}
	return fitted, out, nil
}

// Selector projects a block onto a named subset of columns, in the given order.
type Selector struct {
	Columns []string
}

// NewSelector creates a selector stage.
func NewSelector(columns ...string) *Selector {
	return &Selector{Columns: append([]string(nil), columns...)}
}

// Name implements Stage.
func (s *Selector) Name() string { return "select" }

// Fit implements Stage. Selection has no statistics; Fit only checks the schema.
func (s *Selector) Fit(b *frame.Block) (Fitted, error) {
	if err := validation.ValidateColumns(blockColumns{b}, s.Name(), s.Columns...); err != nil {
		return nil, err
	}
	return s, nil
}

// Transform implements Fitted.
func (s *Selector) Transform(b *frame.Block) (*frame.Block, error) {
	columns := make([]frame.Column, 0, len(s.Columns))
	for _, name := range s.Columns {
		idx, ok := b.Index(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError(s.Name(), name, b.Names()).WithRows(b.Rows)
		}
		columns = append(columns, b.Columns[idx])
	}
	return &frame.Block{Rows: b.Rows, Columns: columns}, nil
}

// blockColumns adapts a Block to validation.ColumnProvider.
type blockColumns struct{ b *frame.Block }

func (p blockColumns) HasColumn(name string) bool {
	_, ok := p.b.Index(name)
	return ok
}
func (p blockColumns) Columns() []string { return p.b.Names() }
func (p blockColumns) Len() int          { return p.b.Rows }
func (p blockColumns) Width() int        { return p.b.Width() }

// columnsByName resolves the fitted column names against b.
func columnsByName(op string, b *frame.Block, names []string) ([]frame.Column, error) {
	out := make([]frame.Column, len(names))
	for i, name := range names {
		idx, ok := b.Index(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError(op, name, b.Names()).WithRows(b.Rows)
		}
		out[i] = b.Columns[idx]
	}
	return out, nil
}
