// Package frame holds the columnar block that flows between pipeline stages.
//
// A Block is a row count plus an ordered list of columns. Columns are either
// numeric (float64, NaN marks a missing value), categorical (text with a
// validity mask and optional ordered levels) or indicator (a sparse 0/1 column
// stored as the ascending row indices that hold a 1). Stages treat blocks as
// immutable: they build new columns instead of writing into their input.
package frame

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/errors"
)

// Kind is the physical representation of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Indicator
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Indicator:
		return "indicator"
	default:
		return fmt.Sprintf("unknown_kind(%d)", int(k))
	}
}

// Column is a single named column of a Block.
type Column struct {
	Name   string
	Kind   Kind
	Floats []float64 // Numeric
	Texts  []string  // Categorical
	Valid  []bool    // Categorical; false marks a missing value
	Levels []string  // Categorical; ordered category set when already decided upstream
	Ones   []int     // Indicator; ascending row indices holding 1
	Origin []string  // source dataset columns this column derives from
}

// NewNumeric creates a numeric column.
func NewNumeric(name string, values []float64, origin ...string) Column {
	return Column{Name: name, Kind: Numeric, Floats: values, Origin: originOf(name, origin)}
}

// NewCategorical creates a categorical column. A nil valid marks every value present.
func NewCategorical(name string, values []string, valid []bool, origin ...string) Column {
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	return Column{Name: name, Kind: Categorical, Texts: values, Valid: valid, Origin: originOf(name, origin)}
}

// NewIndicator creates a sparse 0/1 column from the rows holding 1.
func NewIndicator(name string, ones []int, origin ...string) Column {
	return Column{Name: name, Kind: Indicator, Ones: ones, Origin: originOf(name, origin)}
}

func originOf(name string, origin []string) []string {
	if len(origin) == 0 {
		return []string{name}
	}
	return append([]string(nil), origin...)
}

// Len returns the number of stored values; indicator columns report rows.
func (c Column) Len(rows int) int {
	switch c.Kind {
	case Numeric:
		return len(c.Floats)
	case Categorical:
		return len(c.Texts)
	default:
		return rows
	}
}

// IsMissing reports whether row i is missing.
func (c Column) IsMissing(i int) bool {
	switch c.Kind {
	case Numeric:
		return math.IsNaN(c.Floats[i])
	case Categorical:
		return !c.Valid[i]
	default:
		return false
	}
}

// MissingCount returns the number of missing values.
func (c Column) MissingCount(rows int) int {
	n := 0
	for i := 0; i < c.Len(rows); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Float64s returns the column as dense float64 values. Numeric columns return
// their backing slice, which callers must treat as read-only.
func (c Column) Float64s(rows int) ([]float64, error) {
	switch c.Kind {
	case Numeric:
		return c.Floats, nil
	case Indicator:
		out := make([]float64, rows)
		for _, idx := range c.Ones {
			out[idx] = 1
		}
		return out, nil
	default:
		return nil, errors.NewSchemaError("densify", c.Name, "categorical column has no numeric representation").
			WithHint("encode the column before it reaches a numeric stage")
	}
}

// Block is the unit of data passed between stages.
type Block struct {
	Rows    int
	Columns []Column
}

// NewBlock creates a block and checks every column holds rows values.
func NewBlock(rows int, columns ...Column) (*Block, error) {
	b := &Block{Rows: rows, Columns: columns}
	if err := b.Validate("block"); err != nil {
		return nil, err
	}
	return b, nil
}

// Width returns the number of columns.
func (b *Block) Width() int {
	return len(b.Columns)
}

// Names returns the column names in order.
func (b *Block) Names() []string {
	names := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column.
func (b *Block) Index(name string) (int, bool) {
	for i, c := range b.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Validate checks that every column agrees with the block row count.
func (b *Block) Validate(op string) error {
	for _, c := range b.Columns {
		if c.Kind == Indicator {
			for _, idx := range c.Ones {
				if idx < 0 || idx >= b.Rows {
					return errors.NewRowCountMismatchError(op, c.Name, b.Rows, idx+1)
				}
			}
			continue
		}
		if n := c.Len(b.Rows); n != b.Rows {
			return errors.NewRowCountMismatchError(op, c.Name, b.Rows, n)
		}
		if c.Kind == Categorical && len(c.Valid) != len(c.Texts) {
			return errors.NewRowCountMismatchError(op, c.Name, len(c.Texts), len(c.Valid))
		}
	}
	return nil
}

// FromDataset converts the named dataset columns (all columns when names is
// empty) into a Block. Integer, float and boolean columns become numeric;
// text columns become categorical.
func FromDataset(ds *dataset.Dataset, names ...string) (*Block, error) {
	if len(names) == 0 {
		names = ds.Columns()
	}
	rows := ds.Len()
	columns := make([]Column, 0, len(names))
	for _, name := range names {
		s, ok := ds.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("from_dataset", name, ds.Columns()).WithRows(rows)
		}
		col, err := convertSeries(name, s)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return NewBlock(rows, columns...)
}

func convertSeries(name string, s dataset.ISeries) (Column, error) {
	arr := s.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		texts := make([]string, typed.Len())
		valid := make([]bool, typed.Len())
		for i := range texts {
			if typed.IsNull(i) {
				continue
			}
			texts[i] = typed.Value(i)
			valid[i] = true
		}
		return NewCategorical(name, texts, valid), nil
	case *array.Int64:
		return NewNumeric(name, numericValues(typed.Len(), typed.IsNull, func(i int) float64 {
			return float64(typed.Value(i))
		})), nil
	case *array.Float64:
		return NewNumeric(name, numericValues(typed.Len(), typed.IsNull, typed.Value)), nil
	case *array.Boolean:
		return NewNumeric(name, numericValues(typed.Len(), typed.IsNull, func(i int) float64 {
			if typed.Value(i) {
				return 1
			}
			return 0
		})), nil
	default:
		return Column{}, errors.NewSchemaError("from_dataset", name,
			fmt.Sprintf("unsupported column type %s", arr.DataType()))
	}
}

func numericValues(n int, isNull func(int) bool, value func(int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if isNull(i) {
			out[i] = math.NaN()
			continue
		}
		out[i] = value(i)
	}
	return out
}
