// Package features classifies dataset columns into semantic feature types
// using a naming convention: every feature column carries a fixed-length
// prefix followed by a type tag.
package features

import (
	"fmt"

	"github.com/paveg/featurize/internal/errors"
)

// FeatureType is the semantic type derived from a column name.
type FeatureType int

const (
	// Binary columns hold 0/1 values and pass through unchanged after imputation.
	Binary FeatureType = iota
	// NumericCategorical columns hold numeric category codes.
	NumericCategorical
	// TextCategorical columns hold textual categories.
	TextCategorical
	// Numeric columns hold continuous values.
	Numeric
)

// DefaultPrefixLength is the conventional prefix length before the type tag.
const DefaultPrefixLength = 3

// String returns the canonical tag of the type.
func (t FeatureType) String() string {
	switch t {
	case Binary:
		return "bin"
	case NumericCategorical:
		return "numcat"
	case TextCategorical:
		return "txtcat"
	case Numeric:
		return "num"
	default:
		return fmt.Sprintf("unknown_type(%d)", int(t))
	}
}

// Types returns every feature type in union order.
func Types() []FeatureType {
	return []FeatureType{Binary, NumericCategorical, TextCategorical, Numeric}
}

// tags maps a literal suffix to its type. "strcat" is an accepted alias of "txtcat".
var tags = map[string]FeatureType{
	"bin":    Binary,
	"numcat": NumericCategorical,
	"txtcat": TextCategorical,
	"strcat": TextCategorical,
	"num":    Numeric,
}

// UnknownPolicy decides what happens to a column whose suffix matches no tag.
type UnknownPolicy int

const (
	// DropUnknown silently excludes unmatched columns from every group.
	DropUnknown UnknownPolicy = iota
	// ErrorOnUnknown fails classification on the first unmatched column.
	ErrorOnUnknown
)

// ParseUnknownPolicy parses "drop" or "error".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "drop":
		return DropUnknown, nil
	case "error":
		return ErrorOnUnknown, nil
	default:
		return DropUnknown, errors.NewInvalidInputError("classify",
			fmt.Sprintf("unknown column policy %q (want drop or error)", s))
	}
}

// Options configures classification.
type Options struct {
	PrefixLength int
	Unknown      UnknownPolicy
}

// DefaultOptions returns the conventional options: prefix of 3, drop unmatched.
func DefaultOptions() Options {
	return Options{PrefixLength: DefaultPrefixLength, Unknown: DropUnknown}
}

// Groups holds the ordered column names of each feature type.
type Groups struct {
	Binary             []string
	NumericCategorical []string
	TextCategorical    []string
	Numeric            []string
	// Unmatched lists excluded columns for diagnostics.
	Unmatched []string
}

// Get returns the group of the given type.
func (g Groups) Get(t FeatureType) []string {
	switch t {
	case Binary:
		return g.Binary
	case NumericCategorical:
		return g.NumericCategorical
	case TextCategorical:
		return g.TextCategorical
	case Numeric:
		return g.Numeric
	default:
		return nil
	}
}

// Len returns the number of classified columns.
func (g Groups) Len() int {
	return len(g.Binary) + len(g.NumericCategorical) + len(g.TextCategorical) + len(g.Numeric)
}

// TypeOf returns the feature type of a single column name.
func TypeOf(name string, prefixLength int) (FeatureType, bool) {
	if prefixLength < 0 || len(name) <= prefixLength {
		return 0, false
	}
	t, ok := tags[name[prefixLength:]]
	return t, ok
}

// Classify partitions names into the four feature groups, preserving input order.
func Classify(names []string, opts Options) (Groups, error) {
	if opts.PrefixLength < 0 {
		return Groups{}, errors.NewInvalidInputError("classify",
			fmt.Sprintf("prefix length must be non-negative, got %d", opts.PrefixLength))
	}

	g := Groups{
		Binary:             []string{},
		NumericCategorical: []string{},
		TextCategorical:    []string{},
		Numeric:            []string{},
	}
	for _, name := range names {
		t, ok := TypeOf(name, opts.PrefixLength)
		if !ok {
			if opts.Unknown == ErrorOnUnknown {
				return Groups{}, errors.NewSchemaError("classify", name,
					"column name does not match any feature type tag").
					WithHint("expected <prefix>bin, <prefix>numcat, <prefix>txtcat, <prefix>strcat or <prefix>num")
			}
			g.Unmatched = append(g.Unmatched, name)
			continue
		}
		switch t {
		case Binary:
			g.Binary = append(g.Binary, name)
		case NumericCategorical:
			g.NumericCategorical = append(g.NumericCategorical, name)
		case TextCategorical:
			g.TextCategorical = append(g.TextCategorical, name)
		case Numeric:
			g.Numeric = append(g.Numeric, name)
		}
	}
	return g, nil
}
