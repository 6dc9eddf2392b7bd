package features_test

import (
	"testing"

	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	names := []string{"id", "x1_bin", "x2_num", "x3_txtcat", "x4_numcat", "x5_strcat", "abcbin", "y"}

	g, err := features.Classify(names, features.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"x1_bin", "abcbin"}, g.Binary)
	assert.Equal(t, []string{"x4_numcat"}, g.NumericCategorical)
	assert.Equal(t, []string{"x3_txtcat", "x5_strcat"}, g.TextCategorical)
	assert.Equal(t, []string{"x2_num"}, g.Numeric)
	assert.Equal(t, []string{"id", "y"}, g.Unmatched)
	assert.Equal(t, 6, g.Len())
}

func TestClassify_SuffixIsLiteral(t *testing.T) {
	tests := []struct {
		name  string
		col   string
		match bool
		typ   features.FeatureType
	}{
		{name: "exact tag", col: "abcnum", match: true, typ: features.Numeric},
		{name: "longer suffix", col: "abcnumber", match: false},
		{name: "tag not at offset", col: "abnum", match: false},
		{name: "prefix only", col: "abc", match: false},
		{name: "short name", col: "ab", match: false},
		{name: "uppercase tag", col: "abcBIN", match: false},
		{name: "numcat is not num", col: "abcnumcat", match: true, typ: features.NumericCategorical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, ok := features.TypeOf(tt.col, features.DefaultPrefixLength)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, tt.typ, typ)
			}
		})
	}
}

func TestClassify_GroupsAreDisjointAndIdempotent(t *testing.T) {
	names := []string{"a1_bin", "a2_num", "a3_numcat", "a4_txtcat", "a5_num", "zzz", "a6_bin"}

	first, err := features.Classify(names, features.DefaultOptions())
	require.NoError(t, err)
	second, err := features.Classify(names, features.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	seen := map[string]features.FeatureType{}
	for _, typ := range features.Types() {
		for _, name := range first.Get(typ) {
			prev, dup := seen[name]
			assert.False(t, dup, "column %s in both %s and %s", name, prev, typ)
			seen[name] = typ
		}
	}
	assert.Len(t, seen, 6)
}

func TestClassify_ErrorPolicy(t *testing.T) {
	opts := features.Options{PrefixLength: 3, Unknown: features.ErrorOnUnknown}

	_, err := features.Classify([]string{"x1_bin", "mystery"}, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchema)
	assert.Contains(t, err.Error(), "'mystery'")

	g, err := features.Classify([]string{"x1_bin"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1_bin"}, g.Binary)
}

func TestClassify_CustomPrefixLength(t *testing.T) {
	g, err := features.Classify([]string{"feat_num", "fnum"}, features.Options{PrefixLength: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"feat_num"}, g.Numeric)

	_, err = features.Classify(nil, features.Options{PrefixLength: -1})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestClassify_EmptyInput(t *testing.T) {
	g, err := features.Classify(nil, features.DefaultOptions())
	require.NoError(t, err)
	for _, typ := range features.Types() {
		assert.Empty(t, g.Get(typ))
	}
}

func TestParseUnknownPolicy(t *testing.T) {
	p, err := features.ParseUnknownPolicy("error")
	require.NoError(t, err)
	assert.Equal(t, features.ErrorOnUnknown, p)

	p, err = features.ParseUnknownPolicy("")
	require.NoError(t, err)
	assert.Equal(t, features.DropUnknown, p)

	_, err = features.ParseUnknownPolicy("warn")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestFeatureType_String(t *testing.T) {
	assert.Equal(t, "bin", features.Binary.String())
	assert.Equal(t, "numcat", features.NumericCategorical.String())
	assert.Equal(t, "txtcat", features.TextCategorical.String())
	assert.Equal(t, "num", features.Numeric.String())
}
