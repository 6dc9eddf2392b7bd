// Package testutil provides shared fixtures for tests across the featurize
// packages: memory setup and datasets that follow the column naming convention.
package testutil

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// defaultRowCount is the default number of rows in test datasets.
	defaultRowCount = 8
	// IDColumn and TargetColumn are the role columns of the fixtures.
	IDColumn     = "id"
	TargetColumn = "y"
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator with automatic cleanup for tests.
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()

	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// TestDatasetOption configures test dataset creation.
type TestDatasetOption func(*testDatasetConfig)

type testDatasetConfig struct {
	includeNulls  bool
	rowCount      int
	minorityEvery int
}

// WithNulls puts a missing value in every feature column.
func WithNulls() TestDatasetOption {
	return func(cfg *testDatasetConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestDatasetOption {
	return func(cfg *testDatasetConfig) {
		cfg.rowCount = count
	}
}

// WithMinorityEvery labels every n-th row as the minority class.
func WithMinorityEvery(n int) TestDatasetOption {
	return func(cfg *testDatasetConfig) {
		cfg.minorityEvery = n
	}
}

// CreateTestDataset creates a dataset with one column of every feature type
// plus the id and y role columns:
//   - id (int64): 1..n
//   - x1_bin (int64): alternating 1, 0
//   - x2_num (float64): 1.5, 2.5, 4.0, ...
//   - x3_txtcat (string): "a", "b", "a", "c", ...
//   - x4_numcat (int64): 10, 20, 30, ...
//   - y (int64): 1 on every fourth row
func CreateTestDataset(tb testing.TB, allocator memory.Allocator, opts ...TestDatasetOption) *dataset.Dataset {
	tb.Helper()
	cfg := &testDatasetConfig{
		rowCount:      defaultRowCount,
		minorityEvery: 4,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	n := cfg.rowCount
	ids := make([]int64, n)
	bins := make([]int64, n)
	nums := make([]float64, n)
	cats := make([]string, n)
	numcats := make([]int64, n)
	target := make([]int64, n)
	valid := make([]bool, n)

	baseNums := []float64{1.5, 2.5, 4.0, 3.0, 8.5, 6.0, 0.5, 7.0}
	baseCats := []string{"a", "b", "a", "c", "b", "a", "c", "a"}
	baseNumcats := []int64{10, 20, 30, 10, 20, 10, 30, 20}
	for i := range n {
		ids[i] = int64(i + 1)
		bins[i] = int64((i + 1) % 2)
		nums[i] = baseNums[i%len(baseNums)]
		cats[i] = baseCats[i%len(baseCats)]
		numcats[i] = baseNumcats[i%len(baseNumcats)]
		if cfg.minorityEvery > 0 && (i+1)%cfg.minorityEvery == 0 {
			target[i] = 1
		}
		valid[i] = !cfg.includeNulls || i != 1
	}

	binSeries, err := series.NewNullable("x1_bin", bins, valid, allocator)
	require.NoError(tb, err)
	numSeries, err := series.NewNullable("x2_num", nums, valid, allocator)
	require.NoError(tb, err)
	catSeries, err := series.NewNullable("x3_txtcat", cats, valid, allocator)
	require.NoError(tb, err)
	numcatSeries, err := series.NewNullable("x4_numcat", numcats, valid, allocator)
	require.NoError(tb, err)

	ds, err := dataset.NewWithRoles(IDColumn, TargetColumn,
		series.New(IDColumn, ids, allocator),
		binSeries,
		numSeries,
		catSeries,
		numcatSeries,
		series.New(TargetColumn, target, allocator),
	)
	require.NoError(tb, err)
	return ds
}

// CreateScenarioDataset creates the six-row dataset with a binary and a
// numeric column that each miss the third value:
//   - x1_bin: 1, 0, NA, 1, 0, 1
//   - x2_num: 1, 2, NA, 4, 5, 100
func CreateScenarioDataset(tb testing.TB, allocator memory.Allocator) *dataset.Dataset {
	tb.Helper()
	valid := []bool{true, true, false, true, true, true}

	bins, err := series.NewNullable("x1_bin", []float64{1, 0, math.NaN(), 1, 0, 1}, valid, allocator)
	require.NoError(tb, err)
	nums, err := series.NewNullable("x2_num", []float64{1, 2, math.NaN(), 4, 5, 100}, valid, allocator)
	require.NoError(tb, err)

	ds, err := dataset.NewWithRoles(IDColumn, "",
		series.New(IDColumn, []int64{1, 2, 3, 4, 5, 6}, allocator),
		bins,
		nums,
	)
	require.NoError(tb, err)
	return ds
}

// AssertDatasetHasColumns verifies that a dataset has the expected columns in order.
func AssertDatasetHasColumns(t *testing.T, ds *dataset.Dataset, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, ds, "Dataset should not be nil")
	assert.Equal(t, expectedColumns, ds.Columns(), "columns should match")
}

// AssertDatasetNotEmpty verifies that a dataset is not empty.
func AssertDatasetNotEmpty(t *testing.T, ds *dataset.Dataset) {
	t.Helper()

	require.NotNil(t, ds, "Dataset should not be nil")
	assert.Positive(t, ds.Len(), "Dataset should not be empty")
	assert.Positive(t, ds.Width(), "Dataset should have columns")
}
