package testutil_test

import (
	"testing"

	"github.com/paveg/featurize/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestDataset(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("default configuration", func(t *testing.T) {
		ds := testutil.CreateTestDataset(t, mem.Allocator)
		defer ds.Release()

		assert.Equal(t, 8, ds.Len())
		testutil.AssertDatasetHasColumns(t, ds, []string{"id", "x1_bin", "x2_num", "x3_txtcat", "x4_numcat", "y"})
		assert.Equal(t, []string{"x1_bin", "x2_num", "x3_txtcat", "x4_numcat"}, ds.Features())

		labels, err := ds.Target()
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 0, 1, 0, 0, 0, 1}, labels)
	})

	t.Run("with nulls", func(t *testing.T) {
		ds := testutil.CreateTestDataset(t, mem.Allocator, testutil.WithNulls())
		defer ds.Release()

		for _, name := range ds.Features() {
			col, ok := ds.Column(name)
			require.True(t, ok)
			assert.True(t, col.IsNull(1), name)
			assert.False(t, col.IsNull(0), name)
		}
	})

	t.Run("row count and minority rate", func(t *testing.T) {
		ds := testutil.CreateTestDataset(t, mem.Allocator, testutil.WithRowCount(20), testutil.WithMinorityEvery(5))
		defer ds.Release()

		testutil.AssertDatasetNotEmpty(t, ds)
		labels, err := ds.Target()
		require.NoError(t, err)
		ones := 0
		for _, l := range labels {
			ones += l
		}
		assert.Equal(t, 4, ones)
	})
}

func TestCreateScenarioDataset(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	ds := testutil.CreateScenarioDataset(t, mem.Allocator)
	defer ds.Release()

	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, []string{"x1_bin", "x2_num"}, ds.Features())
	col, ok := ds.Column("x2_num")
	require.True(t, ok)
	assert.True(t, col.IsNull(2))
}
