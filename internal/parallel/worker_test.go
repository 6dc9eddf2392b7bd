package parallel_test

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paveg/featurize/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPoolContext(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"explicit size", 4, 4},
		{"zero uses cpu count", 0, runtime.NumCPU()},
		{"negative uses cpu count", -2, runtime.NumCPU()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wp := parallel.NewWorkerPoolContext(context.Background(), tt.size)
			defer wp.Close()
			assert.Equal(t, tt.expected, wp.Size())
		})
	}
}

func TestProcessIndexed(t *testing.T) {
	wp := parallel.NewWorkerPoolContext(context.Background(), 3)
	defer wp.Close()

	items := []string{"bin", "numcat", "txtcat", "num"}
	results := parallel.ProcessIndexed(wp, items, func(i int, s string) string {
		// later items finish first
		time.Sleep(time.Duration(len(items)-i) * time.Millisecond)
		return s + "!"
	})

	assert.Equal(t, []string{"bin!", "numcat!", "txtcat!", "num!"}, results)
}

func TestProcessIndexedEmpty(t *testing.T) {
	wp := parallel.NewWorkerPoolContext(context.Background(), 2)
	defer wp.Close()

	results := parallel.ProcessIndexed(wp, []int{}, func(_ int, v int) int { return v })
	assert.Nil(t, results)
}

func TestProcessIndexedConcurrency(t *testing.T) {
	wp := parallel.NewWorkerPoolContext(context.Background(), 4)
	defer wp.Close()

	var active, peak int32
	items := make([]int, 16)
	parallel.ProcessIndexed(wp, items, func(i int, _ int) int {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return i
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestWorkerPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wp := parallel.NewWorkerPoolContext(ctx, 2)
	defer wp.Close()
	cancel()

	results := parallel.ProcessIndexed(wp, []int{1, 2, 3}, func(_ int, v int) int { return v * 10 })
	require.Len(t, results, 3)
	assert.ErrorIs(t, wp.Err(), context.Canceled)
}
