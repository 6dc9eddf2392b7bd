// Package monitoring collects per-stage timing and row metrics for pipeline runs.
package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OperationMetrics represents performance metrics for a single pipeline stage.
type OperationMetrics struct {
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	MemoryUsed    int64         `json:"memory_used"`
	Operation     string        `json:"operation"`
	Failed        bool          `json:"failed"`
}

// MetricsCollector collects and stores performance metrics. It is safe for
// concurrent use by parallel pipelines.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []OperationMetrics
	enabled bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]OperationMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordOperation executes fn and records its duration, the rows it processed
// and the heap growth it caused.
func (mc *MetricsCollector) RecordOperation(operation string, rows int64, fn func() error) error {
	if !mc.IsEnabled() {
		return fn()
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := time.Now()

	err := fn()

	duration := time.Since(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	var memoryUsed int64
	if memAfter.TotalAlloc > memBefore.TotalAlloc {
		memoryUsed = int64(memAfter.TotalAlloc - memBefore.TotalAlloc) //nolint:gosec // bounded by process heap
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, OperationMetrics{
		Duration:      duration,
		RowsProcessed: rows,
		MemoryUsed:    memoryUsed,
		Operation:     operation,
		Failed:        err != nil,
	})
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var totalDuration time.Duration
	var totalMemory int64
	var totalRows int64
	failures := 0
	operationCounts := make(map[string]int)

	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		totalMemory += metric.MemoryUsed
		totalRows += metric.RowsProcessed
		operationCounts[metric.Operation]++
		if metric.Failed {
			failures++
		}
	}

	return MetricsSummary{
		TotalOperations: len(mc.metrics),
		Failures:        failures,
		TotalDuration:   totalDuration,
		TotalMemory:     totalMemory,
		TotalRows:       totalRows,
		OperationCounts: operationCounts,
		AverageDuration: totalDuration / time.Duration(len(mc.metrics)),
	}
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations int            `json:"total_operations"`
	Failures        int            `json:"failures"`
	TotalDuration   time.Duration  `json:"total_duration"`
	TotalMemory     int64          `json:"total_memory"`
	TotalRows       int64          `json:"total_rows"`
	OperationCounts map[string]int `json:"operation_counts"`
	AverageDuration time.Duration  `json:"average_duration"`
}

// Log writes the summary and the slowest operations to logger.
func (mc *MetricsCollector) Log(logger *zap.Logger, top int) {
	summary := mc.GetSummary()
	logger.Info("pipeline metrics",
		zap.Int("operations", summary.TotalOperations),
		zap.Int("failures", summary.Failures),
		zap.Duration("total_duration", summary.TotalDuration),
		zap.Duration("average_duration", summary.AverageDuration),
		zap.Int64("total_rows", summary.TotalRows),
		zap.Int64("total_memory", summary.TotalMemory))

	metrics := mc.GetMetrics()
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].Duration > metrics[j].Duration
	})
	if top > len(metrics) {
		top = len(metrics)
	}
	for _, m := range metrics[:top] {
		logger.Debug("stage timing",
			zap.String("operation", m.Operation),
			zap.Duration("duration", m.Duration),
			zap.Int64("rows", m.RowsProcessed),
			zap.Bool("failed", m.Failed))
	}
}
