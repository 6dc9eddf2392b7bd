// Package union fits the per-type pipelines on a dataset and concatenates
// their outputs into one feature matrix with a fixed column order.
package union

import (
	"context"

	"github.com/paveg/featurize/internal/config"
	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/features"
	"github.com/paveg/featurize/internal/frame"
	"github.com/paveg/featurize/internal/monitoring"
	"github.com/paveg/featurize/internal/parallel"
	"github.com/paveg/featurize/internal/transform"
	"github.com/paveg/featurize/internal/validation"
	"go.uber.org/zap"
)

// Options controls how a Union runs its pipelines.
type Options struct {
	// Parallel fits the pipelines on a worker pool.
	Parallel bool
	// Workers sizes the pool; zero uses one worker per CPU.
	Workers int
	Logger  *zap.Logger
	Metrics *monitoring.MetricsCollector
}

// Union runs independent pipelines over the same dataset and concatenates
// their outputs in pipeline order.
type Union struct {
	pipelines []*transform.Pipeline
	fitted    []*transform.FittedPipeline
	opts      Options
	logger    *zap.Logger
}

// New creates a union over pipelines. Output columns follow the order of
// pipelines, then the order each pipeline emits.
func New(pipelines []*transform.Pipeline, opts Options) *Union {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Union{pipelines: pipelines, opts: opts, logger: logger}
}

// Pipelines returns the pipelines in union order.
func (u *Union) Pipelines() []*transform.Pipeline {
	return append([]*transform.Pipeline(nil), u.pipelines...)
}

type fitResult struct {
	fitted *transform.FittedPipeline
	out    *frame.Block
	err    error
}

// FitTransform fits every pipeline on ds and returns the concatenated matrix.
// The fitted pipelines are kept for Transform.
func (u *Union) FitTransform(ds *dataset.Dataset) (*FeatureMatrix, error) {
	return u.FitTransformContext(context.Background(), ds)
}

// FitTransformContext is FitTransform with cancellation of parallel runs.
func (u *Union) FitTransformContext(ctx context.Context, ds *dataset.Dataset) (*FeatureMatrix, error) {
	block, err := u.input(ds)
	if err != nil {
		return nil, err
	}

	runOpts := []transform.RunOption{transform.WithLogger(u.logger), transform.WithMetrics(u.opts.Metrics)}
	fit := func(_ int, p *transform.Pipeline) fitResult {
		fitted, out, err := p.Fit(block, runOpts...)
		return fitResult{fitted: fitted, out: out, err: err}
	}

	var results []fitResult
	if u.opts.Parallel && len(u.pipelines) > 1 {
		wp := parallel.NewWorkerPoolContext(ctx, u.opts.Workers)
		u.logger.Debug("fitting pipelines in parallel",
			zap.Int("pipelines", len(u.pipelines)),
			zap.Int("workers", min(wp.Size(), len(u.pipelines))))
		results = parallel.ProcessIndexed(wp, u.pipelines, fit)
		stopped := wp.Err()
		wp.Close()
		if stopped != nil {
			return nil, errors.NewInternalError("union", stopped)
		}
	} else {
		results = make([]fitResult, len(u.pipelines))
		for i, p := range u.pipelines {
			if err := ctx.Err(); err != nil {
				return nil, errors.NewInternalError("union", err)
			}
			results[i] = fit(i, p)
		}
	}

	fitted := make([]*transform.FittedPipeline, len(results))
	blocks := make([]*frame.Block, len(results))
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		fitted[i] = r.fitted
		blocks[i] = r.out
	}

	m, err := u.concat(block.Rows, blocks)
	if err != nil {
		return nil, err
	}
	u.fitted = fitted

	u.logger.Info("feature matrix assembled",
		zap.Int("rows", m.Rows()),
		zap.Int("columns", m.Cols()),
		zap.Bool("parallel", u.opts.Parallel),
		zap.Uint64("fingerprint", m.Fingerprint()))
	return m, nil
}

// Transform applies the fitted pipelines to new data with the same schema.
func (u *Union) Transform(ds *dataset.Dataset) (*FeatureMatrix, error) {
	if u.fitted == nil {
		return nil, errors.NewInvalidInputError("union", "Transform called before FitTransform")
	}
	block, err := u.input(ds)
	if err != nil {
		return nil, err
	}

	blocks := make([]*frame.Block, len(u.fitted))
	for i, fp := range u.fitted {
		if blocks[i], err = fp.Transform(block); err != nil {
			return nil, err
		}
	}
	return u.concat(block.Rows, blocks)
}

// input converts the columns the pipelines read into one shared block.
func (u *Union) input(ds *dataset.Dataset) (*frame.Block, error) {
	var names []string
	for _, p := range u.pipelines {
		names = append(names, p.Columns()...)
	}
	if err := validation.ValidateColumns(ds, "union", names...); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty(ds, "union"); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return &frame.Block{Rows: ds.Len()}, nil
	}
	return frame.FromDataset(ds, names...)
}

func (u *Union) concat(rows int, blocks []*frame.Block) (*FeatureMatrix, error) {
	cols := 0
	for i, b := range blocks {
		if err := validation.ValidateLength(rows, b.Rows, "union", u.pipelines[i].Name); err != nil {
			return nil, err
		}
		cols += b.Width()
	}

	m := &FeatureMatrix{
		rows:    rows,
		cols:    cols,
		data:    make([]float64, rows*cols),
		columns: make([]ColumnInfo, 0, cols),
	}
	j := 0
	for i, b := range blocks {
		for _, c := range b.Columns {
			values, err := c.Float64s(rows)
			if err != nil {
				return nil, err
			}
			for row, v := range values {
				m.data[row*cols+j] = v
			}
			m.columns = append(m.columns, ColumnInfo{
				Name:     c.Name,
				Pipeline: u.pipelines[i].Name,
				Sources:  append([]string(nil), c.Origin...),
			})
			j++
		}
	}
	return m, nil
}

// Build classifies the feature columns of ds and assembles the four per-type
// pipelines from cfg.
func Build(ds *dataset.Dataset, cfg config.Config, logger *zap.Logger, metrics *monitoring.MetricsCollector) (*Union, features.Groups, error) {
	classifierOpts, err := cfg.ClassifierOptions()
	if err != nil {
		return nil, features.Groups{}, err
	}
	groups, err := features.Classify(ds.Features(), classifierOpts)
	if err != nil {
		return nil, features.Groups{}, err
	}
	if logger != nil && len(groups.Unmatched) > 0 {
		logger.Warn("columns without a feature type tag were dropped",
			zap.Strings("columns", groups.Unmatched))
	}

	pipelines := transform.BuildPipelines(groups, cfg.PipelineOptions())
	return New(pipelines, Options{
		Parallel: cfg.Parallel,
		Workers:  cfg.WorkerPoolSize,
		Logger:   logger,
		Metrics:  metrics,
	}), groups, nil
}
