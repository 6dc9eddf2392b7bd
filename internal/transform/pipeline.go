package transform

import (
	"fmt"

	"github.com/paveg/featurize/internal/errors"
	"github.com/paveg/featurize/internal/features"
	"github.com/paveg/featurize/internal/frame"
	"github.com/paveg/featurize/internal/monitoring"
	"go.uber.org/zap"
)

// Pipeline is a column selector followed by an ordered list of stages.
// Fitting runs every stage on the output of the previous one; each stage
// sees only the columns the selector chose.
type Pipeline struct {
	Name     string
	Selector *Selector
	Stages   []Stage
}

// NewPipeline creates a pipeline over the given columns.
func NewPipeline(name string, columns []string, stages ...Stage) *Pipeline {
	return &Pipeline{Name: name, Selector: NewSelector(columns...), Stages: stages}
}

// Columns returns the columns the pipeline selects.
func (p *Pipeline) Columns() []string {
	return append([]string(nil), p.Selector.Columns...)
}

// RunOption configures a pipeline run.
type RunOption func(*runConfig)

type runConfig struct {
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
}

// WithLogger logs each stage at debug level.
func WithLogger(logger *zap.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records each stage with the collector.
func WithMetrics(metrics *monitoring.MetricsCollector) RunOption {
	return func(c *runConfig) {
		c.metrics = metrics
	}
}

func newRunConfig(opts []RunOption) *runConfig {
	c := &runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FittedPipeline holds the fitted stages of a pipeline and can transform new
// data with the same schema.
type FittedPipeline struct {
	Name   string
	stages []Fitted
	names  []string
}

// Fit fits the pipeline on b and returns the fitted pipeline together with
// the transformed block.
func (p *Pipeline) Fit(b *frame.Block, opts ...RunOption) (*FittedPipeline, *frame.Block, error) {
	cfg := newRunConfig(opts)
	log := cfg.logger.With(zap.String("pipeline", p.Name))

	stages := append([]Stage{p.Selector}, p.Stages...)
	fitted := &FittedPipeline{Name: p.Name, stages: make([]Fitted, 0, len(stages))}

	cur := b
	for _, stage := range stages {
		op := p.Name + "/" + stage.Name()
		var (
			f   Fitted
			out *frame.Block
		)
		run := func() error {
			var err error
			f, out, err = FitTransform(stage, cur)
			return err
		}
		var err error
		if cfg.metrics != nil {
			err = cfg.metrics.RecordOperation(op, int64(cur.Rows), run)
		} else {
			err = run()
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s pipeline: %w", p.Name, err)
		}
		if err := checkStageOutput(op, cur, out); err != nil {
			return nil, nil, err
		}

		log.Debug("stage fitted",
			zap.String("stage", stage.Name()),
			zap.Int("rows", out.Rows),
			zap.Int("columns_in", cur.Width()),
			zap.Int("columns_out", out.Width()))

		fitted.stages = append(fitted.stages, f)
		cur = out
	}
	fitted.names = cur.Names()
	return fitted, cur, nil
}

// Transform applies the fitted stages to b.
func (fp *FittedPipeline) Transform(b *frame.Block) (*frame.Block, error) {
	cur := b
	for _, stage := range fp.stages {
		out, err := stage.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("%s pipeline: %w", fp.Name, err)
		}
		if err := checkStageOutput(fp.Name, cur, out); err != nil {
			return nil, err
		}
		cur = out
	}
	return cur, nil
}

// OutputNames returns the column names produced during Fit.
func (fp *FittedPipeline) OutputNames() []string {
	return append([]string(nil), fp.names...)
}

func checkStageOutput(op string, in, out *frame.Block) error {
	if out.Rows != in.Rows {
		return errors.NewRowCountMismatchError(op, "", in.Rows, out.Rows)
	}
	return out.Validate(op)
}

// Options controls how the default per-type pipelines are assembled.
type Options struct {
	DropFirst         bool
	Polynomial        bool
	VarianceFilter    bool
	VarianceThreshold float64
	Sparse            bool
	MaxCategories     int
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{
		DropFirst:     true,
		MaxCategories: DefaultMaxCategories,
	}
}

func (o Options) withFilter(stages ...Stage) []Stage {
	if o.VarianceFilter {
		stages = append(stages, &VarianceFilter{Threshold: o.VarianceThreshold})
	}
	return stages
}

// BinaryPipeline imputes binary columns with the median.
func BinaryPipeline(columns []string, opts Options) *Pipeline {
	return NewPipeline(features.Binary.String(), columns, opts.withFilter(
		NewImputer(Median),
	)...)
}

// NumericCategoricalPipeline imputes with the median, label encodes and then
// dummy encodes the codes.
func NumericCategoricalPipeline(columns []string, opts Options) *Pipeline {
	return NewPipeline(features.NumericCategorical.String(), columns, opts.withFilter(
		NewImputer(Median),
		&LabelEncoder{AsText: true, MaxCategories: opts.MaxCategories},
		&DummyEncoder{DropFirst: opts.DropFirst, Sparse: opts.Sparse, MaxCategories: opts.MaxCategories},
	)...)
}

// TextCategoricalPipeline reads the columns as text, imputes with the most
// frequent value and dummy encodes.
func TextCategoricalPipeline(columns []string, opts Options) *Pipeline {
	return NewPipeline(features.TextCategorical.String(), columns, opts.withFilter(
		TextCast{},
		NewImputer(MostFrequent),
		&DummyEncoder{DropFirst: opts.DropFirst, Sparse: opts.Sparse, MaxCategories: opts.MaxCategories},
	)...)
}

// NumericPipeline imputes with the mean, optionally expands to degree 2 and
// standardizes.
func NumericPipeline(columns []string, opts Options) *Pipeline {
	stages := []Stage{NewImputer(Mean)}
	if opts.Polynomial {
		stages = append(stages, &Polynomial{Degree: 2})
	}
	stages = append(stages, &Scaler{AllowDegenerate: opts.VarianceFilter})
	return NewPipeline(features.Numeric.String(), columns, opts.withFilter(stages...)...)
}

// BuildPipelines returns one pipeline per feature type in union order.
func BuildPipelines(groups features.Groups, opts Options) []*Pipeline {
	return []*Pipeline{
		BinaryPipeline(groups.Get(features.Binary), opts),
		NumericCategoricalPipeline(groups.Get(features.NumericCategorical), opts),
		TextCategoricalPipeline(groups.Get(features.TextCategorical), opts),
		NumericPipeline(groups.Get(features.Numeric), opts),
	}
}
