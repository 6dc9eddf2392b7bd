// Package resample rebalances a binary-target dataset by drawing minority
// rows with replacement and shuffling the result.
package resample

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paveg/featurize/internal/dataset"
	"github.com/paveg/featurize/internal/errors"
)

// Options controls upsampling.
type Options struct {
	// Ratio is the target share of minority rows, in [0, 1). Zero disables resampling.
	Ratio float64
	// Seed drives both the minority draw and the shuffle.
	Seed uint64
}

// Stats describes the rows a resampling run produced.
type Stats struct {
	Majority int
	Minority int
	Drawn    int
	Total    int
}

// Upsample returns a resampled copy of ds. See UpsampleWithStats.
func Upsample(ds *dataset.Dataset, opts Options) (*dataset.Dataset, error) {
	out, _, err := UpsampleWithStats(ds, opts)
	return out, err
}

// UpsampleWithStats splits ds on its target column into majority (0) and
// minority (1) rows, draws round(r*M/(1-r)) minority rows with replacement,
// appends them to the majority rows and shuffles the combined rows. The
// output keeps the column schema and roles of ds. A zero ratio returns ds
// itself.
func UpsampleWithStats(ds *dataset.Dataset, opts Options) (*dataset.Dataset, Stats, error) {
	if math.IsNaN(opts.Ratio) || opts.Ratio < 0 || opts.Ratio >= 1 {
		return nil, Stats{}, errors.NewInvalidInputError("upsample",
			fmt.Sprintf("ratio must be in [0, 1), got %v", opts.Ratio))
	}
	if opts.Ratio == 0 {
		return ds, Stats{Total: ds.Len()}, nil
	}
	if ds.TargetColumn() == "" {
		return nil, Stats{}, errors.NewSchemaError("upsample", "", "dataset has no target column").
			WithHint("set the target column before resampling")
	}

	labels, err := ds.Target()
	if err != nil {
		return nil, Stats{}, err
	}

	majority := make([]int, 0, len(labels))
	minority := make([]int, 0)
	for i, label := range labels {
		if label == 1 {
			minority = append(minority, i)
		} else {
			majority = append(majority, i)
		}
	}

	n := DrawCount(opts.Ratio, len(majority))
	if n > 0 && len(minority) == 0 {
		return nil, Stats{}, errors.NewInvalidInputError("upsample", "no minority rows to draw from")
	}

	rows := make([]int, 0, len(majority)+n)
	rows = append(rows, majority...)
	draw := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	for i := 0; i < n; i++ {
		rows = append(rows, minority[draw.IntN(len(minority))])
	}

	// the shuffle restarts the seeded stream rather than continuing the draw's,
	// so each step depends on the seed alone
	shuffle := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	shuffle.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	out, err := ds.Take(rows)
	if err != nil {
		return nil, Stats{}, err
	}

	return out, Stats{
		Majority: len(majority),
		Minority: len(minority),
		Drawn:    n,
		Total:    len(rows),
	}, nil
}

// DrawCount returns the number of minority rows drawn for the given ratio
// and majority count.
func DrawCount(ratio float64, majority int) int {
	if ratio <= 0 {
		return 0
	}
	return int(math.Round(ratio * float64(majority) / (1 - ratio)))
}
