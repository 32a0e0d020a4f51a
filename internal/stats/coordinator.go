package stats

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
)

// StatsCalculator orchestrates the planned calculators over a stream of
// samples: it feeds every dataset calculator on update, counts samples,
// caches the merged finalized result until the next update invalidates it,
// and evaluates sample-scope measures on demand.
//
// It is built for single-threaded, in-process use; samples are consumed
// eagerly in arrival order. Nothing is shared between calculator instances.
type StatsCalculator struct {
	sampleCalcs  []SampleCalculator
	datasetCalcs []DatasetCalculator
	sampleCount  int
	logger       *zap.Logger

	// current caches the merged finalized dataset measures; nil means the
	// cache is stale (or was never populated) and Finalize must recompute.
	current measure.Values
}

// NewStatsCalculator plans calculators for the required measures. If
// initial is non-nil and covers every requested dataset-scope measure, it
// pre-seeds the finalized state and no accumulation is needed until the
// next update; incomplete coverage discards the snapshot with a warning.
func NewStatsCalculator(required []measure.Measure, cfg PlannerConfig, initial measure.Values) *StatsCalculator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sampleCalcs, datasetCalcs := GetMeasureCalculators(required, cfg)
	c := &StatsCalculator{
		sampleCalcs:  sampleCalcs,
		datasetCalcs: datasetCalcs,
		logger:       logger,
	}

	if initial == nil {
		return c
	}
	var missing []string
	for _, m := range required {
		if m.Scope != measure.ScopeDataset {
			continue
		}
		if _, ok := initial[m]; !ok {
			missing = append(missing, m.String())
		}
	}
	if len(missing) > 0 {
		logger.Warn("ignoring initial dataset measures; snapshot does not cover every requested measure",
			zap.Strings("missing", missing),
		)
		return c
	}
	c.current = make(measure.Values, len(initial)).Merge(initial)
	return c
}

// SampleCount reports how many samples have been fed into Update so far.
func (c *StatsCalculator) SampleCount() int { return c.sampleCount }

// HasDatasetMeasures reports whether a finalized (or pre-seeded) dataset
// result is currently cached.
func (c *StatsCalculator) HasDatasetMeasures() bool { return c.current != nil }

// Update feeds every sample to every dataset calculator, in order, and
// invalidates the cached finalized result. A failing calculator fails the
// whole step: the error propagates immediately and the remaining stream is
// not applied.
func (c *StatsCalculator) Update(samples ...*measure.Sample) error {
	_, err := c.update(samples)
	return err
}

// Finalize returns the aggregated dataset statistics. The result is cached:
// calling Finalize again without an intervening Update returns the same
// map.
func (c *StatsCalculator) Finalize() (measure.Values, error) {
	if c.current != nil {
		return c.current, nil
	}
	merged := measure.Values{}
	for _, calc := range c.datasetCalcs {
		values, err := calc.Finalize()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
		}
		merged.Merge(values)
	}
	c.current = merged
	return merged, nil
}

// UpdateAndGetAll updates with the given stream, then returns the
// finalized dataset statistics together with the sample statistics of the
// stream's last sample. An empty stream is an input error
// (ErrEmptySampleStream).
func (c *StatsCalculator) UpdateAndGetAll(samples ...*measure.Sample) (measure.Values, error) {
	last, err := c.update(samples)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrEmptySampleStream
	}
	return c.getAll(last)
}

// SkipUpdateAndGetAll returns the sample statistics of the given sample
// merged with the currently cached (or freshly finalized) dataset
// statistics, without feeding the sample into any dataset calculator. Used
// when dataset statistics were precomputed or are deliberately frozen.
func (c *StatsCalculator) SkipUpdateAndGetAll(sample *measure.Sample) (measure.Values, error) {
	return c.getAll(sample)
}

func (c *StatsCalculator) getAll(sample *measure.Sample) (measure.Values, error) {
	computed, err := c.compute(sample)
	if err != nil {
		return nil, err
	}
	dataset, err := c.Finalize()
	if err != nil {
		return nil, err
	}
	return make(measure.Values, len(computed)+len(dataset)).Merge(computed).Merge(dataset), nil
}

func (c *StatsCalculator) update(samples []*measure.Sample) (*measure.Sample, error) {
	c.current = nil
	var last *measure.Sample
	for _, s := range samples {
		for _, calc := range c.datasetCalcs {
			if err := calc.Update(s); err != nil {
				return nil, fmt.Errorf("%w: sample %q: %w", ErrUpdateFailed, s.ID, err)
			}
		}
		c.sampleCount++
		last = s
	}
	return last, nil
}

func (c *StatsCalculator) compute(sample *measure.Sample) (measure.Values, error) {
	merged := measure.Values{}
	for _, calc := range c.sampleCalcs {
		values, err := calc.Compute(sample)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %q: %w", ErrComputeFailed, sample.ID, err)
		}
		merged.Merge(values)
	}
	return merged, nil
}

// ComputeDatasetMeasures computes all dataset-scope measures over the given
// dataset in one pass. Every measure must be dataset-scope; a sample-scope
// measure in the request is a programming error.
func ComputeDatasetMeasures(required []measure.Measure, dataset []*measure.Sample, cfg PlannerConfig) (measure.Values, error) {
	sampleCalcs, datasetCalcs := GetMeasureCalculators(required, cfg)
	if len(sampleCalcs) != 0 {
		panic("dataset-only computation requested with sample-scope measures")
	}
	for _, s := range dataset {
		for _, calc := range datasetCalcs {
			if err := calc.Update(s); err != nil {
				return nil, fmt.Errorf("%w: sample %q: %w", ErrUpdateFailed, s.ID, err)
			}
		}
	}
	merged := measure.Values{}
	for _, calc := range datasetCalcs {
		values, err := calc.Finalize()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
		}
		merged.Merge(values)
	}
	return merged, nil
}

// ComputeSampleMeasures computes all sample-scope measures for one sample.
// Every measure must be sample-scope; a dataset-scope measure in the
// request is a programming error.
func ComputeSampleMeasures(required []measure.Measure, sample *measure.Sample, cfg PlannerConfig) (measure.Values, error) {
	sampleCalcs, datasetCalcs := GetMeasureCalculators(required, cfg)
	if len(datasetCalcs) != 0 {
		panic("sample-only computation requested with dataset-scope measures")
	}
	merged := measure.Values{}
	for _, calc := range sampleCalcs {
		values, err := calc.Compute(sample)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %q: %w", ErrComputeFailed, sample.ID, err)
		}
		merged.Merge(values)
	}
	return merged, nil
}

// ComputeMeasures computes all measures over the given dataset;
// sample-scope measures are evaluated on the dataset's last sample.
func ComputeMeasures(required []measure.Measure, dataset []*measure.Sample, cfg PlannerConfig) (measure.Values, error) {
	calc := NewStatsCalculator(required, cfg, nil)
	return calc.UpdateAndGetAll(dataset...)
}
