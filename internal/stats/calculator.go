// Package stats implements the statistics-aggregation engine: incremental
// mean/variance/std calculators, percentile calculators, the planner that
// dedups them against a set of requested measures, and the coordinator that
// drives them over a sample stream.
package stats

import (
	"fmt"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

// SampleCalculator evaluates statistics of a single sample without touching
// any accumulated state.
type SampleCalculator interface {
	Compute(s *measure.Sample) (measure.Values, error)
}

// DatasetCalculator accumulates statistics across a stream of samples.
// Update folds one sample into the internal state; Finalize reads the
// aggregate out without mutating it. Finalize on a calculator that never
// observed a sample returns an empty value map.
type DatasetCalculator interface {
	Update(s *measure.Sample) error
	Finalize() (measure.Values, error)
}

func sampleTensor(s *measure.Sample, id string) (*tensor.Tensor, error) {
	t, ok := s.Tensor(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q in sample %q", ErrMissingTensor, id, s.ID)
	}
	return t, nil
}
