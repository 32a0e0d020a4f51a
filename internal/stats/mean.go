package stats

import (
	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

// MeanCalculator incrementally tracks the mean of one tensor over one
// reduction-axis set, serving both the sample- and dataset-scope mean.
//
// Partial means are combined weighted by their reduced element count: a
// batch contributing mean m_b over n_b collapsed elements merges with the
// running (n_a, m_a) as (n_a*m_a + n_b*m_b) / (n_a + n_b).
type MeanCalculator struct {
	tensorID string
	axes     []tensor.Axis

	n    float64
	mean *tensor.Tensor

	sampleMean  measure.Measure
	datasetMean measure.Measure
}

// NewMeanCalculator builds a mean calculator for tensorID reduced over axes
// (nil: all axes).
func NewMeanCalculator(tensorID string, axes []tensor.Axis) *MeanCalculator {
	return &MeanCalculator{
		tensorID:    tensorID,
		axes:        axes,
		sampleMean:  measure.SampleMean(tensorID, axes),
		datasetMean: measure.DatasetMean(tensorID, axes),
	}
}

// Compute returns the mean of the given sample alone.
func (c *MeanCalculator) Compute(s *measure.Sample) (measure.Values, error) {
	_, m, err := c.computeImpl(s)
	if err != nil {
		return nil, err
	}
	return measure.Values{c.sampleMean: m}, nil
}

// Update folds the sample's mean into the running aggregate.
func (c *MeanCalculator) Update(s *measure.Sample) error {
	t, m, err := c.computeImpl(s)
	if err != nil {
		return err
	}
	return c.updateImpl(t, m)
}

// ComputeAndUpdate does both in one pass, reusing the sample's mean.
func (c *MeanCalculator) ComputeAndUpdate(s *measure.Sample) (measure.Values, error) {
	t, m, err := c.computeImpl(s)
	if err != nil {
		return nil, err
	}
	if err := c.updateImpl(t, m); err != nil {
		return nil, err
	}
	return measure.Values{c.sampleMean: m}, nil
}

// Finalize returns the accumulated dataset mean, or an empty map if no
// sample was ever observed.
func (c *MeanCalculator) Finalize() (measure.Values, error) {
	if c.mean == nil {
		return measure.Values{}, nil
	}
	return measure.Values{c.datasetMean: c.mean}, nil
}

func (c *MeanCalculator) computeImpl(s *measure.Sample) (*tensor.Tensor, *tensor.Tensor, error) {
	t, err := sampleTensor(s, c.tensorID)
	if err != nil {
		return nil, nil, err
	}
	m, err := t.Mean(c.axes)
	if err != nil {
		return nil, nil, err
	}
	return t, m, nil
}

func (c *MeanCalculator) updateImpl(t, mean *tensor.Tensor) error {
	// Weight of this batch: elements collapsed per output cell, not the
	// sample count. Axis sizes may differ between samples.
	nb := float64(t.Size()) / float64(mean.Size())
	if c.mean == nil {
		c.n = nb
		c.mean = mean
		return nil
	}
	na := c.n
	n := na + nb
	scaled, err := c.mean.Scale(na).Add(mean.Scale(nb))
	if err != nil {
		return err
	}
	c.n = n
	c.mean = scaled.Scale(1 / n)
	return nil
}
