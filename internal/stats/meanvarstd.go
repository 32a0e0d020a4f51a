package stats

import (
	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

// MeanVarStdCalculator jointly tracks mean, population variance, and
// standard deviation of one tensor over one reduction-axis set; the three
// share their sufficient statistics (n, mean, M2).
//
// Partial aggregates merge via parallel moment combination:
//
//	n    = n_a + n_b
//	mean = (n_a*mean_a + n_b*mean_b) / n
//	M2   = M2_a + M2_b + (mean_b - mean_a)^2 * n_a*n_b/n
//
// which stays numerically stable under repeated combination, unlike a
// naive sum of squares.
type MeanVarStdCalculator struct {
	tensorID string
	axes     []tensor.Axis

	n    float64
	mean *tensor.Tensor
	m2   *tensor.Tensor

	sample  [3]measure.Measure // mean, var, std
	dataset [3]measure.Measure
}

// NewMeanVarStdCalculator builds a joint mean/var/std calculator for
// tensorID reduced over axes (nil: all axes).
func NewMeanVarStdCalculator(tensorID string, axes []tensor.Axis) *MeanVarStdCalculator {
	return &MeanVarStdCalculator{
		tensorID: tensorID,
		axes:     axes,
		sample: [3]measure.Measure{
			measure.SampleMean(tensorID, axes),
			measure.SampleVar(tensorID, axes),
			measure.SampleStd(tensorID, axes),
		},
		dataset: [3]measure.Measure{
			measure.DatasetMean(tensorID, axes),
			measure.DatasetVar(tensorID, axes),
			measure.DatasetStd(tensorID, axes),
		},
	}
}

// Compute returns the exact in-sample mean, population variance, and
// standard deviation of the given sample alone.
func (c *MeanVarStdCalculator) Compute(s *measure.Sample) (measure.Values, error) {
	_, mean, m2, nb, err := c.batchStats(s)
	if err != nil {
		return nil, err
	}
	variance := m2.Scale(1 / nb)
	return measure.Values{
		c.sample[0]: mean,
		c.sample[1]: variance,
		c.sample[2]: variance.Sqrt(),
	}, nil
}

// Update folds the sample's moments into the running aggregate.
func (c *MeanVarStdCalculator) Update(s *measure.Sample) error {
	_, meanB, m2B, nb, err := c.batchStats(s)
	if err != nil {
		return err
	}
	if c.mean == nil {
		c.n = nb
		c.mean = meanB
		c.m2 = m2B
		return nil
	}

	na := c.n
	n := na + nb
	mean, err := c.mean.Scale(na).Add(meanB.Scale(nb))
	if err != nil {
		return err
	}
	mean = mean.Scale(1 / n)

	d, err := meanB.Sub(c.mean)
	if err != nil {
		return err
	}
	d2, err := d.Mul(d)
	if err != nil {
		return err
	}
	m2, err := c.m2.Add(m2B)
	if err != nil {
		return err
	}
	m2, err = m2.Add(d2.Scale(na * nb / n))
	if err != nil {
		return err
	}

	c.n = n
	c.mean = mean
	c.m2 = m2
	return nil
}

// Finalize returns the accumulated dataset mean, variance, and standard
// deviation, or an empty map if no sample was ever observed.
func (c *MeanVarStdCalculator) Finalize() (measure.Values, error) {
	if c.mean == nil {
		return measure.Values{}, nil
	}
	variance := c.m2.Scale(1 / c.n)
	return measure.Values{
		c.dataset[0]: c.mean,
		c.dataset[1]: variance,
		c.dataset[2]: variance.Sqrt(),
	}, nil
}

func (c *MeanVarStdCalculator) batchStats(s *measure.Sample) (t, mean, m2 *tensor.Tensor, nb float64, err error) {
	t, err = sampleTensor(s, c.tensorID)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	mean, err = t.Mean(c.axes)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	m2, err = t.SumSqDev(mean, c.axes)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	nb = float64(t.Size()) / float64(mean.Size())
	return t, mean, m2, nb, nil
}
