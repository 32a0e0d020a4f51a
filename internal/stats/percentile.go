package stats

import (
	"fmt"

	"github.com/influxdata/tdigest"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

// PercentileSketch is the capability a dataset percentile strategy needs
// from its backing summary structure: stream values in, query ranks out.
type PercentileSketch interface {
	Add(v float64)
	// Quantile evaluates the sketch at fraction q in [0,1].
	Quantile(q float64) float64
}

type tdigestSketch struct {
	td *tdigest.TDigest
}

func newTDigestSketch(compression float64) PercentileSketch {
	return &tdigestSketch{td: tdigest.NewWithCompression(compression)}
}

func (s *tdigestSketch) Add(v float64) { s.td.Add(v, 1) }

func (s *tdigestSketch) Quantile(q float64) float64 { return s.td.Quantile(q) }

func fractionsOf(ranks []float64) []float64 {
	qs := make([]float64, len(ranks))
	for i, r := range ranks {
		qs[i] = r / 100
	}
	return qs
}

// SamplePercentilesCalculator computes exact per-sample percentiles for a
// fixed batch of ranks. It is stateless; every sample is evaluated
// independently.
type SamplePercentilesCalculator struct {
	tensorID string
	axes     []tensor.Axis
	qs       []float64
	measures []measure.Measure
}

// NewSamplePercentilesCalculator builds a sample percentile calculator for
// tensorID reduced over axes, serving every rank in ranks.
func NewSamplePercentilesCalculator(tensorID string, axes []tensor.Axis, ranks []float64) *SamplePercentilesCalculator {
	c := &SamplePercentilesCalculator{
		tensorID: tensorID,
		axes:     axes,
		qs:       fractionsOf(ranks),
		measures: make([]measure.Measure, len(ranks)),
	}
	for i, r := range ranks {
		c.measures[i] = measure.SamplePercentile(tensorID, axes, r)
	}
	return c
}

// Compute evaluates every configured rank on the given sample.
func (c *SamplePercentilesCalculator) Compute(s *measure.Sample) (measure.Values, error) {
	t, err := sampleTensor(s, c.tensorID)
	if err != nil {
		return nil, err
	}
	ps, err := t.Quantiles(c.qs, c.axes)
	if err != nil {
		return nil, err
	}
	out := make(measure.Values, len(ps))
	for i, p := range ps {
		out[c.measures[i]] = p
	}
	return out, nil
}

// MeanPercentilesCalculator estimates dataset percentiles by averaging
// per-sample percentile estimates, weighted by each sample's reduced
// element count. Averaging per-batch quantiles is not the quantile of the
// union; the result is a deliberate heuristic and Finalize logs a warning
// saying so.
type MeanPercentilesCalculator struct {
	tensorID string
	axes     []tensor.Axis
	ranks    []float64
	qs       []float64
	logger   *zap.Logger

	n         float64
	estimates []*tensor.Tensor // one per rank
}

// NewMeanPercentilesCalculator builds the naive dataset percentile
// calculator for tensorID reduced over axes, serving every rank in ranks.
func NewMeanPercentilesCalculator(tensorID string, axes []tensor.Axis, ranks []float64, logger *zap.Logger) *MeanPercentilesCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeanPercentilesCalculator{
		tensorID: tensorID,
		axes:     axes,
		ranks:    ranks,
		qs:       fractionsOf(ranks),
		logger:   logger,
	}
}

// Update folds the sample's percentile estimates into the running average.
func (c *MeanPercentilesCalculator) Update(s *measure.Sample) error {
	t, err := sampleTensor(s, c.tensorID)
	if err != nil {
		return err
	}
	est, err := t.Quantiles(c.qs, c.axes)
	if err != nil {
		return err
	}
	nb := float64(t.Size()) / float64(est[0].Size())
	if c.estimates == nil {
		c.n = nb
		c.estimates = est
		return nil
	}
	n := c.n + nb
	for i := range c.estimates {
		combined, err := c.estimates[i].Scale(c.n).Add(est[i].Scale(nb))
		if err != nil {
			return err
		}
		c.estimates[i] = combined.Scale(1 / n)
	}
	c.n = n
	return nil
}

// Finalize returns the averaged estimates, logging that they are
// approximate. Empty if no sample was ever observed.
func (c *MeanPercentilesCalculator) Finalize() (measure.Values, error) {
	if c.estimates == nil {
		return measure.Values{}, nil
	}
	c.logger.Warn("dataset percentiles computed naively by averaging per-sample percentiles; values are approximate",
		zap.String("tensor_id", c.tensorID),
		zap.Float64s("ranks", c.ranks),
	)
	out := make(measure.Values, len(c.ranks))
	for i, r := range c.ranks {
		out[measure.DatasetPercentile(c.tensorID, c.axes, r)] = c.estimates[i]
	}
	return out, nil
}

// SketchPercentilesCalculator estimates dataset percentiles with one
// mergeable rank sketch per output cell. Sketches are created lazily from
// the first sample's reduction layout; later samples must reduce to the
// same layout.
type SketchPercentilesCalculator struct {
	tensorID    string
	axes        []tensor.Axis
	ranks       []float64
	compression float64
	logger      *zap.Logger

	outDims  []tensor.Axis
	outShape []int
	sketches []PercentileSketch
}

// NewSketchPercentilesCalculator builds the sketch-backed dataset
// percentile calculator for tensorID reduced over axes, serving every rank
// in ranks. compression tunes the underlying t-digest; values <= 0 select
// the default of 1000.
func NewSketchPercentilesCalculator(tensorID string, axes []tensor.Axis, ranks []float64, compression float64, logger *zap.Logger) *SketchPercentilesCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if compression <= 0 {
		compression = 1000
	}
	logger.Warn("computing dataset percentiles with experimental t-digest sketch",
		zap.String("tensor_id", tensorID),
		zap.Float64("compression", compression),
	)
	return &SketchPercentilesCalculator{
		tensorID:    tensorID,
		axes:        axes,
		ranks:       ranks,
		compression: compression,
		logger:      logger,
	}
}

// Update feeds every element of the sample into its output cell's sketch.
func (c *SketchPercentilesCalculator) Update(s *measure.Sample) error {
	t, err := sampleTensor(s, c.tensorID)
	if err != nil {
		return err
	}
	dims, shape, groups, err := t.Groups(c.axes)
	if err != nil {
		return err
	}
	if c.sketches == nil {
		c.outDims = dims
		c.outShape = shape
		c.sketches = make([]PercentileSketch, len(groups))
		for i := range c.sketches {
			c.sketches[i] = newTDigestSketch(c.compression)
		}
	} else if !sameLayout(c.outDims, c.outShape, dims, shape) {
		return fmt.Errorf("%w: sketch cells laid out for %v/%v, sample reduces to %v/%v",
			tensor.ErrLayoutMismatch, c.outDims, c.outShape, dims, shape)
	}
	for cell, g := range groups {
		if len(g) == 0 {
			return fmt.Errorf("%w: sketch update over %v of %s", tensor.ErrEmptyReduction, c.axes, t)
		}
		for _, v := range g {
			c.sketches[cell].Add(v)
		}
	}
	return nil
}

// Finalize queries every sketch at every configured rank and reassembles
// the results into tensors shaped like the non-reduced axes.
func (c *SketchPercentilesCalculator) Finalize() (measure.Values, error) {
	if c.sketches == nil {
		return measure.Values{}, nil
	}
	out := make(measure.Values, len(c.ranks))
	for _, r := range c.ranks {
		data := make([]float64, len(c.sketches))
		for cell, sk := range c.sketches {
			data[cell] = sk.Quantile(r / 100)
		}
		value, err := tensor.New(append([]tensor.Axis(nil), c.outDims...), append([]int(nil), c.outShape...), data)
		if err != nil {
			return nil, err
		}
		out[measure.DatasetPercentile(c.tensorID, c.axes, r)] = value
	}
	return out, nil
}

func sameLayout(dims []tensor.Axis, shape []int, otherDims []tensor.Axis, otherShape []int) bool {
	if len(dims) != len(otherDims) {
		return false
	}
	for i := range dims {
		if dims[i] != otherDims[i] || shape[i] != otherShape[i] {
			return false
		}
	}
	return true
}
