package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/stats"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

func TestSamplePercentilesCompute(t *testing.T) {
	calc := stats.NewSamplePercentilesCalculator("act", nil, []float64{0, 50, 100})
	values, err := calc.Compute(flatSample(t, "s0", []float64{8, 1, 5, 2, 7, 3, 6, 4}))
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.InDelta(t, 1, scalarOf(t, values, measure.SamplePercentile("act", nil, 0)), 1e-12)
	assert.InDelta(t, 4.5, scalarOf(t, values, measure.SamplePercentile("act", nil, 50)), 1e-12)
	assert.InDelta(t, 8, scalarOf(t, values, measure.SamplePercentile("act", nil, 100)), 1e-12)
}

func TestSamplePercentilesStateless(t *testing.T) {
	calc := stats.NewSamplePercentilesCalculator("act", nil, []float64{50})
	v1, err := calc.Compute(flatSample(t, "a", []float64{1, 2, 3}))
	require.NoError(t, err)
	v2, err := calc.Compute(flatSample(t, "b", []float64{100, 200, 300}))
	require.NoError(t, err)
	assert.InDelta(t, 2, scalarOf(t, v1, measure.SamplePercentile("act", nil, 50)), 1e-12)
	assert.InDelta(t, 200, scalarOf(t, v2, measure.SamplePercentile("act", nil, 50)), 1e-12)
}

func TestMeanPercentilesEqualWeights(t *testing.T) {
	calc := stats.NewMeanPercentilesCalculator("act", nil, []float64{50}, nil)
	require.NoError(t, calc.Update(flatSample(t, "a", []float64{1, 2, 3, 4})))
	require.NoError(t, calc.Update(flatSample(t, "b", []float64{5, 6, 7, 8})))

	values, err := calc.Finalize()
	require.NoError(t, err)
	// Average of the per-sample medians 2.5 and 6.5.
	assert.InDelta(t, 4.5, scalarOf(t, values, measure.DatasetPercentile("act", nil, 50)), 1e-12)
}

func TestMeanPercentilesWeightedByElementCount(t *testing.T) {
	calc := stats.NewMeanPercentilesCalculator("act", nil, []float64{50}, nil)
	require.NoError(t, calc.Update(flatSample(t, "a", []float64{2, 2, 2, 2})))
	require.NoError(t, calc.Update(flatSample(t, "b", []float64{10, 20})))

	values, err := calc.Finalize()
	require.NoError(t, err)
	// (4*2 + 2*15) / 6
	assert.InDelta(t, 38.0/6.0, scalarOf(t, values, measure.DatasetPercentile("act", nil, 50)), 1e-12)
}

func TestMeanPercentilesFinalizeUnobserved(t *testing.T) {
	calc := stats.NewMeanPercentilesCalculator("act", nil, []float64{50}, nil)
	values, err := calc.Finalize()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestSketchPercentilesExtremes(t *testing.T) {
	calc := stats.NewSketchPercentilesCalculator("act", nil, []float64{0, 50, 100}, 0, nil)
	require.NoError(t, calc.Update(flatSample(t, "a", []float64{1, 2, 3, 4})))
	require.NoError(t, calc.Update(flatSample(t, "b", []float64{5, 6, 7, 8})))

	values, err := calc.Finalize()
	require.NoError(t, err)
	require.Len(t, values, 3)
	// Ranks 0 and 100 are the true stream extremes.
	assert.InDelta(t, 1, scalarOf(t, values, measure.DatasetPercentile("act", nil, 0)), 1e-12)
	assert.InDelta(t, 8, scalarOf(t, values, measure.DatasetPercentile("act", nil, 100)), 1e-12)
	// The median is approximate but close for a small stream.
	assert.InDelta(t, 4.5, scalarOf(t, values, measure.DatasetPercentile("act", nil, 50)), 1.0)
}

func TestSketchPercentilesPerCell(t *testing.T) {
	calc := stats.NewSketchPercentilesCalculator("act", []tensor.Axis{"x"}, []float64{0, 100}, 0, nil)
	s := &measure.Sample{
		ID:   "s0",
		Data: map[string]*tensor.Tensor{"act": newTensor(t, []tensor.Axis{"x", "y"}, []int{2, 2}, []float64{1, 10, 3, 30})},
	}
	require.NoError(t, calc.Update(s))

	values, err := calc.Finalize()
	require.NoError(t, err)
	axes := []tensor.Axis{"x"}
	lo := values[measure.DatasetPercentile("act", axes, 0)]
	hi := values[measure.DatasetPercentile("act", axes, 100)]
	require.NotNil(t, lo)
	require.NotNil(t, hi)
	assert.Equal(t, []tensor.Axis{"y"}, lo.Dims())
	assert.InDeltaSlice(t, []float64{1, 10}, lo.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{3, 30}, hi.Data(), 1e-12)
}

func TestSketchPercentilesLayoutMismatch(t *testing.T) {
	calc := stats.NewSketchPercentilesCalculator("act", []tensor.Axis{"x"}, []float64{50}, 0, nil)
	first := &measure.Sample{
		ID:   "a",
		Data: map[string]*tensor.Tensor{"act": newTensor(t, []tensor.Axis{"x", "y"}, []int{2, 2}, []float64{1, 2, 3, 4})},
	}
	require.NoError(t, calc.Update(first))

	second := &measure.Sample{
		ID:   "b",
		Data: map[string]*tensor.Tensor{"act": newTensor(t, []tensor.Axis{"x", "y"}, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})},
	}
	err := calc.Update(second)
	assert.ErrorIs(t, err, tensor.ErrLayoutMismatch)
}

func TestSketchPercentilesFinalizeUnobserved(t *testing.T) {
	calc := stats.NewSketchPercentilesCalculator("act", nil, []float64{50}, 0, nil)
	values, err := calc.Finalize()
	require.NoError(t, err)
	assert.Empty(t, values)
}
