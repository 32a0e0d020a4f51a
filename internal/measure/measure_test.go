package measure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

func TestAxesKeyRoundTrip(t *testing.T) {
	assert.Equal(t, measure.AllAxes, measure.KeyOf(nil))
	assert.Nil(t, measure.AllAxes.Axes())

	empty := measure.KeyOf([]tensor.Axis{})
	assert.Equal(t, measure.AxesKey(""), empty)
	assert.NotNil(t, empty.Axes())
	assert.Len(t, empty.Axes(), 0)

	k := measure.KeyOf([]tensor.Axis{"x", "y"})
	assert.Equal(t, []tensor.Axis{"x", "y"}, k.Axes())

	// Order is part of the identity.
	assert.NotEqual(t, k, measure.KeyOf([]tensor.Axis{"y", "x"}))
}

func TestMeasureEquality(t *testing.T) {
	a := measure.DatasetMean("act", []tensor.Axis{"x", "y"})
	b := measure.DatasetMean("act", []tensor.Axis{"x", "y"})
	assert.Equal(t, a, b)

	m := map[measure.Measure]int{a: 1}
	m[b]++
	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[a])

	assert.NotEqual(t, a, measure.SampleMean("act", []tensor.Axis{"x", "y"}))
	assert.NotEqual(t, a, measure.DatasetVar("act", []tensor.Axis{"x", "y"}))
	assert.NotEqual(t, a, measure.DatasetMean("other", []tensor.Axis{"x", "y"}))
}

func TestPercentileRankValidation(t *testing.T) {
	assert.NotPanics(t, func() { measure.SamplePercentile("t", nil, 0) })
	assert.NotPanics(t, func() { measure.DatasetPercentile("t", nil, 100) })
	assert.Panics(t, func() { measure.SamplePercentile("t", nil, -1) })
	assert.Panics(t, func() { measure.DatasetPercentile("t", nil, 100.5) })
}

func TestPercentileRankDistinguishes(t *testing.T) {
	p50 := measure.DatasetPercentile("t", nil, 50)
	p90 := measure.DatasetPercentile("t", nil, 90)
	assert.NotEqual(t, p50, p90)
}

func TestParseScopeAndKind(t *testing.T) {
	s, err := measure.ParseScope("Dataset")
	require.NoError(t, err)
	assert.Equal(t, measure.ScopeDataset, s)

	k, err := measure.ParseKind("variance")
	require.NoError(t, err)
	assert.Equal(t, measure.Variance, k)

	_, err = measure.ParseScope("global")
	assert.ErrorIs(t, err, measure.ErrUnknownScope)
	_, err = measure.ParseKind("median")
	assert.ErrorIs(t, err, measure.ErrUnknownKind)
}

func TestValuesMerge(t *testing.T) {
	a := measure.Values{measure.DatasetMean("x", nil): tensor.Scalar(1)}
	b := measure.Values{measure.DatasetStd("x", nil): tensor.Scalar(2)}
	merged := measure.Values{}.Merge(a).Merge(b)
	assert.Len(t, merged, 2)
}

func TestMeasureString(t *testing.T) {
	m := measure.DatasetPercentile("act", []tensor.Axis{"x"}, 99)
	s := m.String()
	assert.Contains(t, s, "dataset")
	assert.Contains(t, s, "percentile")
	assert.Contains(t, s, "act")
	assert.Contains(t, s, "99")
}
