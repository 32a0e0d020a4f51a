package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

func newTensor(t *testing.T, dims []tensor.Axis, shape []int, data []float64) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.New(dims, shape, data)
	require.NoError(t, err)
	return tt
}

// flatSample wraps a 1-d tensor named "act" over axis "i".
func flatSample(t *testing.T, id string, data []float64) *measure.Sample {
	t.Helper()
	return &measure.Sample{
		ID:   id,
		Data: map[string]*tensor.Tensor{"act": newTensor(t, []tensor.Axis{"i"}, []int{len(data)}, data)},
	}
}

// onesSample wraps an all-ones (x, y) tensor named "act".
func onesSample(t *testing.T, id string, h, w int) *measure.Sample {
	t.Helper()
	tt, err := tensor.Full([]tensor.Axis{"x", "y"}, []int{h, w}, 1)
	require.NoError(t, err)
	return &measure.Sample{ID: id, Data: map[string]*tensor.Tensor{"act": tt}}
}

func scalarOf(t *testing.T, values measure.Values, m measure.Measure) float64 {
	t.Helper()
	value, ok := values[m]
	require.True(t, ok, "missing %s", m)
	v, err := value.Item()
	require.NoError(t, err)
	return v
}
