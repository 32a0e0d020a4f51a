package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/stats"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

func TestCoordinatorUpdateAndFinalize(t *testing.T) {
	required := []measure.Measure{measure.DatasetMean("act", nil)}
	calc := stats.NewStatsCalculator(required, stats.PlannerConfig{}, nil)

	require.NoError(t, calc.Update(
		onesSample(t, "a", 2, 2),
		onesSample(t, "b", 3, 3),
		onesSample(t, "c", 1, 1),
	))
	assert.Equal(t, 3, calc.SampleCount())

	values, err := calc.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)
}

func TestCoordinatorFinalizeCached(t *testing.T) {
	required := []measure.Measure{measure.DatasetMean("act", nil)}
	calc := stats.NewStatsCalculator(required, stats.PlannerConfig{}, nil)
	require.NoError(t, calc.Update(flatSample(t, "a", []float64{1, 2, 3})))

	assert.False(t, calc.HasDatasetMeasures())
	first, err := calc.Finalize()
	require.NoError(t, err)
	assert.True(t, calc.HasDatasetMeasures())

	second, err := calc.Finalize()
	require.NoError(t, err)
	// Same map, same tensors: no recomputation happened.
	assert.Same(t, first[measure.DatasetMean("act", nil)], second[measure.DatasetMean("act", nil)])

	require.NoError(t, calc.Update(flatSample(t, "b", []float64{10, 20, 30})))
	assert.False(t, calc.HasDatasetMeasures())
	third, err := calc.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 11, scalarOf(t, third, measure.DatasetMean("act", nil)), 1e-12)
}

func TestCoordinatorUpdateAndGetAll(t *testing.T) {
	required := []measure.Measure{
		measure.SampleMean("act", nil),
		measure.DatasetMean("act", nil),
	}
	calc := stats.NewStatsCalculator(required, stats.PlannerConfig{}, nil)

	values, err := calc.UpdateAndGetAll(
		flatSample(t, "a", []float64{0, 0, 0, 0}),
		flatSample(t, "b", []float64{4, 4, 4, 4}),
	)
	require.NoError(t, err)
	// Sample measures reflect the last sample only; dataset measures the
	// whole stream.
	assert.InDelta(t, 4, scalarOf(t, values, measure.SampleMean("act", nil)), 1e-12)
	assert.InDelta(t, 2, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)
}

func TestCoordinatorUpdateAndGetAllEmptyStream(t *testing.T) {
	calc := stats.NewStatsCalculator([]measure.Measure{measure.DatasetMean("act", nil)}, stats.PlannerConfig{}, nil)
	_, err := calc.UpdateAndGetAll()
	assert.ErrorIs(t, err, stats.ErrEmptySampleStream)
}

func TestCoordinatorSkipUpdateKeepsDatasetFrozen(t *testing.T) {
	required := []measure.Measure{
		measure.SampleMean("act", nil),
		measure.DatasetMean("act", nil),
	}
	calc := stats.NewStatsCalculator(required, stats.PlannerConfig{}, nil)
	require.NoError(t, calc.Update(flatSample(t, "a", []float64{1, 2, 3})))

	v1, err := calc.SkipUpdateAndGetAll(flatSample(t, "x", []float64{100, 200}))
	require.NoError(t, err)
	v2, err := calc.SkipUpdateAndGetAll(flatSample(t, "y", []float64{7, 7}))
	require.NoError(t, err)

	assert.Equal(t, 1, calc.SampleCount())
	assert.InDelta(t, 150, scalarOf(t, v1, measure.SampleMean("act", nil)), 1e-12)
	assert.InDelta(t, 7, scalarOf(t, v2, measure.SampleMean("act", nil)), 1e-12)
	// The frozen dataset portion is served from the same cached tensor.
	assert.Same(t, v1[measure.DatasetMean("act", nil)], v2[measure.DatasetMean("act", nil)])
}

func TestCoordinatorSnapshotPreseed(t *testing.T) {
	required := []measure.Measure{measure.DatasetMean("act", nil)}
	initial := measure.Values{
		measure.DatasetMean("act", nil): tensor.Scalar(42),
	}
	calc := stats.NewStatsCalculator(required, stats.PlannerConfig{}, initial)

	assert.True(t, calc.HasDatasetMeasures())
	values, err := calc.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 42, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)

	// Updating invalidates the snapshot and accumulation starts fresh.
	require.NoError(t, calc.Update(flatSample(t, "a", []float64{1, 3})))
	values, err = calc.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 2, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)
}

func TestCoordinatorIncompleteSnapshotDiscarded(t *testing.T) {
	required := []measure.Measure{
		measure.DatasetMean("act", nil),
		measure.DatasetStd("act", nil),
	}
	initial := measure.Values{
		measure.DatasetMean("act", nil): tensor.Scalar(42),
	}
	calc := stats.NewStatsCalculator(required, stats.PlannerConfig{}, initial)
	assert.False(t, calc.HasDatasetMeasures())

	require.NoError(t, calc.Update(flatSample(t, "a", []float64{1, 2, 3})))
	values, err := calc.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 2, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)
}

func TestCoordinatorUpdateMissingTensor(t *testing.T) {
	calc := stats.NewStatsCalculator([]measure.Measure{measure.DatasetMean("other", nil)}, stats.PlannerConfig{}, nil)
	err := calc.Update(flatSample(t, "a", []float64{1, 2}))
	assert.ErrorIs(t, err, stats.ErrUpdateFailed)
	assert.ErrorIs(t, err, stats.ErrMissingTensor)
}

func TestComputeDatasetMeasures(t *testing.T) {
	required := []measure.Measure{
		measure.DatasetMean("act", nil),
		measure.DatasetVar("act", nil),
	}
	values, err := stats.ComputeDatasetMeasures(required, []*measure.Sample{
		flatSample(t, "a", []float64{1, 2, 3, 4}),
		flatSample(t, "b", []float64{5, 6, 7, 8}),
	}, stats.PlannerConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 4.5, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)
	assert.InDelta(t, 5.25, scalarOf(t, values, measure.DatasetVar("act", nil)), 1e-9)
}

func TestComputeDatasetMeasuresRejectsSampleScope(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = stats.ComputeDatasetMeasures(
			[]measure.Measure{measure.SampleMean("act", nil)}, nil, stats.PlannerConfig{})
	})
}

func TestComputeSampleMeasures(t *testing.T) {
	values, err := stats.ComputeSampleMeasures(
		[]measure.Measure{measure.SampleMean("act", nil)},
		flatSample(t, "s0", []float64{2, 4, 6}), stats.PlannerConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 4, scalarOf(t, values, measure.SampleMean("act", nil)), 1e-12)
}

func TestComputeSampleMeasuresRejectsDatasetScope(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = stats.ComputeSampleMeasures(
			[]measure.Measure{measure.DatasetMean("act", nil)}, nil, stats.PlannerConfig{})
	})
}

func TestComputeMeasures(t *testing.T) {
	required := []measure.Measure{
		measure.SampleMean("act", nil),
		measure.DatasetMean("act", nil),
	}
	values, err := stats.ComputeMeasures(required, []*measure.Sample{
		flatSample(t, "a", []float64{0, 0}),
		flatSample(t, "b", []float64{8, 8}),
	}, stats.PlannerConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 8, scalarOf(t, values, measure.SampleMean("act", nil)), 1e-12)
	assert.InDelta(t, 4, scalarOf(t, values, measure.DatasetMean("act", nil)), 1e-12)
}
