package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/stats"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

func TestPlannerMeanAbsorbedByVariance(t *testing.T) {
	required := []measure.Measure{
		measure.SampleMean("act", nil),
		measure.SampleVar("act", nil),
		measure.SampleStd("act", nil),
	}
	sampleCalcs, datasetCalcs := stats.GetMeasureCalculators(required, stats.PlannerConfig{})
	require.Len(t, sampleCalcs, 1)
	assert.Empty(t, datasetCalcs)
	assert.IsType(t, &stats.MeanVarStdCalculator{}, sampleCalcs[0])

	values, err := sampleCalcs[0].Compute(flatSample(t, "s0", []float64{1, 2, 3, 4}))
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Contains(t, values, measure.SampleMean("act", nil))
	assert.Contains(t, values, measure.SampleVar("act", nil))
	assert.Contains(t, values, measure.SampleStd("act", nil))
}

func TestPlannerStandaloneMean(t *testing.T) {
	sampleCalcs, datasetCalcs := stats.GetMeasureCalculators(
		[]measure.Measure{measure.SampleMean("act", nil)}, stats.PlannerConfig{})
	require.Len(t, sampleCalcs, 1)
	assert.Empty(t, datasetCalcs)
	assert.IsType(t, &stats.MeanCalculator{}, sampleCalcs[0])
}

func TestPlannerDedupsIdenticalMeasures(t *testing.T) {
	required := []measure.Measure{
		measure.DatasetMean("act", nil),
		measure.DatasetMean("act", nil),
		measure.DatasetMean("act", nil),
	}
	sampleCalcs, datasetCalcs := stats.GetMeasureCalculators(required, stats.PlannerConfig{})
	assert.Empty(t, sampleCalcs)
	assert.Len(t, datasetCalcs, 1)
}

func TestPlannerSplitsByTensorAndAxes(t *testing.T) {
	required := []measure.Measure{
		measure.DatasetVar("act", nil),
		measure.DatasetVar("out", nil),
		measure.DatasetVar("act", []tensor.Axis{"x"}),
	}
	_, datasetCalcs := stats.GetMeasureCalculators(required, stats.PlannerConfig{})
	assert.Len(t, datasetCalcs, 3)
}

func TestPlannerBatchesPercentileRanks(t *testing.T) {
	required := []measure.Measure{
		measure.SamplePercentile("act", nil, 5),
		measure.SamplePercentile("act", nil, 50),
		measure.SamplePercentile("act", nil, 95),
		measure.SamplePercentile("act", nil, 50), // duplicate rank
	}
	sampleCalcs, datasetCalcs := stats.GetMeasureCalculators(required, stats.PlannerConfig{})
	require.Len(t, sampleCalcs, 1)
	assert.Empty(t, datasetCalcs)

	values, err := sampleCalcs[0].Compute(flatSample(t, "s0", []float64{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Len(t, values, 3)
}

func TestPlannerPercentileStrategy(t *testing.T) {
	required := []measure.Measure{measure.DatasetPercentile("act", nil, 50)}

	_, naive := stats.GetMeasureCalculators(required, stats.PlannerConfig{PercentileStrategy: stats.StrategyNaive})
	require.Len(t, naive, 1)
	assert.IsType(t, &stats.MeanPercentilesCalculator{}, naive[0])

	_, sketch := stats.GetMeasureCalculators(required, stats.PlannerConfig{PercentileStrategy: stats.StrategySketch})
	require.Len(t, sketch, 1)
	assert.IsType(t, &stats.SketchPercentilesCalculator{}, sketch[0])
}

func TestPlannerMixedScopes(t *testing.T) {
	required := []measure.Measure{
		measure.SampleMean("act", nil),
		measure.DatasetMean("act", nil),
		measure.DatasetStd("act", nil),
	}
	sampleCalcs, datasetCalcs := stats.GetMeasureCalculators(required, stats.PlannerConfig{})
	require.Len(t, sampleCalcs, 1)
	require.Len(t, datasetCalcs, 1)
	assert.IsType(t, &stats.MeanCalculator{}, sampleCalcs[0])
	assert.IsType(t, &stats.MeanVarStdCalculator{}, datasetCalcs[0])
}
