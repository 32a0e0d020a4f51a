package stats

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
)

// PercentileStrategy selects how dataset-scope percentiles are estimated.
// The strategy is resolved once at startup and injected into the planner;
// calculators never probe for capabilities at update time.
type PercentileStrategy string

const (
	// StrategyNaive averages per-sample percentiles (biased, cheap).
	StrategyNaive PercentileStrategy = "naive"
	// StrategySketch streams every element into a t-digest per output cell.
	StrategySketch PercentileStrategy = "sketch"
)

// PlannerConfig carries the process-wide knobs the planner needs when it
// instantiates calculators.
type PlannerConfig struct {
	PercentileStrategy PercentileStrategy
	SketchCompression  float64
	Logger             *zap.Logger
}

type statKey struct {
	tensorID string
	axes     measure.AxesKey
}

// orderedKeys dedups statKeys while preserving first-seen order, so the
// planner output is deterministic for a given request order.
type orderedKeys struct {
	order []statKey
	seen  map[statKey]struct{}
}

func newOrderedKeys() *orderedKeys {
	return &orderedKeys{seen: make(map[statKey]struct{})}
}

func (o *orderedKeys) add(k statKey) {
	if _, ok := o.seen[k]; ok {
		return
	}
	o.seen[k] = struct{}{}
	o.order = append(o.order, k)
}

func (o *orderedKeys) has(k statKey) bool {
	_, ok := o.seen[k]
	return ok
}

type rankGroups struct {
	order []statKey
	ranks map[statKey][]float64
}

func newRankGroups() *rankGroups {
	return &rankGroups{ranks: make(map[statKey][]float64)}
}

func (g *rankGroups) add(k statKey, rank float64) {
	rs, ok := g.ranks[k]
	if !ok {
		g.order = append(g.order, k)
	}
	for _, r := range rs {
		if r == rank {
			return
		}
	}
	g.ranks[k] = append(rs, rank)
}

// GetMeasureCalculators plans the minimal calculator set covering every
// requested measure. Variance or std for a (tensor, axes) pair absorbs a
// mean request for the same pair into one joint calculator; percentile
// ranks for the same pair share one calculator. Exactly one calculator is
// created per distinct statistical computation, however many requested
// measures map onto it.
//
// The set of scopes and kinds is closed; an unrecognized value panics.
func GetMeasureCalculators(required []measure.Measure, cfg PlannerConfig) ([]SampleCalculator, []DatasetCalculator) {
	sampleMeans := newOrderedKeys()
	datasetMeans := newOrderedKeys()
	sampleMVS := newOrderedKeys()
	datasetMVS := newOrderedKeys()
	samplePercentiles := newRankGroups()
	datasetPercentiles := newRankGroups()

	for _, rm := range required {
		k := statKey{tensorID: rm.TensorID, axes: rm.Axes}
		var means, mvs *orderedKeys
		var percentiles *rankGroups
		switch rm.Scope {
		case measure.ScopeSample:
			means, mvs, percentiles = sampleMeans, sampleMVS, samplePercentiles
		case measure.ScopeDataset:
			means, mvs, percentiles = datasetMeans, datasetMVS, datasetPercentiles
		default:
			panic(fmt.Sprintf("unreachable measure scope %v", rm.Scope))
		}
		switch rm.Kind {
		case measure.Mean:
			means.add(k)
		case measure.Variance, measure.Std:
			mvs.add(k)
		case measure.Percentile:
			percentiles.add(k, rm.Rank)
		default:
			panic(fmt.Sprintf("unreachable measure kind %v", rm.Kind))
		}
	}

	var sampleCalcs []SampleCalculator
	var datasetCalcs []DatasetCalculator

	for _, k := range sampleMeans.order {
		if sampleMVS.has(k) {
			// served by the joint calculator's mean output
			continue
		}
		sampleCalcs = append(sampleCalcs, NewMeanCalculator(k.tensorID, k.axes.Axes()))
	}
	for _, k := range sampleMVS.order {
		sampleCalcs = append(sampleCalcs, NewMeanVarStdCalculator(k.tensorID, k.axes.Axes()))
	}
	for _, k := range datasetMeans.order {
		if datasetMVS.has(k) {
			continue
		}
		datasetCalcs = append(datasetCalcs, NewMeanCalculator(k.tensorID, k.axes.Axes()))
	}
	for _, k := range datasetMVS.order {
		datasetCalcs = append(datasetCalcs, NewMeanVarStdCalculator(k.tensorID, k.axes.Axes()))
	}
	for _, k := range samplePercentiles.order {
		sampleCalcs = append(sampleCalcs, NewSamplePercentilesCalculator(k.tensorID, k.axes.Axes(), samplePercentiles.ranks[k]))
	}
	for _, k := range datasetPercentiles.order {
		ranks := datasetPercentiles.ranks[k]
		switch cfg.PercentileStrategy {
		case StrategySketch:
			datasetCalcs = append(datasetCalcs, NewSketchPercentilesCalculator(k.tensorID, k.axes.Axes(), ranks, cfg.SketchCompression, cfg.Logger))
		default:
			datasetCalcs = append(datasetCalcs, NewMeanPercentilesCalculator(k.tensorID, k.axes.Axes(), ranks, cfg.Logger))
		}
	}

	return sampleCalcs, datasetCalcs
}
