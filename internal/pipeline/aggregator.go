package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/stats"
)

// Report carries a finalized view of the dataset statistics at one point of
// the stream.
type Report struct {
	At           time.Time
	SampleCount  int
	LastSampleID string
	Dataset      measure.Values
}

// Aggregator drives the stats coordinator over the incoming sample stream
// and periodically emits finalized dataset statistics downstream.
type Aggregator struct {
	calc     *stats.StatsCalculator
	interval time.Duration
	input    <-chan *measure.Sample
	output   chan<- Report
	logger   *zap.Logger

	lastSampleID  string
	reportedCount int
	everReported  bool
}

// NewAggregator creates a new Aggregator around the given coordinator.
func NewAggregator(calc *stats.StatsCalculator, interval time.Duration, input <-chan *measure.Sample, output chan<- Report, logger *zap.Logger) *Aggregator {
	logger.Info("Aggregator initialized",
		zap.Duration("report_interval", interval),
		zap.Bool("preseeded", calc.HasDatasetMeasures()),
	)
	return &Aggregator{
		calc:     calc,
		interval: interval,
		input:    input,
		output:   output,
		logger:   logger,
	}
}

// Run starts the aggregator's processing loop. Samples are applied in
// arrival order; a failed update fails the component.
func (a *Aggregator) Run(ctx context.Context) error {
	sugar := a.logger.Sugar()
	sugar.Info("Starting aggregator loop...")
	defer sugar.Info("Aggregator loop stopped.")

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case s, ok := <-a.input:
			if !ok {
				sugar.Info("Aggregator input channel closed. Emitting final report...")
				a.emit()
				return nil
			}
			if err := a.calc.Update(s); err != nil {
				a.logger.Error("Failed to apply sample", zap.String("sample_id", s.ID), zap.Error(err))
				return err
			}
			a.lastSampleID = s.ID

		case tickTime := <-ticker.C:
			sugar.Debugw("Ticker fired, emitting report", zap.Time("tick_time", tickTime))
			a.emit()

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping aggregator. Emitting final report...")
			a.emit()
			return ctx.Err()
		}
	}
}

// emit finalizes the dataset statistics and sends a report downstream,
// unless nothing changed since the last report.
func (a *Aggregator) emit() {
	sugar := a.logger.Sugar()
	count := a.calc.SampleCount()
	if a.everReported && count == a.reportedCount {
		return
	}
	if count == 0 && !a.calc.HasDatasetMeasures() {
		sugar.Debug("No samples observed yet, skipping report")
		return
	}

	dataset, err := a.calc.Finalize()
	if err != nil {
		sugar.Errorw("Failed to finalize dataset statistics", zap.Error(err))
		return
	}

	report := Report{
		At:           time.Now(),
		SampleCount:  count,
		LastSampleID: a.lastSampleID,
		Dataset:      dataset,
	}

	select {
	case a.output <- report:
		a.reportedCount = count
		a.everReported = true
		sugar.Debugw("Sent report", zap.Int("sample_count", count), zap.Int("measure_count", len(dataset)))
	default:
		sugar.Warnw("Aggregator output channel full, dropping report",
			zap.Int("sample_count", count),
		)
	}
}
