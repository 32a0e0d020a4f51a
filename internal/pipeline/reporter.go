package pipeline

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
)

// Prometheus Metrics Definition
var (
	datasetSampleCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tensorlens_dataset_sample_count",
			Help: "Number of samples folded into the dataset statistics so far.",
		},
	)
	datasetMeasureValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tensorlens_dataset_measure_value",
			Help: "Latest finalized value of a fully reduced dataset measure.",
		},
		[]string{"tensor_id", "kind", "axes", "rank"},
	)
	reportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tensorlens_reports_total",
			Help: "Total number of dataset statistic reports processed.",
		},
	)
)

// Reporter receives finalized dataset reports, logs them, and exports
// scalar measures as Prometheus gauges.
type Reporter struct {
	input  <-chan Report
	logger *zap.Logger
}

// NewReporter creates a new Reporter instance.
func NewReporter(input <-chan Report, logger *zap.Logger) *Reporter {
	logger.Debug("Reporter initialized")
	return &Reporter{
		input:  input,
		logger: logger,
	}
}

// Run starts the reporter's processing loop.
func (r *Reporter) Run(ctx context.Context) error {
	sugar := r.logger.Sugar()
	sugar.Info("Starting reporter loop...")
	defer sugar.Info("Reporter loop stopped.")

	for {
		select {
		case report, ok := <-r.input:
			if !ok {
				sugar.Info("Reporter input channel closed.")
				return nil
			}
			r.processReport(report)

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping reporter.")
			return ctx.Err()
		}
	}
}

// processReport updates Prometheus metrics and logs the report.
func (r *Reporter) processReport(report Report) {
	sugar := r.logger.Sugar()

	reportsTotal.Inc()
	datasetSampleCount.Set(float64(report.SampleCount))

	for m, value := range report.Dataset {
		if !value.IsScalar() {
			sugar.Debugw("Skipping non-scalar measure for gauge export",
				zap.String("measure", m.String()),
				zap.Ints("shape", value.Shape()),
			)
			continue
		}
		v, err := value.Item()
		if err != nil {
			sugar.Warnw("Failed to read scalar measure value", zap.String("measure", m.String()), zap.Error(err))
			continue
		}
		datasetMeasureValue.WithLabelValues(
			m.TensorID,
			m.Kind.String(),
			string(m.Axes),
			rankLabel(m),
		).Set(v)
	}

	sugar.Infow("Dataset statistics report processed",
		zap.Time("at", report.At),
		zap.Int("sample_count", report.SampleCount),
		zap.String("last_sample_id", report.LastSampleID),
		zap.Int("measure_count", len(report.Dataset)),
	)
}

func rankLabel(m measure.Measure) string {
	if m.Kind != measure.Percentile {
		return ""
	}
	return fmt.Sprintf("%g", m.Rank)
}
