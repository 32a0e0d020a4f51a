package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/tensorlens/internal/config"
	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/message"
	"github.com/sanspareilsmyn/tensorlens/internal/stats"
)

// Pipeline orchestrates the stages: consumer, parsing, aggregation, reporting.
type Pipeline struct {
	cfg        *config.Config
	consumer   *Consumer
	aggregator *Aggregator
	reporter   *Reporter
	logger     *zap.Logger

	rawMessages chan []byte
	samples     chan *measure.Sample
	reports     chan Report
}

// New creates and wires up a new statistics pipeline.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")
	initLogger.Debug("Creating pipeline components...")

	measures, err := cfg.Stats.BuildMeasures()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMeasureSetupFailed, err)
	}

	const channelBufferSize = 100
	rawMessages := make(chan []byte, channelBufferSize)
	samples := make(chan *measure.Sample, channelBufferSize)
	reports := make(chan Report, channelBufferSize)

	consumerInstance, err := NewConsumer(cfg.Kafka, rawMessages, logger.Named("consumer"))
	if err != nil {
		initLogger.Error("Failed to create consumer", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConsumerCreationFailed, err)
	}

	plannerCfg := stats.PlannerConfig{
		PercentileStrategy: stats.PercentileStrategy(cfg.Stats.PercentileStrategy),
		SketchCompression:  cfg.Stats.SketchCompression,
		Logger:             logger.Named("stats"),
	}
	initial := loadSnapshot(cfg.Stats.SnapshotPath, initLogger)
	calc := stats.NewStatsCalculator(measures, plannerCfg, initial)
	aggregatorInstance := NewAggregator(calc, cfg.Stats.ReportInterval, samples, reports, logger.Named("aggregator"))
	reporterInstance := NewReporter(reports, logger.Named("reporter"))

	p := &Pipeline{
		cfg:         cfg,
		consumer:    consumerInstance,
		aggregator:  aggregatorInstance,
		reporter:    reporterInstance,
		logger:      logger.Named("pipeline"),
		rawMessages: rawMessages,
		samples:     samples,
		reports:     reports,
	}

	initLogger.Info("Pipeline instance created successfully",
		zap.Int("measure_count", len(measures)),
		zap.String("percentile_strategy", cfg.Stats.PercentileStrategy),
	)
	return p, nil
}

// loadSnapshot reads a precomputed dataset-measure snapshot if a path is
// configured. Any failure degrades to starting fresh with a warning; the
// coordinator itself re-checks measure coverage.
func loadSnapshot(path string, logger *zap.Logger) measure.Values {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read dataset measure snapshot, starting fresh",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	values, err := message.ParseSnapshot(data)
	if err != nil {
		logger.Warn("Failed to parse dataset measure snapshot, starting fresh",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Info("Loaded dataset measure snapshot",
		zap.String("path", path), zap.Int("measure_count", len(values)))
	return values
}

// Run starts all pipeline components and waits for them to complete or context cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	var wg sync.WaitGroup
	pipelineErr := make(chan error, 4) // consumer, parser, aggregator, reporter

	sugar.Info("Pipeline Run: Starting components...")

	wg.Add(4)
	go p.runConsumer(ctx, &wg, pipelineErr)
	go p.runParser(ctx, &wg)
	go p.runAggregator(ctx, &wg, pipelineErr)
	go p.runReporter(ctx, &wg, pipelineErr)

	// Wait for context cancellation or the first error from any component
	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled. Waiting for components to finish...")
		firstErr = ctx.Err()
	case err := <-pipelineErr:
		sugar.Errorw("Pipeline Run: Received error from a component, initiating shutdown...", zap.Error(err))
		firstErr = err
	}

	wg.Wait()
	sugar.Info("Pipeline Run: All components finished.")

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

// runConsumer executes the consumer component logic in a goroutine.
func (p *Pipeline) runConsumer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.rawMessages)
		p.logger.Debug("Raw messages channel closed")
	}()

	if err := p.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Consumer component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrConsumerRunFailed, err)
	}
}

// runParser decodes raw payloads into samples in a goroutine.
func (p *Pipeline) runParser(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		close(p.samples)
		p.logger.Debug("Samples channel closed")
	}()

	parserLogger := p.logger.Named("parser").Sugar()

	for {
		select {
		case rawMsg, ok := <-p.rawMessages:
			if !ok {
				parserLogger.Debug("Parser finished (raw message channel closed).")
				return
			}

			sample, err := message.ParseSample(rawMsg)
			if err != nil {
				parserLogger.Warnw("Failed to parse sample, skipping", zap.Error(err))
				continue
			}

			select {
			case p.samples <- sample:

			case <-ctx.Done():
				parserLogger.Debug("Parser context cancelled during send.", zap.Error(ctx.Err()))
				return
			}

		case <-ctx.Done():
			parserLogger.Debug("Parser context cancelled while waiting for raw message.", zap.Error(ctx.Err()))
			return
		}
	}
}

// runAggregator executes the aggregator component logic in a goroutine.
func (p *Pipeline) runAggregator(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.reports)
		p.logger.Debug("Reports channel closed")
	}()

	if err := p.aggregator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Aggregator component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrAggregatorRunFailed, err)
	}
}

// runReporter executes the reporter component logic in a goroutine.
func (p *Pipeline) runReporter(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()

	if err := p.reporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Reporter component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrReporterRunFailed, err)
	}
}
