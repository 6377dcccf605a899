package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/etlkit/logger"
)

// Metric names.
const (
	MetricStageBatches       = "etl.stage.batches"
	MetricStageItems         = "etl.stage.items"
	MetricStageFailures      = "etl.stage.failures"
	MetricStageBatchDuration = "etl.stage.batch.duration"
	MetricStageQueueDepth    = "etl.stage.queue.depth"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// QueueDepth is one stage's inbox occupancy at observation time.
type QueueDepth struct {
	Stage    string
	Depth    int
	Capacity int
}

// StageMetrics holds the per-stage instruments. A nil *StageMetrics records nothing.
type StageMetrics struct {
	meter         metric.Meter
	batches       metric.Int64Counter
	items         metric.Int64Counter
	failures      metric.Int64Counter
	batchDuration metric.Float64Histogram
}

// NewStageMetrics creates the stage instruments on the given meter.
func NewStageMetrics(meter metric.Meter) (*StageMetrics, error) {
	batches, err := meter.Int64Counter(MetricStageBatches,
		metric.WithDescription("Batches processed per stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStageBatches, err)
	}

	items, err := meter.Int64Counter(MetricStageItems,
		metric.WithDescription("Work items processed per stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStageItems, err)
	}

	failures, err := meter.Int64Counter(MetricStageFailures,
		metric.WithDescription("Work items whose step failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStageFailures, err)
	}

	batchDuration, err := meter.Float64Histogram(MetricStageBatchDuration,
		metric.WithDescription("Wall time to run every step of a batch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricStageBatchDuration, err)
	}

	return &StageMetrics{
		meter:         meter,
		batches:       batches,
		items:         items,
		failures:      failures,
		batchDuration: batchDuration,
	}, nil
}

// RecordBatch records one processed batch of the given size.
func (m *StageMetrics) RecordBatch(ctx context.Context, stage string, items int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.batches.Add(ctx, 1, attrs)
	m.items.Add(ctx, int64(items), attrs)
	m.batchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFailure records a failed step.
func (m *StageMetrics) RecordFailure(ctx context.Context, stage, reason string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("reason", reason),
	))
}

// ObserveQueueDepth registers an asynchronous gauge fed by snapshot.
// Unregister the returned registration when the pipeline stops.
func (m *StageMetrics) ObserveQueueDepth(snapshot func() []QueueDepth) (metric.Registration, error) {
	if m == nil {
		return nil, nil
	}
	gauge, err := m.meter.Int64ObservableGauge(MetricStageQueueDepth,
		metric.WithDescription("Batches waiting in a stage inbox"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricStageQueueDepth, err)
	}
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, q := range snapshot() {
			o.ObserveInt64(gauge, int64(q.Depth), metric.WithAttributes(
				attribute.String("stage", q.Stage),
				attribute.Int("capacity", q.Capacity),
			))
		}
		return nil
	}, gauge)
}
