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

	"github.com/kbukum/bufferstream/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
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

// StageMetrics holds the instruments recorded by bufferstream stages.
// A nil *StageMetrics is valid and records nothing.
type StageMetrics struct {
	stagesActive      metric.Int64UpDownCounter
	stagesTotal       metric.Int64Counter
	unitsIngested     metric.Int64Counter
	unitsEmitted      metric.Int64Counter
	aggregateSize     metric.Int64Histogram
	transformDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewStageMetrics creates stage instruments on the given meter.
func NewStageMetrics(meter metric.Meter) (*StageMetrics, error) {
	stagesActive, err := meter.Int64UpDownCounter("bufferstream.stages.active",
		metric.WithDescription("Number of stages that have not reached a terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.stages.active: %w", err)
	}

	stagesTotal, err := meter.Int64Counter("bufferstream.stages.total",
		metric.WithDescription("Stages that reached a terminal state, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.stages.total: %w", err)
	}

	unitsIngested, err := meter.Int64Counter("bufferstream.units.ingested",
		metric.WithDescription("Units accepted from upstream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.units.ingested: %w", err)
	}

	unitsEmitted, err := meter.Int64Counter("bufferstream.units.emitted",
		metric.WithDescription("Units pushed downstream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.units.emitted: %w", err)
	}

	aggregateSize, err := meter.Int64Histogram("bufferstream.aggregate.size",
		metric.WithDescription("Aggregate size: bytes in binary mode, units in object mode"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.aggregate.size: %w", err)
	}

	transformDuration, err := meter.Float64Histogram("bufferstream.transform.duration",
		metric.WithDescription("Time from transform invocation to emit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.transform.duration: %w", err)
	}

	errorTotal, err := meter.Int64Counter("bufferstream.errors",
		metric.WithDescription("Errors raised on stage output, by code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bufferstream.errors: %w", err)
	}

	return &StageMetrics{
		stagesActive:      stagesActive,
		stagesTotal:       stagesTotal,
		unitsIngested:     unitsIngested,
		unitsEmitted:      unitsEmitted,
		aggregateSize:     aggregateSize,
		transformDuration: transformDuration,
		errorTotal:        errorTotal,
	}, nil
}

// StageStarted increments the active stage count.
func (m *StageMetrics) StageStarted(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.stagesActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// StageFinished decrements the active stage count and records the outcome.
func (m *StageMetrics) StageFinished(ctx context.Context, mode, status string) {
	if m == nil {
		return
	}
	m.stagesActive.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrMode, mode)))
	m.stagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrStatus, status),
	))
}

// UnitIngested records one unit accepted from upstream.
func (m *StageMetrics) UnitIngested(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.unitsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// AggregateBuilt records the size of a finished aggregate.
func (m *StageMetrics) AggregateBuilt(ctx context.Context, mode string, size int) {
	if m == nil {
		return
	}
	m.aggregateSize.Record(ctx, int64(size), metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// TransformCompleted records how long the transform took to emit.
func (m *StageMetrics) TransformCompleted(ctx context.Context, mode, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.transformDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrStatus, status),
	))
}

// UnitsEmitted records units pushed downstream.
func (m *StageMetrics) UnitsEmitted(ctx context.Context, mode string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unitsEmitted.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// ErrorRaised records an error surfaced on a stage output.
func (m *StageMetrics) ErrorRaised(ctx context.Context, mode, code string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrErrorCode, code),
	))
}
