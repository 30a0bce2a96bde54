package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewStageMetrics_Noop(t *testing.T) {
	metrics, err := NewStageMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.StageStarted(ctx, "binary")
	metrics.UnitIngested(ctx, "binary")
	metrics.AggregateBuilt(ctx, "binary", 4)
	metrics.TransformCompleted(ctx, "binary", "ok", time.Millisecond)
	metrics.UnitsEmitted(ctx, "binary", 1)
	metrics.ErrorRaised(ctx, "binary", "INTERNAL_ERROR")
	metrics.StageFinished(ctx, "binary", "closed")
}

func TestStageMetrics_NilReceiver(t *testing.T) {
	var m *StageMetrics
	ctx := context.Background()
	m.StageStarted(ctx, "object")
	m.UnitIngested(ctx, "object")
	m.AggregateBuilt(ctx, "object", 1)
	m.TransformCompleted(ctx, "object", "ok", 0)
	m.UnitsEmitted(ctx, "object", 3)
	m.ErrorRaised(ctx, "object", "ABORTED")
	m.StageFinished(ctx, "object", "error")
}

func TestStageMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewStageMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	metrics.UnitIngested(ctx, "binary")
	metrics.UnitIngested(ctx, "binary")
	metrics.UnitsEmitted(ctx, "object", 3)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[m.Name] += dp.Value
				}
			}
		}
	}
	if got["bufferstream.units.ingested"] != 2 {
		t.Errorf("expected 2 ingested units, got %d", got["bufferstream.units.ingested"])
	}
	if got["bufferstream.units.emitted"] != 3 {
		t.Errorf("expected 3 emitted units, got %d", got["bufferstream.units.emitted"])
	}
}

func TestStartSpan_Recording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), SpanStage)
	span.SetAttributes(attribute.String(AttrStage, "s1"))
	SetSpanError(ctx, fmt.Errorf("Aouch!"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != SpanStage {
		t.Errorf("expected span %q, got %q", SpanStage, spans[0].Name)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected recorded error event, got %d events", len(spans[0].Events))
	}
}

func TestSetSpanErrorNoSpan(t *testing.T) {
	SetSpanError(context.Background(), fmt.Errorf("no span error"))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		desc string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.desc {
			t.Errorf("rate %v: expected %q, got %q", tc.rate, tc.desc, got)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("bufferstream", "1.2.3", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := res.Set().Value("service.name")
	if !ok || v.AsString() != "bufferstream" {
		t.Errorf("expected service.name=bufferstream, got %v", v)
	}
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, "svc", "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	cfg := Config{Enabled: true, Endpoint: "localhost:4318", Insecure: true}
	shutdown, err := Init(context.Background(), cfg, "svc", "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// Export fails without a collector; shutdown must still return.
	_ = shutdown(ctx)
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate == nil || *cfg.SampleRate != 1.0 || cfg.Interval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfig_SamplingOff(t *testing.T) {
	off := 0.0
	cfg := Config{Enabled: true, SampleRate: &off}
	cfg.ApplyDefaults()
	if *cfg.SampleRate != 0 {
		t.Fatalf("explicit sample_rate 0 was overridden to %v", *cfg.SampleRate)
	}
	tc := cfg.tracerConfig("svc", "dev")
	if got := sampler(tc.SampleRate).Description(); got != "AlwaysOffSampler" {
		t.Errorf("expected AlwaysOffSampler, got %q", got)
	}
	if tc := (Config{}).tracerConfig("svc", "dev"); tc.SampleRate != 1.0 {
		t.Errorf("expected unset rate to sample everything, got %v", tc.SampleRate)
	}
}
