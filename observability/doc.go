// Package observability provides OpenTelemetry tracing and metrics for
// bufferstream stages.
//
// Tracing and metrics default to the global otel providers, which are no-ops
// until Init is called:
//
//	shutdown, err := observability.Init(ctx, cfg, "bufferstream", version.Version)
//	defer shutdown(ctx)
//
// Stage instruments:
//
//	metrics, err := observability.NewStageMetrics(observability.Meter("bufferstream"))
//	stage, err := bufferstream.New(fn, bufferstream.WithMetrics(metrics))
package observability
