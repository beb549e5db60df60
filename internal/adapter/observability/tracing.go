// Package observability provides logging, metrics, and tracing for the
// interview service.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// TraceSampleRatio is the share of new root traces kept. An explicit
// OTEL_TRACES_SAMPLE_RATIO in (0,1] wins; otherwise prod keeps 10%.
func TraceSampleRatio(cfg config.Config) float64 {
	if r := cfg.TraceSampleRatio; r > 0 && r <= 1 {
		return r
	}
	if cfg.IsProd() {
		return 0.1
	}
	return 1
}

// SetupTracing exports spans over OTLP/gRPC when an endpoint is configured and
// installs W3C trace-context propagation either way. The returned shutdown is
// never nil.
func SetupTracing(ctx context.Context, cfg config.Config) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	if cfg.OTLPEndpoint == "" {
		slog.Info("tracing disabled", slog.String("reason", "OTEL_EXPORTER_OTLP_ENDPOINT not set"))
		return noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return noopShutdown, fmt.Errorf("op=tracing.setup: exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.OTELServiceName),
		semconv.DeploymentEnvironmentKey.String(cfg.AppEnv),
	))
	if err != nil {
		return noopShutdown, fmt.Errorf("op=tracing.setup: resource: %w", err)
	}

	ratio := TraceSampleRatio(cfg)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	slog.Info("tracing enabled", slog.String("endpoint", cfg.OTLPEndpoint), slog.Float64("sample_ratio", ratio))
	return tp.Shutdown, nil
}
