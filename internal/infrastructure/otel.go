package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"bnvision/internal/config"
)

const (
	// ServiceName identifies the pipeline in exported spans.
	ServiceName = "bnvision"
	// TracerName is the instrumentation scope used by all packages.
	TracerName = "bnvision"
)

// InitTracing sets up the OpenTelemetry tracer provider with a stdout trace
// exporter writing to the configured file. When telemetry is disabled a noop
// tracer is returned and the shutdown func is a no-op.
func InitTracing(cfg config.TelemetryConfig, logger *slog.Logger) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer(TracerName), func(context.Context) error { return nil }, nil
	}

	var opts []stdouttrace.Option
	if cfg.TracePath != "" {
		file, err := os.OpenFile(cfg.TracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		opts = append(opts, stdouttrace.WithWriter(file))
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Info("Tracing initialized",
		slog.String("exporter", "stdout"),
		slog.String("trace_path", cfg.TracePath))

	return provider.Tracer(TracerName), provider.Shutdown, nil
}
