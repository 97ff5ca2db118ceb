// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrNoEndpoint is returned when no collector endpoint is configured.
var ErrNoEndpoint = errors.New("telemetry: collector endpoint is empty")

// Option configures InitTracer.
type Option func(*settings)

type settings struct {
	version string
	sampler sdktrace.Sampler
}

// WithVersion tags spans with a service version.
func WithVersion(v string) Option {
	return func(s *settings) { s.version = v }
}

// WithSampler overrides the default always-on sampler.
func WithSampler(sm sdktrace.Sampler) Option {
	return func(s *settings) {
		if sm != nil {
			s.sampler = sm
		}
	}
}

// InitTracer installs a tracer provider that batches spans to the Jaeger
// collector at endpoint. Callers own the returned provider and should
// Shutdown it on exit.
func InitTracer(serviceName, endpoint string, opts ...Option) (*sdktrace.TracerProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrNoEndpoint
	}
	s := settings{version: "dev", sampler: sdktrace.AlwaysSample()}
	for _, opt := range opts {
		opt(&s)
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: jaeger exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", s.version),
		)),
		sdktrace.WithSampler(s.sampler),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Shutdown flushes and stops tp. A nil provider is a no-op.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
