package telemetry

import (
	"context"

	"github.com/spaghettifunk/character-studio/engine/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
	// Endpoint is the OTLP/HTTP collector URL, e.g. http://localhost:4318.
	Endpoint    string `toml:"endpoint" env:"ENDPOINT"`
	ServiceName string `toml:"service_name" env:"SERVICE_NAME"`
	// SampleRatio in (0, 1]; zero samples everything.
	SampleRatio float64 `toml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

/**
 * @brief Installs the global tracer provider used by the loading and avatar
 * packages. Tracing is opt-in: when disabled or without an endpoint, Setup
 * returns a no-op shutdown and the global no-op provider stays in place.
 */
func Setup(ctx context.Context, config Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	if !config.Enabled || config.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	name := config.ServiceName
	if name == "" {
		name = "character-studio"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
		),
	)
	if err != nil {
		return noop, err
	}

	sampler := sdktrace.AlwaysSample()
	if config.SampleRatio > 0 && config.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	core.LogInfo("tracing enabled, exporting to %s", config.Endpoint)

	return tp.Shutdown, nil
}
