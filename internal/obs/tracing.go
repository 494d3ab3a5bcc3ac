package obs

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracingConfig selects where spans go and how many are kept.
type TracingConfig struct {
	ServiceName   string
	Endpoint      string // an OTLP/HTTP URL; empty defers to OTEL_EXPORTER_OTLP_*
	SamplingRatio float64
	Environment   string
}

func (c TracingConfig) sampler() sdktrace.Sampler {
	ratio := c.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	// incoming sampled parents are always honoured
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// InitTracer installs the global tracer provider and W3C propagators. The
// returned function flushes buffered spans and must run before exit.
func InitTracer(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	var opts []otlptracehttp.Option
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(ep))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	service := cfg.ServiceName
	if service == "" {
		service = "spark-configurator"
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return provider.Shutdown, nil
}
