// Package observability provides metrics and tracing.
package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "eureka-ssul"

// Tracer starts every span the server records. It is a no-op until InitTracing enables export.
var Tracer trace.Tracer = otel.Tracer(serviceName)

// TracingConfig selects where spans go.
type TracingConfig struct {
	ServiceVersion string
	Environment    string
	Enabled        bool
	// Exporter is "stdout", "otlp" or "none".
	Exporter     string
	OTLPEndpoint string
	SamplerRatio float64
}

// TracingConfigFrom reads the TRACING_* and OTLP_ENDPOINT settings.
func TracingConfigFrom(cfg *config.Config, version string) TracingConfig {
	return TracingConfig{
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	}
}

func noopShutdown(context.Context) error { return nil }

// InitTracing installs the global tracer provider and returns its shutdown func.
// Disabled tracing and the "none" exporter leave the no-op provider in place.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if !cfg.Enabled || kind == "none" {
		return noopShutdown, nil
	}

	exporter, err := newExporter(ctx, kind, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	Tracer = tp.Tracer(serviceName)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, kind, endpoint string) (sdktrace.SpanExporter, error) {
	switch kind {
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opt := otlptracehttp.WithEndpoint(endpoint)
		if strings.Contains(endpoint, "://") {
			opt = otlptracehttp.WithEndpointURL(endpoint)
		}
		exp, err := otlptracehttp.New(ctx, opt, otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown TRACING_EXPORTER %q", kind)
	}
}

func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// StartSpan opens a client span for one repository call on table.
// Call the returned func with the call's error to close it.
func StartSpan(ctx context.Context, table, operation string) (context.Context, func(err error)) {
	ctx, span := Tracer.Start(ctx, table+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSQLTable(table),
			semconv.DBOperation(operation),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// ProfileAttr tags a span with the profile it concerns.
func ProfileAttr(profileID string) attribute.KeyValue {
	return attribute.String("eureka.profile_id", profileID)
}
