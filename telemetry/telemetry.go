package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"

	"linkbio-service/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Init installs the global tracer and meter providers. Without an OTLP
// endpoint it only sets the propagator and the globals stay no-op.
func Init(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tc := cfg.Telemetry
	if tc.OTLPEndpoint == "" && tc.OTLPTracesEndpoint == "" && tc.OTLPMetricsEndpoint == "" {
		log.Println("OpenTelemetry disabled: OTEL_EXPORTER_OTLP_ENDPOINT is empty")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(tc.ServiceName),
			semconv.ServiceVersion(tc.ServiceVersion),
			attribute.String("deployment.environment", cfg.AppEnv),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceExporter, err := newTraceExporter(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExporter, err := newMetricExporter(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	metricProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(
			metricExporter,
			metric.WithInterval(tc.MetricExportInterval),
		)),
	)

	otel.SetTracerProvider(traceProvider)
	otel.SetMeterProvider(metricProvider)
	log.Printf("OpenTelemetry enabled protocol=%s service=%s", tc.OTLPProtocol, tc.ServiceName)

	return func(shutdownCtx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		defer cancel()

		var shutdownErr error
		if err := traceProvider.Shutdown(shutdownCtx); err != nil {
			shutdownErr = err
		}
		if err := metricProvider.Shutdown(shutdownCtx); err != nil {
			if shutdownErr != nil {
				shutdownErr = fmt.Errorf("%w; %v", shutdownErr, err)
			} else {
				shutdownErr = err
			}
		}
		return shutdownErr
	}, nil
}

func endpointOr(specific, fallback string) string {
	if specific != "" {
		return specific
	}
	return fallback
}

func usesHTTP(protocol string) bool {
	return protocol == "http/protobuf" || protocol == "http"
}

func newTraceExporter(ctx context.Context, tc config.TelemetryConfig) (trace.SpanExporter, error) {
	endpoint := endpointOr(tc.OTLPTracesEndpoint, tc.OTLPEndpoint)
	if usesHTTP(tc.OTLPProtocol) {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithHeaders(tc.OTLPHeaders),
			otlptracehttp.WithTimeout(tc.ExportTimeout),
		}
		if tc.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithHeaders(tc.OTLPHeaders),
		otlptracegrpc.WithTimeout(tc.ExportTimeout),
	}
	if tc.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, tc config.TelemetryConfig) (metric.Exporter, error) {
	endpoint := endpointOr(tc.OTLPMetricsEndpoint, tc.OTLPEndpoint)
	if usesHTTP(tc.OTLPProtocol) {
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithHeaders(tc.OTLPHeaders),
			otlpmetrichttp.WithTimeout(tc.ExportTimeout),
		}
		if tc.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithHeaders(tc.OTLPHeaders),
		otlpmetricgrpc.WithTimeout(tc.ExportTimeout),
	}
	if tc.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}
