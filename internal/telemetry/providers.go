package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/hustsync/hustsync/internal/versions"
)

// DefaultMetricsInterval is the OTLP metric push period
const DefaultMetricsInterval = 60 * time.Second

// ProviderOption configures NewTracerProvider and NewMeterProvider.
// Options a provider does not use are ignored.
type ProviderOption func(*providerConfig)

// providerConfig is shared by both providers so that manager and worker
// export under one service identity and endpoint
type providerConfig struct {
	serviceName    string
	serviceVersion string
	endpoint       string
	insecure       bool

	tracing      *TracingConfig
	metrics      *MetricsConfig
	promRegistry prometheus.Registerer
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{
		serviceName:    DefaultServiceName,
		serviceVersion: versions.Version,
		endpoint:       DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithServiceName sets the service.name resource attribute
func WithServiceName(name string) ProviderOption {
	return func(cfg *providerConfig) { cfg.serviceName = name }
}

// WithServiceVersion sets the service.version resource attribute
func WithServiceVersion(version string) ProviderOption {
	return func(cfg *providerConfig) { cfg.serviceVersion = version }
}

// WithEndpoint sets the OTLP HTTP collector address
func WithEndpoint(endpoint string) ProviderOption {
	return func(cfg *providerConfig) { cfg.endpoint = endpoint }
}

// WithInsecure sends OTLP over plain HTTP
func WithInsecure(insecure bool) ProviderOption {
	return func(cfg *providerConfig) { cfg.insecure = insecure }
}

// WithTracingConfig enables span export when tc.Enabled is set
func WithTracingConfig(tc *TracingConfig) ProviderOption {
	return func(cfg *providerConfig) { cfg.tracing = tc }
}

// WithMetricsConfig enables OTLP metric push when mc.Enabled is set
func WithMetricsConfig(mc *MetricsConfig) ProviderOption {
	return func(cfg *providerConfig) { cfg.metrics = mc }
}

// WithPrometheusRegistry attaches a pull reader registered with reg
func WithPrometheusRegistry(reg prometheus.Registerer) ProviderOption {
	return func(cfg *providerConfig) { cfg.promRegistry = reg }
}

// providerOptions translates a telemetry configuration section
func providerOptions(c *Config) []ProviderOption {
	return []ProviderOption{
		WithServiceName(c.GetServiceName()),
		WithServiceVersion(c.GetServiceVersion()),
		WithEndpoint(c.GetEndpoint()),
		WithInsecure(c.Insecure),
		WithTracingConfig(c.Tracing),
		WithMetricsConfig(c.Metrics),
	}
}

// NewTracerProvider returns a batching OTLP tracer provider and installs it,
// with W3C trace context propagation, as the global one.
// Disabled tracing yields a no-op provider.
func NewTracerProvider(ctx context.Context, opts ...ProviderOption) (trace.TracerProvider, error) {
	cfg := newProviderConfig(opts)
	if cfg.tracing == nil || !cfg.tracing.Enabled {
		slog.Debug("Tracing disabled, using no-op tracer provider")
		return tracenoop.NewTracerProvider(), nil
	}

	res, err := newResource(ctx, cfg.serviceName, cfg.serviceVersion)
	if err != nil {
		return nil, err
	}

	exportOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exportOpts = append(exportOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exportOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	sampling := cfg.tracing.GetSampling()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampling))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing initialized", "endpoint", cfg.endpoint, "sampling_ratio", sampling, "insecure", cfg.insecure)
	return tp, nil
}

// NewMeterProvider returns a meter provider with an OTLP push reader when
// metrics are enabled and a Prometheus pull reader when a registry is set.
// With neither reader it returns a no-op provider.
func NewMeterProvider(ctx context.Context, opts ...ProviderOption) (metric.MeterProvider, error) {
	cfg := newProviderConfig(opts)
	push := cfg.metrics != nil && cfg.metrics.Enabled
	if !push && cfg.promRegistry == nil {
		slog.Debug("Metrics disabled, using no-op meter provider")
		return metricnoop.NewMeterProvider(), nil
	}

	res, err := newResource(ctx, cfg.serviceName, cfg.serviceVersion)
	if err != nil {
		return nil, err
	}
	providerOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if push {
		exportOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint)}
		if cfg.insecure {
			exportOpts = append(exportOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exportOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval)),
		))
	}

	if cfg.promRegistry != nil {
		reader, err := otelprom.New(otelprom.WithRegisterer(cfg.promRegistry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "otlp", push, "endpoint", cfg.endpoint, "prometheus", cfg.promRegistry != nil)
	return mp, nil
}
