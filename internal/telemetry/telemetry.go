package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the set of OpenTelemetry providers of one manager or worker
// process
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	scrape         http.Handler

	// flush and stop the SDK providers, in reverse creation order
	shutdowns []func(context.Context) error
}

// shutdowner is implemented by the SDK providers but not by the no-op ones
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// New builds the providers for the telemetry section of a configuration
// file. A nil or disabled section yields no-op providers. Options are
// applied after the section and override it. Shutdown must be called
// before the process exits.
func New(ctx context.Context, cfg *Config, opts ...ProviderOption) (*Telemetry, error) {
	t := &Telemetry{}
	if cfg == nil || !cfg.Enabled {
		slog.Debug("Telemetry disabled")
		t.tracerProvider, _ = NewTracerProvider(ctx)
		t.meterProvider, _ = NewMeterProvider(ctx)
		return t, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	shared := append(providerOptions(cfg), opts...)
	slog.Info("Initializing telemetry",
		"service_name", cfg.GetServiceName(),
		"service_version", cfg.GetServiceVersion())

	tp, err := NewTracerProvider(ctx, shared...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	t.tracerProvider = tp
	t.track(tp)

	meterOpts := shared
	if cfg.PrometheusEnabled() {
		registry := prometheus.NewRegistry()
		meterOpts = append(meterOpts[:len(meterOpts):len(meterOpts)], WithPrometheusRegistry(registry))
		t.scrape = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	mp, err := NewMeterProvider(ctx, meterOpts...)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}
	t.meterProvider = mp
	t.track(mp)

	return t, nil
}

func (t *Telemetry) track(p any) {
	if s, ok := p.(shutdowner); ok {
		t.shutdowns = append(t.shutdowns, s.Shutdown)
	}
}

// newResource describes this process to the exporters
func newResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// MetricsHandler returns the Prometheus scrape handler, or nil when scraping is off
func (t *Telemetry) MetricsHandler() http.Handler {
	if t == nil {
		return nil
	}
	return t.scrape
}

// Shutdown flushes and stops the SDK providers. Later calls are no-ops.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if len(t.shutdowns) == 0 {
		return nil
	}
	slog.Info("Shutting down telemetry")

	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		if err := t.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdowns = nil
	return errors.Join(errs...)
}
