// Package telemetry provides OpenTelemetry instrumentation for the manager and worker.
// Metrics can be pushed over OTLP, scraped from a Prometheus endpoint, or both.
package telemetry

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/hustsync/hustsync/internal/versions"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "hustsync"

	// DefaultEndpoint is the default OTLP endpoint for telemetry
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling rate (5%)
	DefaultSampling = 0.05
)

// Config represents the root telemetry configuration
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// ServiceName defaults to "hustsync"
	ServiceName string `toml:"service_name" yaml:"service_name,omitempty"`

	// ServiceVersion defaults to the binary version
	ServiceVersion string `toml:"service_version" yaml:"service_version,omitempty"`

	// Endpoint is the OTLP collector endpoint, "host:port" over HTTP
	Endpoint string `toml:"endpoint" yaml:"endpoint,omitempty"`

	// Insecure allows plain HTTP to the collector
	Insecure bool `toml:"insecure" yaml:"insecure,omitempty"`

	Tracing *TracingConfig `toml:"tracing" yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `toml:"metrics" yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Sampling is the trace sampling ratio between 0.0 and 1.0
	Sampling float64 `toml:"sampling" yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	// Enabled pushes metrics to the OTLP endpoint
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Prometheus exposes the same instruments on GET /metrics
	Prometheus bool `toml:"prometheus" yaml:"prometheus,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, defaulting to the
// version the binary was built with
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return versions.Version
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio.
// Zero is treated as unset and yields DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// PrometheusEnabled reports whether a scrape endpoint should be served
func (c *Config) PrometheusEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Prometheus
}

// Validate validates the telemetry configuration. A nil config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Endpoint != "" {
		if strings.Contains(c.Endpoint, "://") {
			errs = append(errs, fmt.Errorf("endpoint must be host:port without a scheme, got %q", c.Endpoint))
		} else if _, _, err := net.SplitHostPort(c.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("endpoint: %w", err))
		}
	}
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}
	return errors.Join(errs...)
}
