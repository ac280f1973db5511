package app

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/hustsync/hustsync/internal/api"
	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/httpclient"
	"github.com/hustsync/hustsync/internal/manager"
	"github.com/hustsync/hustsync/internal/store"
	"github.com/hustsync/hustsync/internal/telemetry"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	// ManagerTracerName is the tracer used for manager service spans
	ManagerTracerName = "github.com/hustsync/hustsync/manager"
)

// ManagerAppOption is a function that configures the manager app builder
type ManagerAppOption func(*managerAppConfig) error

// managerAppConfig collects what NewManagerApp needs. Component overrides
// exist primarily for testing.
type managerAppConfig struct {
	config *config.ManagerConfig
	store  store.Store

	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

// NewManagerApp builds the manager: store, service and HTTP server
func NewManagerApp(_ context.Context, opts ...ManagerAppOption) (*ManagerApp, error) {
	cfg := &managerAppConfig{requestTimeout: defaultRequestTimeout}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.ListenAddress()
	}

	if cfg.store == nil {
		st, err := store.Open(cfg.config.Files.DBType, cfg.config.Files.DBFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		cfg.store = st
	}

	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = cfg.store.Close()
		}
	}()

	svc, err := buildManagerService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build manager service: %w", err)
	}

	httpServer, err := buildManagerHTTPServer(cfg, svc)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	cleanupNeeded = false
	app := &ManagerApp{
		config:     cfg.config,
		store:      cfg.store,
		manager:    svc,
		httpServer: httpServer,
	}
	if cfg.config.TLSEnabled() {
		app.certFile = cfg.config.Server.SSLCert
		app.keyFile = cfg.config.Server.SSLKey
	}
	return app, nil
}

// WithManagerConfig sets the manager configuration
func WithManagerConfig(c *config.ManagerConfig) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress overrides the listen address of the configuration
func WithAddress(addr string) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		if err := validateAddress(addr); err != nil {
			return err
		}
		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStore injects an already opened store
func WithStore(st store.Store) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		cfg.store = st
		return nil
	}
}

// WithMeterProvider enables fleet and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider enables request and service spans
func WithTracerProvider(tp trace.TracerProvider) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) ManagerAppOption {
	return func(cfg *managerAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

func buildManagerService(b *managerAppConfig) (*manager.Manager, error) {
	slog.Info("Initializing manager service")

	opts := []manager.Option{
		manager.WithStaleAfter(b.config.GetWorkerStaleAfter()),
	}

	if b.meterProvider != nil {
		fleetMetrics, err := telemetry.NewFleetMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create fleet metrics: %w", err)
		}
		opts = append(opts, manager.WithMetrics(fleetMetrics))
	}
	if b.tracerProvider != nil {
		opts = append(opts, manager.WithTracer(b.tracerProvider.Tracer(ManagerTracerName)))
	}

	// commands pushed to workers reuse the manager's own certificate when
	// the fleet runs with client verification
	clientOpts := []httpclient.Option{}
	if b.config.Files.CACert != "" {
		clientOpts = append(clientOpts, httpclient.WithCACert(b.config.Files.CACert))
		if b.config.TLSEnabled() {
			clientOpts = append(clientOpts, httpclient.WithClientCert(b.config.Server.SSLCert, b.config.Server.SSLKey))
		}
	}
	hc, err := httpclient.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker client: %w", err)
	}
	opts = append(opts, manager.WithWorkerClient(hc))

	return manager.New(b.store, opts...)
}

func buildManagerHTTPServer(b *managerAppConfig, svc manager.Service) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	middlewares, err := defaultMiddlewares(b.middlewares, b.requestTimeout, b.meterProvider, b.tracerProvider)
	if err != nil {
		return nil, err
	}

	serverOpts := []api.ServerOption{api.WithMiddlewares(middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}

	server := &http.Server{
		Addr:         b.address,
		Handler:      api.NewServer(svc, serverOpts...),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	if b.config.Files.CACert != "" {
		tlsConfig, err := clientAuthTLSConfig(b.config.Files.CACert)
		if err != nil {
			return nil, err
		}
		server.TLSConfig = tlsConfig
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}

// defaultMiddlewares returns mw, or the standard chain when mw is nil.
// Metrics and tracing are prepended so rejected requests are observed too.
func defaultMiddlewares(
	mw []func(http.Handler) http.Handler,
	requestTimeout time.Duration,
	mp metric.MeterProvider,
	tp trace.TracerProvider,
) ([]func(http.Handler) http.Handler, error) {
	if mw == nil {
		mw = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(requestTimeout),
			api.LoggingMiddleware,
		}
	}

	var observe []func(http.Handler) http.Handler
	if tp != nil {
		observe = append(observe, telemetry.TracingMiddleware(tp))
	}
	if mp != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(mp)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		observe = append(observe, metricsMiddleware)
		slog.Info("HTTP metrics middleware enabled")
	}
	return append(observe, mw...), nil
}

// clientAuthTLSConfig requires client certificates signed by the CA in caFile
func clientAuthTLSConfig(caFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		ClientCAs:  pool,
		ClientAuth: tls.RequireAndVerifyClientCert,
	}, nil
}

func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	host, port, ok := strings.Cut(addr, ":")
	if !ok || port == "" {
		return fmt.Errorf("address is not a valid port: %s", addr)
	}
	if host == "localhost" {
		host = "127.0.0.1"
	}
	if host == "" {
		host = "0.0.0.0"
	}

	if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
		return fmt.Errorf("address is not a valid port: %w", err)
	}
	return nil
}
