package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"

	"github.com/hustsync/hustsync/internal/api"
	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/httpclient"
	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/store"
	"github.com/hustsync/hustsync/internal/telemetry"
	"github.com/hustsync/hustsync/internal/worker"
)

// WorkerAppOption is a function that configures the worker app builder
type WorkerAppOption func(*workerAppConfig) error

type workerAppConfig struct {
	config     *config.WorkerConfig
	loadConfig func() (*config.WorkerConfig, error)
	store      store.Store
	manager    worker.ManagerClient
	noManager  bool
	address    string

	meterProvider   metric.MeterProvider
	providerFactory worker.ProviderFactory
	workerOpts      []worker.Option
}

// NewWorkerApp builds a worker: store, manager link, job scheduler and
// control server
func NewWorkerApp(ctx context.Context, opts ...WorkerAppOption) (*WorkerApp, error) {
	cfg := &workerAppConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil && cfg.loadConfig != nil {
		c, err := cfg.loadConfig()
		if err != nil {
			return nil, err
		}
		cfg.config = c
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.ControlAddress()
	}

	if cfg.store == nil {
		st, err := store.Open(cfg.config.Global.DBType, cfg.config.Global.DBFile)
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

	w, err := buildWorker(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build worker: %w", err)
	}

	httpServer := &http.Server{
		Addr: cfg.address,
		Handler: chi.Chain(
			middleware.RequestID,
			middleware.Recoverer,
			api.LoggingMiddleware,
		).Handler(worker.NewControlRouter(w)),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	cleanupNeeded = false
	appCtx, cancel := context.WithCancel(ctx)
	app := &WorkerApp{
		config:     cfg.config,
		store:      cfg.store,
		worker:     w,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
		done:       make(chan struct{}),
	}
	if cfg.config.Server.SSLCert != "" && cfg.config.Server.SSLKey != "" {
		app.certFile = cfg.config.Server.SSLCert
		app.keyFile = cfg.config.Server.SSLKey
	}
	return app, nil
}

// WithWorkerConfig sets the worker configuration
func WithWorkerConfig(c *config.WorkerConfig) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithWorkerConfigPath loads the configuration from path and re-reads it
// on reload
func WithWorkerConfigPath(path string) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		if path == "" {
			return fmt.Errorf("config path cannot be empty")
		}
		cfg.loadConfig = func() (*config.WorkerConfig, error) {
			return loadWorkerConfig(path)
		}
		return nil
	}
}

// WithWorkerConfigLoader sets how the configuration is re-read on reload.
// Without WithWorkerConfig, it also provides the initial configuration.
func WithWorkerConfigLoader(load func() (*config.WorkerConfig, error)) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		if load == nil {
			return fmt.Errorf("config loader cannot be nil")
		}
		cfg.loadConfig = load
		return nil
	}
}

// WithWorkerStore injects an already opened store
func WithWorkerStore(st store.Store) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		cfg.store = st
		return nil
	}
}

// WithManagerClient replaces the HTTP manager link. A nil client runs
// the worker standalone.
func WithManagerClient(m worker.ManagerClient) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		cfg.manager = m
		cfg.noManager = m == nil
		return nil
	}
}

// WithWorkerAddress overrides the control server address
func WithWorkerAddress(addr string) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		if err := validateAddress(addr); err != nil {
			return err
		}
		cfg.address = addr
		return nil
	}
}

// WithWorkerMeterProvider enables job metrics
func WithWorkerMeterProvider(mp metric.MeterProvider) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithProviderFactory replaces how jobs build their providers
func WithProviderFactory(f worker.ProviderFactory) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		if f == nil {
			return fmt.Errorf("provider factory cannot be nil")
		}
		cfg.providerFactory = f
		return nil
	}
}

// WithWorkerOptions passes extra options to the job scheduler
func WithWorkerOptions(opts ...worker.Option) WorkerAppOption {
	return func(cfg *workerAppConfig) error {
		cfg.workerOpts = append(cfg.workerOpts, opts...)
		return nil
	}
}

func buildWorker(b *workerAppConfig) (*worker.Worker, error) {
	slog.Info("Initializing worker", "worker", b.config.Global.Name)

	var opts []worker.Option

	switch {
	case b.manager != nil:
		opts = append(opts, worker.WithManager(b.manager))
	case !b.noManager && b.config.Manager.APIBase != "":
		link, err := newManagerLink(b.config)
		if err != nil {
			return nil, err
		}
		opts = append(opts, worker.WithManager(link))
	default:
		slog.Warn("No manager configured, running standalone", "worker", b.config.Global.Name)
	}

	if b.meterProvider != nil {
		jobMetrics, err := telemetry.NewJobMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create job metrics: %w", err)
		}
		opts = append(opts, worker.WithMetrics(jobMetrics))
	}
	if b.providerFactory != nil {
		opts = append(opts, worker.WithProviderFactory(b.providerFactory))
	}
	if b.loadConfig != nil {
		opts = append(opts, worker.WithConfigLoader(b.loadConfig))
	}
	opts = append(opts, b.workerOpts...)

	return worker.New(b.config, b.store, opts...)
}

// newManagerLink returns the protocol client for the configured manager.
// The worker presents its own certificate when it serves TLS.
func newManagerLink(cfg *config.WorkerConfig) (*protocol.Client, error) {
	var clientOpts []httpclient.Option
	if cfg.Manager.CACert != "" {
		clientOpts = append(clientOpts, httpclient.WithCACert(cfg.Manager.CACert))
		if cfg.Server.SSLCert != "" && cfg.Server.SSLKey != "" {
			clientOpts = append(clientOpts, httpclient.WithClientCert(cfg.Server.SSLCert, cfg.Server.SSLKey))
		}
	}
	hc, err := httpclient.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create manager client: %w", err)
	}
	return protocol.NewClient(cfg.Manager.APIBase, hc), nil
}

func loadWorkerConfig(path string) (*config.WorkerConfig, error) {
	c, err := config.LoadWorkerConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}
	return c, nil
}
