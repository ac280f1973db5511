// Package app provides lifecycle management for the manager and worker processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/manager"
	"github.com/hustsync/hustsync/internal/store"
	"github.com/hustsync/hustsync/internal/worker"
)

// ManagerApp runs the manager API server on top of its status store
type ManagerApp struct {
	config     *config.ManagerConfig
	store      store.Store
	manager    *manager.Manager
	httpServer *http.Server

	// certFile and keyFile are set when the server speaks TLS
	certFile string
	keyFile  string

	closeOnce sync.Once
}

// Start listens on the configured address and serves until Stop is called
func (app *ManagerApp) Start() error {
	l, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(l)
}

// Serve serves on l until Stop is called
func (app *ManagerApp) Serve(l net.Listener) error {
	slog.Info("Manager listening", "address", l.Addr().String(), "tls", app.certFile != "")
	return serve(app.httpServer, l, app.certFile, app.keyFile)
}

// Stop gracefully shuts down the HTTP server and closes the store
func (app *ManagerApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down manager...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	app.closeOnce.Do(func() {
		if err := app.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	})

	slog.Info("Manager shutdown complete")
	return errors.Join(errs...)
}

// GetConfig returns the manager configuration
func (app *ManagerApp) GetConfig() *config.ManagerConfig {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *ManagerApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetManager returns the manager service
func (app *ManagerApp) GetManager() *manager.Manager {
	return app.manager
}

// WorkerApp runs the job scheduler and the worker control server
type WorkerApp struct {
	config     *config.WorkerConfig
	store      store.Store
	worker     *worker.Worker
	httpServer *http.Server

	certFile string
	keyFile  string

	ctx        context.Context
	cancelFunc context.CancelFunc

	mu      sync.Mutex
	started bool
	done    chan struct{}

	closeOnce sync.Once
}

// Start runs the worker and its control server. It blocks until Stop is
// called or one of them fails.
func (app *WorkerApp) Start() error {
	l, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(l)
}

// Serve is Start with the control server listening on l
func (app *WorkerApp) Serve(l net.Listener) error {
	app.mu.Lock()
	if app.started {
		app.mu.Unlock()
		_ = l.Close()
		return fmt.Errorf("worker app already started")
	}
	app.started = true
	app.mu.Unlock()
	defer close(app.done)

	g, gctx := errgroup.WithContext(app.ctx)

	g.Go(func() error {
		if err := app.worker.Run(gctx); err != nil {
			return fmt.Errorf("worker failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Worker control server listening", "address", l.Addr().String(), "tls", app.certFile != "")
		return serve(app.httpServer, l, app.certFile, app.keyFile)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Control server forced to shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// Stop cancels the worker, waits up to timeout for running jobs to record
// their state and closes the store
func (app *WorkerApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down worker...")

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	app.mu.Lock()
	started := app.started
	app.mu.Unlock()

	var errs []error
	if started {
		select {
		case <-app.done:
		case <-time.After(timeout):
			errs = append(errs, fmt.Errorf("worker did not stop within %s", timeout))
		}
	}

	app.closeOnce.Do(func() {
		if err := app.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	})

	slog.Info("Worker shutdown complete")
	return errors.Join(errs...)
}

// Reload re-reads the worker configuration file
func (app *WorkerApp) Reload(ctx context.Context) error {
	return app.worker.Reload(ctx)
}

// GetConfig returns the worker configuration
func (app *WorkerApp) GetConfig() *config.WorkerConfig {
	return app.config
}

// GetHTTPServer returns the control server
func (app *WorkerApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetWorker returns the job scheduler
func (app *WorkerApp) GetWorker() *worker.Worker {
	return app.worker
}

func serve(srv *http.Server, l net.Listener, certFile, keyFile string) error {
	var err error
	if certFile != "" {
		err = srv.ServeTLS(l, certFile, keyFile)
	} else {
		err = srv.Serve(l)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}
