package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalapp "github.com/hustsync/hustsync/internal/app"
	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/telemetry"
)

// defaultGracefulTimeout bounds shutdown after SIGINT or SIGTERM
const defaultGracefulTimeout = 30 * time.Second

func newManagerCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "manager",
		Aliases: []string{"m"},
		Short:   "Start the hustsync manager",
		Long: `Start the manager API server.

The manager keeps the worker registry and the status of every mirror job,
serves the web status view and relays commands to workers. Every setting
of the configuration file can be omitted; flags override the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runManager(cmd.Context(), v)
		},
	}

	f := cmd.Flags()
	f.StringP("config", "c", "", "Path to the manager configuration file (TOML or YAML)")
	f.String("addr", "", "Address to listen on")
	f.Int("port", 0, "Port to listen on")
	f.String("cert", "", "TLS certificate file")
	f.String("key", "", "TLS key file")
	f.String("db-file", "", "Status store file")
	f.String("db-type", "", "Status store backend (bolt, sqlite, json)")
	f.String("pidfile", "", "Write and lock a pidfile")
	bindFlags(v, f, "manager.", "config", "addr", "port", "cert", "key", "db-file", "db-type", "pidfile")

	return cmd
}

// loadManagerConfig reads the configuration file, if any, and applies
// flag and environment overrides
func loadManagerConfig(v *viper.Viper) (*config.ManagerConfig, error) {
	var opts []config.Option
	if path := v.GetString("manager.config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadManagerConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if v.IsSet("manager.addr") {
		cfg.Server.Addr = v.GetString("manager.addr")
	}
	if v.IsSet("manager.port") {
		cfg.Server.Port = v.GetInt("manager.port")
	}
	if v.IsSet("manager.cert") {
		cfg.Server.SSLCert = v.GetString("manager.cert")
	}
	if v.IsSet("manager.key") {
		cfg.Server.SSLKey = v.GetString("manager.key")
	}
	if v.IsSet("manager.db-file") {
		cfg.Files.DBFile = v.GetString("manager.db-file")
	}
	if v.IsSet("manager.db-type") {
		cfg.Files.DBType = v.GetString("manager.db-type")
	}
	if v.GetBool("debug") {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runManager(ctx context.Context, v *viper.Viper) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadManagerConfig(v)
	if err != nil {
		return err
	}
	if cfg.Debug && !v.GetBool("debug") {
		v.Set("debug", true)
		SetupLogging(v)
	}

	pid, err := acquirePIDFile(v.GetString("manager.pidfile"))
	if err != nil {
		return err
	}
	defer func() {
		if err := pid.Release(); err != nil {
			slog.Warn("Failed to release pidfile", "error", err)
		}
	}()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(tel)

	app, err := internalapp.NewManagerApp(ctx,
		internalapp.WithManagerConfig(cfg),
		internalapp.WithMeterProvider(tel.MeterProvider()),
		internalapp.WithTracerProvider(tel.TracerProvider()),
		internalapp.WithMetricsHandler(tel.MetricsHandler()),
	)
	if err != nil {
		return fmt.Errorf("failed to build manager: %w", err)
	}

	slog.Info("Starting hustsync manager", "address", cfg.ListenAddress(), "db_type", cfg.Files.DBType)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		_ = app.Stop(defaultGracefulTimeout)
		return err
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig.String())
	}

	return app.Stop(defaultGracefulTimeout)
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		slog.Warn("Failed to shut down telemetry", "error", err)
	}
}
