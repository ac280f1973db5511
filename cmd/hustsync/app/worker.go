package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalapp "github.com/hustsync/hustsync/internal/app"
	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/telemetry"
)

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worker",
		Aliases: []string{"w"},
		Short:   "Start a hustsync worker",
		Long: `Start a worker that runs the mirror jobs of its configuration file.

The worker registers with the manager, reports every status change and
accepts commands on its control server. SIGHUP reloads the mirror list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), v)
		},
	}

	f := cmd.Flags()
	f.StringP("config", "c", "", "Path to the worker configuration file (TOML or YAML)")
	f.String("name", "", "Worker name reported to the manager")
	f.Int("concurrent", 0, "Number of jobs allowed to sync at once")
	f.String("pidfile", "", "Write and lock a pidfile")
	bindFlags(v, f, "worker.", "config", "name", "concurrent", "pidfile")

	return cmd
}

// loadWorkerConfig reads the configuration file and applies flag and
// environment overrides. Reloads call it again so the overrides stick.
func loadWorkerConfig(v *viper.Viper) (*config.WorkerConfig, error) {
	var opts []config.Option
	if path := v.GetString("worker.config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadWorkerConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if v.IsSet("worker.name") {
		cfg.Global.Name = v.GetString("worker.name")
	}
	if v.IsSet("worker.concurrent") {
		cfg.Global.Concurrent = v.GetInt("worker.concurrent")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runWorker(ctx context.Context, v *viper.Viper) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadWorkerConfig(v)
	if err != nil {
		return err
	}

	pid, err := acquirePIDFile(v.GetString("worker.pidfile"))
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

	app, err := internalapp.NewWorkerApp(ctx,
		internalapp.WithWorkerConfig(cfg),
		internalapp.WithWorkerMeterProvider(tel.MeterProvider()),
		internalapp.WithWorkerConfigLoader(func() (*config.WorkerConfig, error) {
			return loadWorkerConfig(v)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to build worker: %w", err)
	}

	slog.Info("Starting hustsync worker",
		"worker", cfg.Global.Name,
		"mirrors", len(cfg.Mirrors),
		"manager", cfg.Manager.APIBase,
		"control", cfg.ControlURL())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case err := <-errCh:
			if stopErr := app.Stop(defaultGracefulTimeout); stopErr != nil {
				slog.Warn("Worker shutdown incomplete", "error", stopErr)
			}
			return err
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				slog.Info("Reloading configuration")
				if err := app.Reload(ctx); err != nil {
					slog.Error("Failed to reload configuration", "error", err)
				}
				continue
			}
			slog.Info("Received signal", "signal", sig.String())
			return app.Stop(defaultGracefulTimeout)
		}
	}
}
