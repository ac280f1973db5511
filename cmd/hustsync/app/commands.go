// Package app provides the command line of the hustsync binary.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/versions"
)

// NewRootCmd creates the hustsync root command with the manager, worker,
// ctl and version subcommands. Every call returns a fresh command tree.
func NewRootCmd() *cobra.Command {
	v := newViper()

	rootCmd := &cobra.Command{
		Use:               "hustsync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "hustsync mirror sync manager and worker",
		Long: `hustsync keeps a fleet of mirror workers in sync with their upstreams.

The manager tracks workers and job status and relays commands; each worker
runs its configured mirror jobs and reports to the manager.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			SetupLogging(v)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("with-systemd", false, "Log in a journald friendly format")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	bindFlags(v, rootCmd.PersistentFlags(), "", "debug", "with-systemd", "log-level")

	rootCmd.AddCommand(newManagerCmd(v))
	rootCmd.AddCommand(newWorkerCmd(v))
	rootCmd.AddCommand(newCtlCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newViper returns a viper instance that also reads HUSTSYNC_* variables,
// so HUSTSYNC_MANAGER_PORT overrides manager.port
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("error retrieving format flag: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("error formatting version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(out, string(output))
				return err
			}

			_, err = fmt.Fprintf(out, "hustsync %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
