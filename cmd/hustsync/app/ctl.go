package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/httpclient"
	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/status"
)

func newCtlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Query a manager and send commands to workers",
	}

	pf := cmd.PersistentFlags()
	pf.String("manager", config.DefaultAPIBase, "Manager API base URL")
	pf.String("ca-cert", "", "CA bundle used to verify the manager")
	pf.Bool("json", false, "Print raw JSON")
	bindFlags(v, pf, "ctl.", "manager", "ca-cert", "json")

	cmd.AddCommand(newCtlListCmd(v))
	cmd.AddCommand(newCtlWorkersCmd(v))
	for _, verb := range []protocol.CmdVerb{
		protocol.CmdStart, protocol.CmdStop, protocol.CmdDisable,
		protocol.CmdRestart, protocol.CmdPing, protocol.CmdReload,
	} {
		cmd.AddCommand(newCtlVerbCmd(v, verb))
	}
	return cmd
}

func ctlClient(v *viper.Viper) (*protocol.Client, error) {
	var opts []httpclient.Option
	if ca := v.GetString("ctl.ca-cert"); ca != "" {
		opts = append(opts, httpclient.WithCACert(ca))
	}
	hc, err := httpclient.New(opts...)
	if err != nil {
		return nil, err
	}
	return protocol.NewClient(v.GetString("ctl.manager"), hc, protocol.WithMaxTries(1)), nil
}

func newCtlListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the status of every mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := ctlClient(v)
			if err != nil {
				return err
			}
			jobs, err := client.ListJobs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if v.GetBool("ctl.json") {
				return printJSON(cmd.OutOrStdout(), jobs)
			}
			return printJobs(cmd.OutOrStdout(), jobs)
		},
	}
}

func newCtlWorkersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "List registered workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := ctlClient(v)
			if err != nil {
				return err
			}
			workers, err := client.ListWorkers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list workers: %w", err)
			}
			if v.GetBool("ctl.json") {
				return printJSON(cmd.OutOrStdout(), workers)
			}
			return printWorkers(cmd.OutOrStdout(), workers)
		},
	}
}

func newCtlVerbCmd(v *viper.Viper, verb protocol.CmdVerb) *cobra.Command {
	use := string(verb) + " <mirror>"
	args := cobra.ExactArgs(1)
	if verb.WorkerCommand() || verb == protocol.CmdPing {
		use = string(verb)
		args = cobra.NoArgs
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Send %s to a worker", verb),
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			workerID, err := cmd.Flags().GetString("worker")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}

			c := protocol.ClientCmd{Cmd: verb, WorkerID: workerID}
			if len(args) == 1 {
				c.MirrorID = args[0]
			}
			if force {
				c.Options = map[string]bool{protocol.OptionForce: true}
			}
			if err := c.Validate(); err != nil {
				return err
			}

			client, err := ctlClient(v)
			if err != nil {
				return err
			}
			if err := client.SendCommand(cmd.Context(), c); err != nil {
				return fmt.Errorf("failed to send %s: %w", verb, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s sent to %s\n", c.WorkerCmd(), workerID)
			return err
		},
	}
	cmd.Flags().StringP("worker", "w", "", "Target worker")
	cmd.Flags().Bool("force", false, "Start now even if the job has a later schedule")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJobs(w io.Writer, jobs []status.WebMirrorStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header("NAME", "STATUS", "LAST UPDATE", "NEXT", "SIZE", "UPSTREAM")
	for _, j := range jobs {
		if err := table.Append([]string{
			j.Name, string(j.Status), formatTime(j.LastUpdate), formatTime(j.NextScheduled), j.Size, j.Upstream,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printWorkers(w io.Writer, workers []protocol.WorkerInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "URL", "LAST ONLINE", "STALE")
	for _, wk := range workers {
		if err := table.Append([]string{
			wk.ID, wk.URL, formatTime(wk.LastOnline), strconv.FormatBool(wk.Stale),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
