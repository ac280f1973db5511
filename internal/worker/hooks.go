package worker

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/provider"
	"github.com/hustsync/hustsync/internal/status"
)

// runHooks runs the success or failure hooks of a finished run, in order.
// Hook failures are logged and never change the recorded status.
func (w *Worker) runHooks(ctx context.Context, cfg *config.JobConfig, p provider.Provider, outcome status.SyncStatus) {
	hooks := cfg.ExecOnFailure
	if outcome == status.StatusSuccess {
		hooks = cfg.ExecOnSuccess
	}
	if len(hooks) == 0 {
		return
	}

	env := append(os.Environ(),
		"HUSTSYNC_MIRROR_NAME="+cfg.Name,
		"HUSTSYNC_WORKING_DIR="+cfg.MirrorDir,
		"HUSTSYNC_UPSTREAM_URL="+cfg.Upstream,
		"HUSTSYNC_LOG_DIR="+p.LogDir(),
		"HUSTSYNC_LOG_FILE="+p.LogFile(),
		"HUSTSYNC_JOB_EXIT_STATUS="+outcome.String(),
	)
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	for _, hook := range hooks {
		cmd := exec.CommandContext(ctx, w.shell, "-c", hook)
		cmd.Env = env
		out, err := cmd.CombinedOutput()
		if err != nil {
			slog.Warn("Hook failed", "mirror", cfg.Name, "hook", hook, "error", err,
				"output", strings.TrimSpace(string(out)))
			continue
		}
		slog.Debug("Hook finished", "mirror", cfg.Name, "hook", hook)
	}
}
