package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultKillGrace is how long a cancelled process group gets between SIGTERM and SIGKILL
const DefaultKillGrace = 10 * time.Second

type cmdSpec struct {
	mirror      string
	path        string
	args        []string
	dir         string
	env         []string
	logFile     string
	limiter     Limiter
	memoryLimit int64
	killGrace   time.Duration
}

// runProcess runs one child in its own process group with output appended to
// the log file. On cancellation the whole group is terminated and ctx.Err()
// is returned; otherwise the result of Wait is returned unchanged.
func runProcess(ctx context.Context, spec cmdSpec) error {
	out, err := os.OpenFile(spec.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = out.Close() }()

	cmd := exec.Command(spec.path, spec.args...)
	cmd.Dir = spec.dir
	cmd.Env = append(os.Environ(), spec.env...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", spec.path, err)
	}
	pid := cmd.Process.Pid

	if spec.limiter != nil {
		if err := spec.limiter.Apply(spec.mirror, pid, spec.memoryLimit); err != nil {
			slog.Warn("Failed to apply resource limits", "mirror", spec.mirror, "pid", pid, "error", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		terminateGroup(spec.mirror, pid, done, spec.killGrace)
		return ctx.Err()
	}
}

func terminateGroup(mirror string, pid int, done <-chan error, grace time.Duration) {
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	slog.Debug("Terminating provider process group", "mirror", mirror, "pgid", pid)
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		slog.Warn("Failed to signal process group", "mirror", mirror, "pgid", pid, "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
	}

	slog.Warn("Provider ignored SIGTERM, killing process group", "mirror", mirror, "pgid", pid)
	_ = unix.Kill(-pid, unix.SIGKILL)
	<-done
}
