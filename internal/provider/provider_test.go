package provider

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustsync/hustsync/internal/config"
)

const fakeRsync = `#!/bin/sh
echo "args: $*"
echo "Total file size: ${FAKE_SIZE:-1.33T} bytes"
exit ${FAKE_EXIT:-0}
`

func newJob(t *testing.T, providerName string) *config.JobConfig {
	t.Helper()
	root := t.TempDir()
	return &config.JobConfig{
		Name:      "elvish",
		Provider:  providerName,
		Upstream:  "rsync://rsync.elv.sh/elvish/",
		MirrorDir: filepath.Join(root, "data", "elvish"),
		LogDir:    filepath.Join(root, "log", "elvish"),
		IsMaster:  true,
		Env:       map[string]string{},
	}
}

func writeFakeRsync(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rsync")
	require.NoError(t, os.WriteFile(path, []byte(fakeRsync), 0o755))
	return path
}

func runOnce(t *testing.T, ctx context.Context, p Provider) (string, error) {
	t.Helper()
	logFile, err := OpenLog(p.LogDir(), p.Name(), time.Now())
	require.NoError(t, err)
	return logFile, p.Run(ctx, logFile)
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	job := newJob(t, "ftp")
	_, err := New(job)
	require.ErrorContains(t, err, `unsupported provider "ftp"`)

	job = newJob(t, config.ProviderTwoStageRsync)
	job.Stage1Profile = "arch"
	_, err = New(job)
	require.ErrorContains(t, err, "unknown stage1_profile")

	_, err = New(newJob(t, config.ProviderCommand))
	require.ErrorContains(t, err, "command is required")
}

func TestRsyncProvider_Success(t *testing.T) {
	t.Parallel()

	job := newJob(t, config.ProviderRsync)
	job.UseIPv6 = true
	job.RsyncOptions = []string{"--bwlimit=8m"}
	job.Env["FAKE_SIZE"] = "2.5G"

	p, err := New(job, WithRsyncPath(writeFakeRsync(t)))
	require.NoError(t, err)
	assert.Equal(t, "elvish", p.Name())
	assert.Empty(t, p.LogFile())
	assert.True(t, p.IsMaster())

	logFile, err := runOnce(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, logFile, p.LogFile())
	assert.Equal(t, "2.5G", p.DataSize())

	out := readLog(t, logFile)
	assert.Contains(t, out, "--delete-after")
	assert.Contains(t, out, "-6 --bwlimit=8m rsync://rsync.elv.sh/elvish/ "+job.MirrorDir+"/")
	assert.DirExists(t, job.MirrorDir)
}

func TestRsyncProvider_ExitClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		exit         string
		successCodes []int
		wantCode     int
		wantReason   string
	}{
		{name: "partial transfer", exit: "23", wantCode: 23, wantReason: "rsync error: Partial transfer due to error"},
		{name: "timeout", exit: "30", wantCode: 30, wantReason: "rsync error: Timeout in data send/receive"},
		{name: "unknown code", exit: "99", wantCode: 99, wantReason: "unknown, code 99"},
		{name: "vanished files allowed", exit: "24", successCodes: []int{24}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := newJob(t, config.ProviderRsync)
			job.Env["FAKE_EXIT"] = tt.exit
			job.SuccessExitCodes = tt.successCodes

			p, err := New(job, WithRsyncPath(writeFakeRsync(t)))
			require.NoError(t, err)

			_, err = runOnce(t, context.Background(), p)
			if tt.wantCode == 0 {
				require.NoError(t, err)
				return
			}

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tt.wantCode, exitErr.Code)
			assert.Equal(t, tt.wantReason, exitErr.Error())
			assert.Empty(t, p.DataSize())
		})
	}
}

func TestTwoStageRsyncProvider(t *testing.T) {
	t.Parallel()

	job := newJob(t, config.ProviderTwoStageRsync)
	job.Stage1Profile = "debian"

	p, err := New(job, WithRsyncPath(writeFakeRsync(t)))
	require.NoError(t, err)

	logFile, err := runOnce(t, context.Background(), p)
	require.NoError(t, err)

	lines := []string{}
	for _, line := range strings.Split(readLog(t, logFile), "\n") {
		if strings.HasPrefix(line, "args: ") {
			lines = append(lines, line)
		}
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "--exclude dep11/*")
	assert.NotContains(t, lines[0], "--delete")
	assert.NotContains(t, lines[1], "dep11")
	assert.Contains(t, lines[1], "--delete-after")
	assert.Equal(t, "1.33T", p.DataSize())
}

func TestCommandProvider(t *testing.T) {
	t.Parallel()

	job := newJob(t, config.ProviderCommand)
	job.Command = `echo "mirror=$HUSTSYNC_MIRROR_NAME dir=$HUSTSYNC_WORKING_DIR up=$HUSTSYNC_UPSTREAM_URL"; echo "log=$HUSTSYNC_LOG_FILE"; echo "token=$TOKEN"; echo "Size: 42G"`
	job.Env["TOKEN"] = "abc"
	job.SizePattern = regexp.MustCompile(`Size: ([0-9.]+[KMGTP]?)`)

	p, err := New(job)
	require.NoError(t, err)

	logFile, err := runOnce(t, context.Background(), p)
	require.NoError(t, err)

	out := readLog(t, logFile)
	assert.Contains(t, out, "mirror=elvish dir="+job.MirrorDir+" up=rsync://rsync.elv.sh/elvish/")
	assert.Contains(t, out, "log="+logFile)
	assert.Contains(t, out, "token=abc")
	assert.Equal(t, "42G", p.DataSize())
}

func TestCommandProvider_Failures(t *testing.T) {
	t.Parallel()

	t.Run("exit code", func(t *testing.T) {
		t.Parallel()
		job := newJob(t, config.ProviderCommand)
		job.Command = "exit 3"
		p, err := New(job)
		require.NoError(t, err)

		_, err = runOnce(t, context.Background(), p)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 3, exitErr.Code)
		assert.Equal(t, "command exited with code 3", exitErr.Error())
	})

	t.Run("fail on match", func(t *testing.T) {
		t.Parallel()
		job := newJob(t, config.ProviderCommand)
		job.Command = "echo 'ERROR: upstream gone'; echo done"
		job.FailOnMatch = regexp.MustCompile(`ERROR`)
		p, err := New(job)
		require.NoError(t, err)

		_, err = runOnce(t, context.Background(), p)
		require.ErrorIs(t, err, ErrFailOnMatch)
	})

	t.Run("missing shell", func(t *testing.T) {
		t.Parallel()
		job := newJob(t, config.ProviderCommand)
		job.Command = "true"
		p, err := New(job, WithShellPath(filepath.Join(t.TempDir(), "nosh")))
		require.NoError(t, err)

		_, err = runOnce(t, context.Background(), p)
		require.ErrorContains(t, err, "failed to start")
	})
}

func TestRun_CancelKillsProcessGroup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command string
	}{
		{name: "terminates on SIGTERM", command: "sleep 30 & wait"},
		{name: "escalates to SIGKILL", command: "trap '' TERM; sleep 30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := newJob(t, config.ProviderCommand)
			job.Command = tt.command
			p, err := New(job, WithKillGrace(500*time.Millisecond))
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(200*time.Millisecond, cancel)

			start := time.Now()
			_, err = runOnce(t, ctx, p)
			require.ErrorIs(t, err, context.Canceled)
			assert.Less(t, time.Since(start), 10*time.Second)
		})
	}
}

func TestRun_TimeoutIsDeadlineExceeded(t *testing.T) {
	t.Parallel()

	job := newJob(t, config.ProviderCommand)
	job.Command = "sleep 30"
	p, err := New(job, WithKillGrace(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = runOnce(t, ctx, p)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
