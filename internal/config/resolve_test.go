package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJob_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWorkerConfig(WithConfigPath(writeConfig(t, "worker.toml", sampleWorkerTOML)))
	require.NoError(t, err)

	elvish, err := ResolveJob(cfg.Global, cfg.Mirrors[0])
	require.NoError(t, err)
	assert.Equal(t, "/srv/mirror/elvish", elvish.MirrorDir)
	assert.Equal(t, "/srv/mirror/log/elvish", elvish.LogDir)
	assert.Equal(t, 2, elvish.Retry, "inherits global retry")
	assert.Equal(t, time.Hour, elvish.Timeout, "inherits global timeout")
	assert.Equal(t, time.Minute, elvish.Interval, "mirror interval wins")
	assert.True(t, elvish.IsMaster)
	assert.True(t, elvish.UseIPv6)
	assert.Equal(t, []string{"--bwlimit=8m"}, elvish.RsyncOptions)
	assert.Equal(t, []string{"/usr/local/bin/notify"}, elvish.ExecOnFailure)
	assert.Equal(t, []int{24}, elvish.SuccessExitCodes)

	debian, err := ResolveJob(cfg.Global, cfg.Mirrors[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"--bwlimit=8m", "--exclude=/pool/"}, debian.RsyncOptions)
	assert.Equal(t, []string{"/usr/local/bin/notify", "echo failed"}, debian.ExecOnFailure)
	assert.Equal(t, int64(512<<20), debian.MemoryLimit)
	assert.Equal(t, 24*time.Hour, debian.Interval)

	pypi, err := ResolveJob(cfg.Global, cfg.Mirrors[2])
	require.NoError(t, err)
	assert.False(t, pypi.IsMaster)
	assert.Zero(t, pypi.Timeout, "explicit zero overrides global")
	require.NotNil(t, pypi.FailOnMatch)
	require.NotNil(t, pypi.SizePattern)
	require.NotNil(t, pypi.Schedule)
}

func TestResolveJob_BuiltinDefaults(t *testing.T) {
	t.Parallel()

	job, err := ResolveJob(WorkerGlobalConfig{MirrorDir: "/data"}, MirrorConfig{Name: "elvish", Upstream: "rsync://a/"})
	require.NoError(t, err)
	assert.Equal(t, ProviderRsync, job.Provider)
	assert.Equal(t, "/tmp/hustsync/log/hustsync/elvish", job.LogDir)
	assert.Equal(t, "/data/elvish", job.MirrorDir)
	assert.Zero(t, job.Retry, "absent retry means a single attempt")
	assert.Zero(t, job.Timeout, "absent timeout means unbounded")
	assert.Equal(t, 120*time.Second, job.Interval)
	assert.Empty(t, job.ExecOnSuccess)
}

func TestResolveInterval(t *testing.T) {
	t.Parallel()

	global, mirror := 600, 30
	assert.Equal(t, time.Duration(DefaultInterval)*time.Second, ResolveInterval(WorkerGlobalConfig{}, MirrorConfig{}))
	assert.Equal(t, 10*time.Minute, ResolveInterval(WorkerGlobalConfig{RetryStrategy: RetryStrategy{Interval: &global}}, MirrorConfig{}))
	assert.Equal(t, 30*time.Second, ResolveInterval(WorkerGlobalConfig{RetryStrategy: RetryStrategy{Interval: &global}}, MirrorConfig{RetryStrategy: RetryStrategy{Interval: &mirror}}))

	broken := MirrorConfig{Name: "elvish", RetryStrategy: RetryStrategy{Interval: &mirror}, Cron: "not a cron"}
	_, err := ResolveJob(WorkerGlobalConfig{}, broken)
	require.Error(t, err)
	assert.Equal(t, 30*time.Second, ResolveInterval(WorkerGlobalConfig{}, broken), "usable when the mirror fails to resolve")
}

func TestResolveJob_MirrorHooksReplaceGlobal(t *testing.T) {
	t.Parallel()

	global := WorkerGlobalConfig{ExecOnStatus: ExecOnStatus{ExecOnSuccess: []string{"global"}}}
	mirror := MirrorConfig{
		Name:              "a",
		Upstream:          "rsync://a/",
		ExecOnStatus:      ExecOnStatus{ExecOnSuccess: []string{"mirror"}},
		ExecOnStatusExtra: ExecOnStatusExtra{ExecOnSuccessExtra: []string{"extra"}},
	}

	job, err := ResolveJob(global, mirror)
	require.NoError(t, err)
	assert.Equal(t, []string{"mirror", "extra"}, job.ExecOnSuccess)
	assert.Equal(t, []string{"global"}, global.ExecOnSuccess, "global slice is not mutated")
}

func TestResolveJob_BadLogDirTemplate(t *testing.T) {
	t.Parallel()

	_, err := ResolveJob(WorkerGlobalConfig{LogDir: "/log/{{.Mirror}}"}, MirrorConfig{Name: "a"})
	require.ErrorContains(t, err, "invalid log_dir template")
}

func TestJobConfig_NextRun(t *testing.T) {
	t.Parallel()

	ended := time.Date(2024, 5, 1, 1, 30, 0, 0, time.UTC)

	byInterval := &JobConfig{Interval: 2 * time.Minute}
	assert.Equal(t, ended.Add(2*time.Minute), byInterval.NextRun(ended))

	job, err := ResolveJob(WorkerGlobalConfig{}, MirrorConfig{Name: "a", Cron: "0 */6 * * *"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), job.NextRun(ended))

	daily, err := ResolveJob(WorkerGlobalConfig{}, MirrorConfig{Name: "a", Cron: "@daily"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), daily.NextRun(ended))
}

func TestParseMemoryLimit(t *testing.T) {
	t.Parallel()

	tests := map[string]int64{
		"1024": 1024,
		"4k":   4 << 10,
		"512M": 512 << 20,
		"2GB":  2 << 30,
		"1T":   1 << 40,
	}
	for in, want := range tests {
		got, err := ParseMemoryLimit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "B", "-1M", "x", "9999999T", "9223372036854775807K"} {
		_, err := ParseMemoryLimit(bad)
		assert.Error(t, err, bad)
	}
}
