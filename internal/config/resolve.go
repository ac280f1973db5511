package config

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/robfig/cron/v3"
)

// Stage1Profiles lists the exclude patterns of the first two-stage-rsync pass
var Stage1Profiles = map[string][]string{
	"debian": {
		"Packages*", "Sources*", "Release*", "InRelease", "i18n/*", "ls-lR*", "dep11/*",
	},
	"debian-oldstyle": {
		"Packages*", "Sources*", "Release*", "InRelease", "i18n/*", "ls-lR*",
	},
}

// cronParser accepts standard five-field expressions and descriptors such as @daily
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// JobConfig is a mirror section with every inherited value filled in
type JobConfig struct {
	Name       string
	Provider   string
	Upstream   string
	UseIPv6    bool
	MirrorDir  string
	MirrorType string
	LogDir     string
	Env        map[string]string
	IsMaster   bool

	Command     string
	FailOnMatch *regexp.Regexp
	SizePattern *regexp.Regexp

	RsyncOptions  []string
	Stage1Profile string
	MemoryLimit   int64

	// Retry is the number of attempts after the first
	Retry int

	// Timeout bounds one attempt; zero means unbounded
	Timeout time.Duration

	Interval time.Duration
	Schedule cron.Schedule

	ExecOnSuccess []string
	ExecOnFailure []string

	SuccessExitCodes []int
}

// ResolveJob merges a mirror section over the global section.
// A mirror value wins when set, then the global value, then the built-in default.
func ResolveJob(global WorkerGlobalConfig, m MirrorConfig) (*JobConfig, error) {
	job := &JobConfig{
		Name:          m.Name,
		Provider:      m.Provider,
		Upstream:      m.Upstream,
		UseIPv6:       m.UseIPv6,
		MirrorType:    m.MirrorType,
		Env:           m.Env,
		IsMaster:      m.Role != RoleSlave,
		Command:       m.Command,
		Stage1Profile: m.Stage1Profile,
	}
	if job.Provider == "" {
		job.Provider = ProviderRsync
	}

	job.MirrorDir = m.MirrorDir
	if job.MirrorDir == "" {
		job.MirrorDir = filepath.Join(global.MirrorDir, m.Name)
	}

	logDir := m.LogDir
	if logDir == "" {
		logDir = global.LogDir
	}
	if logDir == "" {
		logDir = DefaultLogDir
	}
	resolved, err := expandLogDir(logDir, m.Name)
	if err != nil {
		return nil, err
	}
	job.LogDir = resolved

	job.Retry = pick(m.Retry, global.Retry, 0)
	job.Timeout = time.Duration(pick(m.Timeout, global.Timeout, 0)) * time.Second
	job.Interval = ResolveInterval(global, m)

	if m.Cron != "" {
		sched, err := cronParser.Parse(m.Cron)
		if err != nil {
			return nil, fmt.Errorf("mirror %s: invalid cron %q: %w", m.Name, m.Cron, err)
		}
		job.Schedule = sched
	}

	job.RsyncOptions = append(slices.Clone(global.RsyncOptions), m.RsyncOptions...)
	job.SuccessExitCodes = slices.Clone(global.DangerousGlobalSuccessExitCodes)

	job.ExecOnSuccess = m.ExecOnSuccess
	if job.ExecOnSuccess == nil {
		job.ExecOnSuccess = global.ExecOnSuccess
	}
	job.ExecOnSuccess = append(slices.Clone(job.ExecOnSuccess), m.ExecOnSuccessExtra...)

	job.ExecOnFailure = m.ExecOnFailure
	if job.ExecOnFailure == nil {
		job.ExecOnFailure = global.ExecOnFailure
	}
	job.ExecOnFailure = append(slices.Clone(job.ExecOnFailure), m.ExecOnFailureExtra...)

	if m.FailOnMatch != "" {
		if job.FailOnMatch, err = regexp.Compile(m.FailOnMatch); err != nil {
			return nil, fmt.Errorf("mirror %s: invalid fail_on_match: %w", m.Name, err)
		}
	}
	if m.SizePattern != "" {
		if job.SizePattern, err = regexp.Compile(m.SizePattern); err != nil {
			return nil, fmt.Errorf("mirror %s: invalid size_pattern: %w", m.Name, err)
		}
	}
	if m.MemoryLimit != "" {
		if job.MemoryLimit, err = ParseMemoryLimit(m.MemoryLimit); err != nil {
			return nil, fmt.Errorf("mirror %s: invalid memory_limit: %w", m.Name, err)
		}
	}

	return job, nil
}

// NextRun returns the first run time after a terminal outcome at ended
func (j *JobConfig) NextRun(ended time.Time) time.Time {
	if j.Schedule != nil {
		return j.Schedule.Next(ended)
	}
	return ended.Add(j.Interval)
}

// ResolveInterval is the mirror's sync interval, falling back to the global
// one and then DefaultInterval. It needs no other part of the mirror to be valid.
func ResolveInterval(global WorkerGlobalConfig, m MirrorConfig) time.Duration {
	return time.Duration(pick(m.Interval, global.Interval, DefaultInterval)) * time.Second
}

func pick(mirror, global *int, fallback int) int {
	if mirror != nil {
		return *mirror
	}
	if global != nil {
		return *global
	}
	return fallback
}

func expandLogDir(tmpl, name string) (string, error) {
	t, err := template.New("log_dir").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("mirror %s: invalid log_dir template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Name string }{Name: name}); err != nil {
		return "", fmt.Errorf("mirror %s: invalid log_dir template: %w", name, err)
	}
	return buf.String(), nil
}

// ParseMemoryLimit parses sizes like "512M", "2G" or a plain byte count
func ParseMemoryLimit(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimSuffix(s, "B")
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := int64(1)
	switch s[len(s)-1] {
	case 'K':
		mult = 1 << 10
	case 'M':
		mult = 1 << 20
	case 'G':
		mult = 1 << 30
	case 'T':
		mult = 1 << 40
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * mult, nil
}
