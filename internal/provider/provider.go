// Package provider runs the external programs that actually synchronize a mirror.
//
// Providers are unix-only: children are started in their own process group so
// a cancelled run can be torn down as a whole.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hustsync/hustsync/internal/config"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks -source=provider.go Provider

// ErrFailOnMatch is returned when a run's log matches the mirror's fail_on_match pattern
var ErrFailOnMatch = errors.New("fail_on_match pattern found in log")

// Provider runs one mirror's sync program
type Provider interface {
	// Name is the mirror name
	Name() string
	Upstream() string
	LogDir() string

	// LogFile is the log of the most recent run, or "" before the first one
	LogFile() string

	IsMaster() bool

	// Run performs one attempt, appending output to logFile. A nil error is success.
	// A cancelled ctx stops the attempt and returns ctx.Err().
	Run(ctx context.Context, logFile string) error

	// DataSize is the size reported by the last successful run, or ""
	DataSize() string
}

// Option configures a provider
type Option func(*options)

type options struct {
	limiter   Limiter
	rsyncPath string
	shellPath string
	killGrace time.Duration
}

// WithLimiter sets the resource limiter applied to every started process
func WithLimiter(l Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithRsyncPath overrides the rsync binary
func WithRsyncPath(path string) Option {
	return func(o *options) {
		o.rsyncPath = path
	}
}

// WithShellPath overrides the shell used by the command provider
func WithShellPath(path string) Option {
	return func(o *options) {
		o.shellPath = path
	}
}

// WithKillGrace sets the delay between SIGTERM and SIGKILL on cancellation
func WithKillGrace(d time.Duration) Option {
	return func(o *options) {
		o.killGrace = d
	}
}

// New builds the provider named by job.Provider
func New(job *config.JobConfig, opts ...Option) (Provider, error) {
	o := &options{
		limiter:   NoopLimiter{},
		rsyncPath: "rsync",
		shellPath: "/bin/sh",
		killGrace: DefaultKillGrace,
	}
	for _, opt := range opts {
		opt(o)
	}

	switch job.Provider {
	case config.ProviderRsync:
		return &rsyncProvider{base: base{job: job, opts: o}}, nil
	case config.ProviderTwoStageRsync:
		excludes, ok := config.Stage1Profiles[job.Stage1Profile]
		if !ok {
			return nil, fmt.Errorf("mirror %s: unknown stage1_profile %q", job.Name, job.Stage1Profile)
		}
		return &twoStageRsyncProvider{base: base{job: job, opts: o}, stage1Excludes: excludes}, nil
	case config.ProviderCommand:
		if job.Command == "" {
			return nil, fmt.Errorf("mirror %s: command is required", job.Name)
		}
		return &commandProvider{base: base{job: job, opts: o}}, nil
	default:
		return nil, fmt.Errorf("mirror %s: unsupported provider %q", job.Name, job.Provider)
	}
}

// base carries the state shared by every provider
type base struct {
	job  *config.JobConfig
	opts *options

	mu      sync.Mutex
	logFile string
	size    string
}

func (b *base) Name() string     { return b.job.Name }
func (b *base) Upstream() string { return b.job.Upstream }
func (b *base) LogDir() string   { return b.job.LogDir }
func (b *base) IsMaster() bool   { return b.job.IsMaster }

func (b *base) LogFile() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logFile
}

func (b *base) DataSize() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *base) begin(logFile string) error {
	b.mu.Lock()
	b.logFile = logFile
	b.mu.Unlock()

	if err := os.MkdirAll(b.job.MirrorDir, 0o755); err != nil {
		return fmt.Errorf("failed to create mirror dir: %w", err)
	}
	return nil
}

func (b *base) setSize(size string) {
	b.mu.Lock()
	b.size = size
	b.mu.Unlock()
}

func (b *base) env() []string {
	env := make([]string, 0, len(b.job.Env))
	for k, v := range b.job.Env {
		env = append(env, k+"="+v)
	}
	return env
}

func (b *base) spec(path string, args []string, logFile string, extraEnv ...string) cmdSpec {
	return cmdSpec{
		mirror:      b.job.Name,
		path:        path,
		args:        args,
		dir:         b.job.MirrorDir,
		env:         append(b.env(), extraEnv...),
		logFile:     logFile,
		limiter:     b.opts.limiter,
		memoryLimit: b.job.MemoryLimit,
		killGrace:   b.opts.killGrace,
	}
}

// checkFailOnMatch fails an otherwise successful run whose log matches fail_on_match
func (b *base) checkFailOnMatch(logFile string) error {
	if b.job.FailOnMatch == nil || logFile == os.DevNull {
		return nil
	}
	n, err := countMatches(logFile, b.job.FailOnMatch)
	if err != nil {
		return fmt.Errorf("failed to scan log: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d matches of %q", ErrFailOnMatch, n, b.job.FailOnMatch.String())
	}
	return nil
}
