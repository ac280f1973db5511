// Package worker runs the mirror jobs of one worker node.
//
// Every mirror has a job goroutine that owns its state. A scheduler loop
// hands due jobs to their goroutines, a weighted semaphore caps how many
// jobs sync at once, and every state change is written to the local store
// and pushed to the manager.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/provider"
	"github.com/hustsync/hustsync/internal/status"
	"github.com/hustsync/hustsync/internal/store"
	"github.com/hustsync/hustsync/internal/telemetry"
)

// DefaultTick is how often the scheduler looks for due jobs
const DefaultTick = time.Second

var (
	// ErrUnknownMirror is returned for commands naming a mirror the worker does not run
	ErrUnknownMirror = errors.New("unknown mirror")

	// ErrNotRunning is returned for commands received before Run started the jobs
	ErrNotRunning = errors.New("worker is not running")

	// ErrReloadUnsupported is returned by Reload when no config loader was given
	ErrReloadUnsupported = errors.New("reload is not configured")
)

// ProviderFactory builds the provider for one admission of a job
type ProviderFactory func(job *config.JobConfig) (provider.Provider, error)

// Option configures a Worker
type Option func(*Worker)

// WithManager links the worker to a manager. Without it the worker runs standalone.
func WithManager(m ManagerClient) Option {
	return func(w *Worker) {
		w.manager = m
	}
}

// WithMetrics sets the job metrics recorder
func WithMetrics(m *telemetry.JobMetrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithProviderFactory overrides how providers are built
func WithProviderFactory(f ProviderFactory) Option {
	return func(w *Worker) {
		w.newProvider = f
	}
}

// WithConfigLoader sets the function Reload uses to re-read the configuration
func WithConfigLoader(load func() (*config.WorkerConfig, error)) Option {
	return func(w *Worker) {
		w.loadConfig = load
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// WithTick overrides DefaultTick
func WithTick(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithHookShell sets the shell used to run exec_on_success and exec_on_failure hooks
func WithHookShell(path string) Option {
	return func(w *Worker) {
		w.shell = path
	}
}

// Worker schedules and runs the jobs of one worker node
type Worker struct {
	id          string
	store       store.Store
	manager     ManagerClient
	metrics     *telemetry.JobMetrics
	newProvider ProviderFactory
	loadConfig  func() (*config.WorkerConfig, error)
	now         func() time.Time
	tick        time.Duration
	shell       string

	sem      *semaphore.Weighted
	schedule *scheduleQueue

	mu     sync.RWMutex
	cfg    *config.WorkerConfig
	jobs   map[string]*job
	runCtx context.Context
	jobsWG sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]status.MirrorStatus
}

// New creates a worker for cfg, persisting job status in st
func New(cfg *config.WorkerConfig, st store.Store, opts ...Option) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limiter := provider.NewLimiter(cfg.Cgroup)
	w := &Worker{
		id:    cfg.Global.Name,
		store: st,
		newProvider: func(job *config.JobConfig) (provider.Provider, error) {
			return provider.New(job, provider.WithLimiter(limiter))
		},
		now:      time.Now,
		tick:     DefaultTick,
		shell:    "/bin/sh",
		sem:      semaphore.NewWeighted(int64(cfg.Global.Concurrent)),
		schedule: newScheduleQueue(),
		cfg:      cfg,
		jobs:     make(map[string]*job, len(cfg.Mirrors)),
		pending:  make(map[string]status.MirrorStatus),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, m := range cfg.Mirrors {
		w.jobs[m.Name] = newJob(w, m)
	}
	return w, nil
}

// ID is the worker name reported to the manager
func (w *Worker) ID() string {
	return w.id
}

// Run starts every job and blocks until ctx ends
func (w *Worker) Run(ctx context.Context) error {
	if err := w.init(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	w.mu.Lock()
	w.runCtx = gctx
	for _, j := range w.jobs {
		w.startJob(gctx, j)
	}
	w.mu.Unlock()

	g.Go(func() error {
		w.scheduleLoop(gctx)
		return nil
	})
	if w.manager != nil {
		g.Go(func() error {
			w.heartbeatLoop(gctx)
			return nil
		})
	}

	slog.Info("Worker started", "worker", w.id, "jobs", len(w.Jobs()))
	err := g.Wait()
	w.jobsWG.Wait()
	slog.Info("Worker stopped", "worker", w.id)
	return err
}

// startJob launches j's goroutine. Callers hold w.mu.
func (w *Worker) startJob(ctx context.Context, j *job) {
	w.jobsWG.Add(1)
	go func() {
		defer w.jobsWG.Done()
		j.run(ctx)
	}()
}

// init reconciles interrupted jobs, registers with the manager and seeds the schedule
func (w *Worker) init(ctx context.Context) error {
	fixed, err := w.store.ReconcileInterrupted(ctx, w.id)
	if err != nil {
		return err
	}
	for _, m := range fixed {
		slog.Warn("Marked interrupted job as failed", "mirror", m.Name)
	}

	if w.manager != nil {
		w.register(ctx)
	}

	records, err := w.store.ListMirrorStatus(ctx, w.id)
	if err != nil {
		return err
	}
	known := make(map[string]status.MirrorStatus, len(records))
	for _, rec := range records {
		known[rec.Name] = rec
	}

	remote := make(map[string]time.Time)
	if w.manager != nil {
		schedules, err := w.manager.GetSchedules(ctx, w.id)
		if err != nil {
			slog.Warn("Failed to fetch schedules from manager", "worker", w.id, "error", err)
		}
		for _, s := range schedules.Schedules {
			remote[s.Name] = s.NextSchedule
		}
	}

	now := w.now()
	w.mu.RLock()
	jobs := jobList(w.jobs)
	w.mu.RUnlock()
	for _, j := range jobs {
		next := now
		if rec, ok := known[j.name]; ok {
			rec.Upstream = j.Status().Upstream
			j.setRecord(rec)
			delete(known, j.name)
			if rec.Status.IsHeld() {
				j.setHeld(rec.Status)
				continue
			}
			next = laterOf(next, rec.NextScheduled)
		}
		next = laterOf(next, remote[j.name])
		w.schedule.Set(j.name, next)
	}

	for _, m := range fixed {
		if _, stale := known[m.Name]; !stale {
			_ = w.push(ctx, m)
		}
	}

	// records of mirrors no longer configured
	for name := range known {
		w.flush(ctx, name)
	}

	if w.manager != nil {
		if err := w.manager.ReportSchedules(ctx, w.id, w.schedule.Snapshot()); err != nil {
			slog.Warn("Failed to report schedules", "worker", w.id, "error", err)
		}
	}
	return nil
}

func (w *Worker) register(ctx context.Context) {
	w.mu.RLock()
	url := w.cfg.ControlURL()
	token := w.cfg.Manager.Token
	w.mu.RUnlock()

	_, err := w.manager.Register(ctx, status.WorkerStatus{ID: w.id, URL: url, Token: token})
	switch {
	case err == nil:
		slog.Info("Registered with manager", "worker", w.id, "url", url)
	case errors.Is(err, protocol.ErrWorkerExists):
		if _, err := w.manager.Heartbeat(ctx, w.id); err != nil {
			slog.Warn("Heartbeat after re-registration failed", "worker", w.id, "error", err)
		}
	default:
		slog.Error("Failed to register with manager", "worker", w.id, "error", err)
	}
}

func (w *Worker) scheduleLoop(ctx context.Context) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.retryPending(ctx)
			for _, name := range w.schedule.PopDue(w.now()) {
				j := w.job(name)
				if j == nil {
					continue
				}
				if err := j.send(ctx, jobMsg{ctrl: ctrlSchedule}); err != nil && ctx.Err() == nil {
					slog.Debug("Due job not started", "mirror", name, "error", err)
				}
			}
		}
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	w.mu.RLock()
	interval := w.cfg.GetHeartbeat()
	w.mu.RUnlock()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.heartbeat(ctx)
		}
	}
}

// heartbeat refreshes the registration, reports schedules and runs queued commands
func (w *Worker) heartbeat(ctx context.Context) {
	if _, err := w.manager.Heartbeat(ctx, w.id); err != nil {
		if !errors.Is(err, protocol.ErrWorkerNotFound) {
			slog.Warn("Heartbeat failed", "worker", w.id, "error", err)
			return
		}
		slog.Warn("Manager lost our registration, registering again", "worker", w.id)
		w.register(ctx)
	}

	if err := w.manager.ReportSchedules(ctx, w.id, w.schedule.Snapshot()); err != nil {
		slog.Warn("Failed to report schedules", "worker", w.id, "error", err)
	}

	cmds, err := w.manager.PollCommands(ctx, w.id)
	if err != nil {
		slog.Warn("Failed to poll commands", "worker", w.id, "error", err)
		return
	}
	for _, cmd := range cmds {
		if err := w.Dispatch(ctx, cmd); err != nil {
			slog.Warn("Queued command failed", "worker", w.id, "command", cmd.String(), "error", err)
		}
	}
}

// Dispatch applies a command. Job commands return once the job has handled them.
func (w *Worker) Dispatch(ctx context.Context, cmd protocol.WorkerCmd) error {
	slog.Info("Received command", "worker", w.id, "command", cmd.String())

	switch cmd.Cmd {
	case protocol.CmdPing:
		return nil
	case protocol.CmdReload:
		return w.Reload(ctx)
	}

	w.mu.RLock()
	running := w.runCtx != nil
	j := w.jobs[cmd.MirrorID]
	w.mu.RUnlock()
	if j == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMirror, cmd.MirrorID)
	}
	if !running {
		return ErrNotRunning
	}

	msg := jobMsg{force: cmd.Force()}
	switch cmd.Cmd {
	case protocol.CmdStart:
		msg.ctrl = ctrlStart
	case protocol.CmdStop:
		msg.ctrl = ctrlStop
	case protocol.CmdDisable:
		msg.ctrl = ctrlDisable
	case protocol.CmdRestart:
		msg.ctrl = ctrlRestart
	default:
		return fmt.Errorf("unsupported command %q", cmd.Cmd)
	}
	return j.call(ctx, msg)
}

// Reload re-reads the configuration. New mirrors start at once, removed
// mirrors are disabled and their status is deleted, and changed mirrors
// pick up their new settings on the next admission.
func (w *Worker) Reload(ctx context.Context) error {
	if w.loadConfig == nil {
		return ErrReloadUnsupported
	}
	cfg, err := w.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	w.mu.Lock()
	if cfg.Global.Concurrent != w.cfg.Global.Concurrent {
		slog.Warn("Changing global.concurrent requires a restart",
			"current", w.cfg.Global.Concurrent, "configured", cfg.Global.Concurrent)
	}
	cfg.Global.Name = w.id
	w.cfg = cfg

	wanted := make(map[string]struct{}, len(cfg.Mirrors))
	var added, removed []*job
	for _, m := range cfg.Mirrors {
		wanted[m.Name] = struct{}{}
		if j, ok := w.jobs[m.Name]; ok {
			j.setMirror(m)
			continue
		}
		j := newJob(w, m)
		w.jobs[m.Name] = j
		added = append(added, j)
	}
	for name, j := range w.jobs {
		if _, ok := wanted[name]; !ok {
			delete(w.jobs, name)
			removed = append(removed, j)
		}
	}
	running := w.runCtx != nil
	if running {
		for _, j := range added {
			w.startJob(w.runCtx, j)
		}
	}
	w.mu.Unlock()

	now := w.now()
	for _, j := range added {
		w.schedule.Set(j.name, now)
		slog.Info("Mirror added", "mirror", j.name)
	}
	for _, j := range removed {
		if running {
			if err := j.call(ctx, jobMsg{ctrl: ctrlRemove}); err != nil && !errors.Is(err, errJobRemoved) {
				slog.Warn("Failed to stop removed job", "mirror", j.name, "error", err)
			}
		}
		w.schedule.Remove(j.name)
		w.flush(ctx, j.name)
		slog.Info("Mirror removed", "mirror", j.name)
	}
	return nil
}

// flush deletes a mirror's status locally and on the manager
func (w *Worker) flush(ctx context.Context, name string) {
	w.pendingMu.Lock()
	delete(w.pending, name)
	w.pendingMu.Unlock()

	if err := w.store.DeleteMirrorStatus(ctx, w.id, name); err != nil {
		slog.Warn("Failed to delete local status", "mirror", name, "error", err)
	}
	if w.manager != nil {
		if err := w.manager.DeleteStatus(ctx, w.id, name); err != nil {
			slog.Warn("Failed to delete status on manager", "mirror", name, "error", err)
		}
	}
}

// prepare resolves the job configuration and builds its provider
// retryInterval is how long a mirror that failed to prepare waits before the next try
func (w *Worker) retryInterval(m config.MirrorConfig) time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return config.ResolveInterval(w.cfg.Global, m)
}

func (w *Worker) prepare(m config.MirrorConfig) (*config.JobConfig, provider.Provider, error) {
	w.mu.RLock()
	global := w.cfg.Global
	w.mu.RUnlock()

	cfg, err := config.ResolveJob(global, m)
	if err != nil {
		return nil, nil, err
	}
	p, err := w.newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

// persist writes rec locally and pushes it to the manager. A failed write
// is kept and retried on the next scheduler tick.
func (w *Worker) persist(ctx context.Context, rec status.MirrorStatus) {
	err := w.write(ctx, rec)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	prev, queued := w.pending[rec.Name]
	switch {
	case err != nil:
		w.pending[rec.Name] = rec
	case queued && !prev.LastUpdate.After(rec.LastUpdate):
		delete(w.pending, rec.Name)
	}
}

func (w *Worker) write(ctx context.Context, rec status.MirrorStatus) error {
	var errs []error
	if _, err := w.store.UpdateMirrorStatus(ctx, w.id, rec.Name, rec); err != nil && !errors.Is(err, store.ErrStaleUpdate) {
		slog.Error("Failed to save status", "mirror", rec.Name, "status", rec.Status, "error", err)
		errs = append(errs, err)
	}
	if err := w.push(ctx, rec); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// push sends rec to the manager. Stale reports are dropped.
func (w *Worker) push(ctx context.Context, rec status.MirrorStatus) error {
	if w.manager == nil {
		return nil
	}
	err := w.manager.UpdateStatus(ctx, w.id, rec)
	if errors.Is(err, protocol.ErrStaleUpdate) {
		slog.Info("Manager holds a newer status, dropping report", "mirror", rec.Name, "status", rec.Status)
		return nil
	}
	if err != nil {
		slog.Warn("Failed to push status", "mirror", rec.Name, "status", rec.Status, "error", err)
	}
	return err
}

func (w *Worker) retryPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	queued := make([]status.MirrorStatus, 0, len(w.pending))
	for _, rec := range w.pending {
		queued = append(queued, rec)
	}
	w.pendingMu.Unlock()

	for _, rec := range queued {
		w.persist(ctx, rec)
	}
}

// Status returns the current record of one mirror
func (w *Worker) Status(name string) (status.MirrorStatus, bool) {
	j := w.job(name)
	if j == nil {
		return status.MirrorStatus{}, false
	}
	return j.Status(), true
}

// Jobs returns the current record of every mirror, sorted by name
func (w *Worker) Jobs() []status.MirrorStatus {
	w.mu.RLock()
	jobs := jobList(w.jobs)
	w.mu.RUnlock()

	out := make([]status.MirrorStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Status())
	}
	slices.SortFunc(out, func(a, b status.MirrorStatus) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Schedules returns the next run time of every idle job
func (w *Worker) Schedules() protocol.MirrorSchedules {
	return w.schedule.Snapshot()
}

func (w *Worker) job(name string) *job {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.jobs[name]
}

func jobList(jobs map[string]*job) []*job {
	out := make([]*job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j)
	}
	return out
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
