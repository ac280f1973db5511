package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/provider"
	"github.com/hustsync/hustsync/internal/status"
)

// shutdownMessage is recorded on a job whose run was cut short by worker shutdown
const shutdownMessage = "sync interrupted by worker shutdown"

// persistTimeout bounds status writes made after the job context is gone
const persistTimeout = 5 * time.Second

var errJobRemoved = errors.New("job removed")

type ctrl int

const (
	// ctrlSchedule is sent by the scheduler when the job is due
	ctrlSchedule ctrl = iota
	ctrlStart
	ctrlStop
	ctrlDisable
	ctrlRestart
	// ctrlRemove disables the job and ends its goroutine
	ctrlRemove
)

type jobMsg struct {
	ctrl  ctrl
	force bool
	ack   chan struct{}
}

// job owns the state of one mirror. Only its run goroutine changes the
// state; the mutex guards reads from other goroutines.
type job struct {
	name   string
	w      *Worker
	msgs   chan jobMsg
	exited chan struct{}

	mu      sync.Mutex
	mirror  config.MirrorConfig
	record  status.MirrorStatus
	held    status.SyncStatus
	running bool
}

func newJob(w *Worker, m config.MirrorConfig) *job {
	return &job{
		name:   m.Name,
		w:      w,
		msgs:   make(chan jobMsg, 4),
		exited: make(chan struct{}),
		mirror: m,
		record: status.MirrorStatus{
			Name:     m.Name,
			Worker:   w.id,
			Upstream: m.Upstream,
			Status:   status.StatusNone,
			IsMaster: m.Role != config.RoleSlave,
		},
	}
}

// Status returns a copy of the job's current record
func (j *job) Status() status.MirrorStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record
}

func (j *job) setMirror(m config.MirrorConfig) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mirror = m
}

func (j *job) setRecord(rec status.MirrorStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record = rec
}

func (j *job) setHeld(held status.SyncStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.held = held
}

func (j *job) isHeld() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.held != ""
}

func (j *job) setRunning(running bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = running
}

// send queues msg for the run goroutine
func (j *job) send(ctx context.Context, msg jobMsg) error {
	select {
	case j.msgs <- msg:
		return nil
	case <-j.exited:
		return errJobRemoved
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call queues msg and waits until it has been handled
func (j *job) call(ctx context.Context, msg jobMsg) error {
	msg.ack = make(chan struct{})
	if err := j.send(ctx, msg); err != nil {
		return err
	}
	select {
	case <-msg.ack:
		return nil
	case <-j.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the job's goroutine. It returns when ctx ends or the job is removed.
func (j *job) run(ctx context.Context) {
	defer close(j.exited)

	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	startSync := func() {
		syncCtx, c := context.WithCancel(ctx)
		cancel, done = c, make(chan struct{})
		j.setRunning(true)
		finished := done
		go func() {
			defer close(finished)
			j.sync(syncCtx)
		}()
	}

	// stopSync cancels a running sync and waits for it to unwind
	stopSync := func() bool {
		if cancel == nil {
			return false
		}
		cancel()
		<-done
		cancel, done = nil, nil
		j.setRunning(false)
		return true
	}

	hold := func(held status.SyncStatus) {
		j.setHeld(held)
		cancelled := stopSync()
		j.w.schedule.Remove(j.name)
		j.update(ctx, func(r *status.MirrorStatus) {
			r.Status = held
			r.ErrorMsg = ""
			if cancelled {
				r.LastEnded = j.w.now()
			}
		})
		slog.Info("Job held", "mirror", j.name, "status", held)
	}

	for {
		select {
		case <-ctx.Done():
			if stopSync() && !j.Status().Status.IsTerminal() {
				persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
				j.update(persistCtx, func(r *status.MirrorStatus) {
					r.Status = status.StatusFailed
					r.ErrorMsg = shutdownMessage
					r.LastEnded = j.w.now()
				})
				cancelPersist()
			}
			return

		case <-done:
			cancel()
			cancel, done = nil, nil
			j.setRunning(false)

		case msg := <-j.msgs:
			switch msg.ctrl {
			case ctrlSchedule:
				if done == nil && !j.isHeld() {
					startSync()
				}
			case ctrlStart:
				// without force an active job keeps a pending schedule
				wasHeld := j.isHeld()
				j.setHeld("")
				if done == nil && (wasHeld || msg.force || !j.w.schedule.Pending(j.name, j.w.now())) {
					j.w.schedule.Remove(j.name)
					startSync()
				}
			case ctrlStop:
				hold(status.StatusPaused)
			case ctrlDisable:
				hold(status.StatusDisabled)
			case ctrlRestart:
				j.setHeld("")
				if stopSync() {
					j.update(ctx, func(r *status.MirrorStatus) {
						r.Status = status.StatusPreSyncing
						r.LastEnded = j.w.now()
					})
				}
				j.w.schedule.Remove(j.name)
				startSync()
			case ctrlRemove:
				hold(status.StatusDisabled)
				if msg.ack != nil {
					close(msg.ack)
				}
				return
			}
			if msg.ack != nil {
				close(msg.ack)
			}
		}
	}
}

// sync admits the job, runs up to 1+retry attempts and records the outcome.
// A cancelled ctx returns without recording anything; the caller owns that transition.
func (j *job) sync(ctx context.Context) {
	w := j.w

	j.mu.Lock()
	mirror := j.mirror
	j.mu.Unlock()

	cfg, p, err := w.prepare(mirror)
	if err != nil {
		slog.Error("Failed to prepare job", "mirror", j.name, "error", err)
		ended := w.now()
		next := ended.Add(w.retryInterval(mirror))
		j.update(ctx, func(r *status.MirrorStatus) {
			r.Status = status.StatusFailed
			r.ErrorMsg = err.Error()
			r.LastEnded = ended
			r.NextScheduled = next
		})
		w.schedule.Set(j.name, next)
		return
	}

	j.update(ctx, func(r *status.MirrorStatus) {
		r.Status = status.StatusPreSyncing
		r.Upstream = cfg.Upstream
		r.IsMaster = cfg.IsMaster
	})

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer w.sem.Release(1)
	w.metrics.AddRunning(ctx, 1)
	defer w.metrics.AddRunning(context.WithoutCancel(ctx), -1)

	began := w.now()
	var runErr error
	for attempt := 0; attempt <= cfg.Retry; attempt++ {
		j.update(ctx, func(r *status.MirrorStatus) {
			r.Status = status.StatusSyncing
			r.LastStarted = w.now()
		})
		slog.Info("Sync started", "mirror", j.name, "attempt", attempt+1)

		runErr = j.attempt(ctx, cfg, p)
		if ctx.Err() != nil {
			return
		}
		w.metrics.RecordAttempt(ctx, j.name, runErr == nil)
		if runErr == nil {
			break
		}

		slog.Warn("Sync attempt failed", "mirror", j.name, "attempt", attempt+1, "error", runErr)
		if attempt < cfg.Retry {
			msg := runErr.Error()
			j.update(ctx, func(r *status.MirrorStatus) {
				r.Status = status.StatusFailed
				r.ErrorMsg = msg
				r.LastEnded = w.now()
			})
		}
	}

	ended := w.now()
	next := cfg.NextRun(ended)
	outcome := status.StatusSuccess
	errMsg := ""
	if runErr != nil {
		outcome = status.StatusFailed
		errMsg = runErr.Error()
	}
	size := p.DataSize()

	j.update(ctx, func(r *status.MirrorStatus) {
		r.Status = outcome
		r.ErrorMsg = errMsg
		r.LastEnded = ended
		r.NextScheduled = next
		r.Size = size
	})
	w.schedule.Set(j.name, next)
	w.metrics.RecordSyncDuration(ctx, j.name, outcome.String(), ended.Sub(began))
	slog.Info("Sync finished", "mirror", j.name, "status", outcome, "duration", ended.Sub(began), "next", next)

	w.runHooks(ctx, cfg, p, outcome)
}

// attempt runs the provider once, bounded by the job timeout
func (j *job) attempt(ctx context.Context, cfg *config.JobConfig, p provider.Provider) error {
	logFile, err := provider.OpenLog(p.LogDir(), j.name, j.w.now())
	if err != nil {
		return err
	}

	attemptCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	err = p.Run(attemptCtx, logFile)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("sync timed out after %s", cfg.Timeout)
	}
	return err
}

// update applies fn to the record, stamps it and persists it
func (j *job) update(ctx context.Context, fn func(*status.MirrorStatus)) {
	j.mu.Lock()
	fn(&j.record)
	j.record.Name = j.name
	j.record.Worker = j.w.id
	j.record.LastUpdate = j.w.now()
	rec := j.record
	j.mu.Unlock()

	j.w.persist(ctx, rec)
}
