// Package manager implements the manager side of the fleet: worker
// registration, the replicated mirror status view and command relay.
package manager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/httpclient"
	"github.com/hustsync/hustsync/internal/otel"
	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/status"
	"github.com/hustsync/hustsync/internal/store"
	"github.com/hustsync/hustsync/internal/telemetry"
)

// ErrInvalidRequest is returned when a request body fails validation
var ErrInvalidRequest = errors.New("invalid request")

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=manager.go Service

// Service defines the manager operations exposed over HTTP
type Service interface {
	// CheckReadiness checks that the store answers
	CheckReadiness(ctx context.Context) error

	// ListWorkers returns every registered worker with its stale flag
	ListWorkers(ctx context.Context) ([]protocol.WorkerInfo, error)
	// RegisterWorker creates a worker registration. An empty token is generated.
	RegisterWorker(ctx context.Context, w status.WorkerStatus) (status.WorkerStatus, error)
	// RefreshWorker records a heartbeat
	RefreshWorker(ctx context.Context, workerID string) (status.WorkerStatus, error)
	// DeleteWorker removes a registration and its pending commands
	DeleteWorker(ctx context.Context, workerID string) error

	// ListJobs returns the status records of one worker
	ListJobs(ctx context.Context, workerID string) ([]status.MirrorStatus, error)
	// GetJob returns one status record
	GetJob(ctx context.Context, workerID, mirrorID string) (status.MirrorStatus, error)
	// UpdateJob applies a status report from a worker
	UpdateJob(ctx context.Context, workerID, mirrorID string, rec status.MirrorStatus) (status.MirrorStatus, error)
	// DeleteJob removes the status record of a mirror
	DeleteJob(ctx context.Context, workerID, mirrorID string) error

	// GetSchedules returns the stored next run of every mirror of a worker
	GetSchedules(ctx context.Context, workerID string) (protocol.MirrorSchedules, error)
	// UpdateSchedules stores the next runs reported by a worker
	UpdateSchedules(ctx context.Context, workerID string, s protocol.MirrorSchedules) error
	// PollCommands drains the commands queued for a worker
	PollCommands(ctx context.Context, workerID string) ([]protocol.WorkerCmd, error)
	// SendCommand relays a client command to its worker
	SendCommand(ctx context.Context, cmd protocol.ClientCmd) error

	// WebStatus returns the public view of every mirror
	WebStatus(ctx context.Context) ([]status.WebMirrorStatus, error)
	// FlushDisabled removes every disabled record and returns how many were removed
	FlushDisabled(ctx context.Context) (int, error)
}

// options holds configuration options for the manager
type options struct {
	now        func() time.Time
	staleAfter time.Duration
	metrics    *telemetry.FleetMetrics
	tracer     trace.Tracer
	client     httpclient.Client
}

// Option is a functional option for configuring the manager
type Option func(*options) error

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// WithStaleAfter sets the heartbeat grace period after which a worker is
// listed as stale. Zero disables the flag.
func WithStaleAfter(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("stale grace period must not be negative, got %s", d)
		}
		o.staleAfter = d
		return nil
	}
}

// WithMetrics sets the fleet instruments. A nil value disables metrics.
func WithMetrics(m *telemetry.FleetMetrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithWorkerClient sets the client used to push commands to workers.
// Without it commands are only queued for the next poll.
func WithWorkerClient(c httpclient.Client) Option {
	return func(o *options) error {
		o.client = c
		return nil
	}
}

// Manager implements Service on top of a status store
type Manager struct {
	store      store.Store
	now        func() time.Time
	staleAfter time.Duration
	metrics    *telemetry.FleetMetrics
	tracer     trace.Tracer
	client     httpclient.Client
	queue      *commandQueue
}

var _ Service = (*Manager)(nil)

// New creates a manager backed by st
func New(st store.Store, opts ...Option) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	o := &options{
		now:        time.Now,
		staleAfter: config.DefaultWorkerStaleAfter,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return &Manager{
		store:      st,
		now:        o.now,
		staleAfter: o.staleAfter,
		metrics:    o.metrics,
		tracer:     o.tracer,
		client:     o.client,
		queue:      newCommandQueue(),
	}, nil
}

// notFound lists the errors that are part of normal operation on lookups
var notFound = []error{store.ErrWorkerNotFound, store.ErrMirrorNotFound}

// CheckReadiness checks that the store answers
func (m *Manager) CheckReadiness(ctx context.Context) error {
	if _, err := m.store.ListWorkers(ctx); err != nil {
		return fmt.Errorf("store is not ready: %w", err)
	}
	return nil
}

// ListWorkers returns every registered worker with its stale flag
func (m *Manager) ListWorkers(ctx context.Context) ([]protocol.WorkerInfo, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.ListWorkers")
	defer span.End()

	workers, err := m.store.ListWorkers(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	slices.SortFunc(workers, func(a, b status.WorkerStatus) int { return cmp.Compare(a.ID, b.ID) })

	now := m.now()
	result := make([]protocol.WorkerInfo, 0, len(workers))
	for _, w := range workers {
		result = append(result, protocol.WorkerInfo{
			WorkerStatus: w,
			Stale:        w.IsStale(now, m.staleAfter),
		})
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(result)))
	m.metrics.RecordWorkers(ctx, int64(len(result)))
	return result, nil
}

// RegisterWorker creates a worker registration
func (m *Manager) RegisterWorker(ctx context.Context, w status.WorkerStatus) (status.WorkerStatus, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.RegisterWorker")
	defer span.End()
	span.SetAttributes(otel.AttrWorkerID.String(w.ID))

	if w.ID == "" {
		err := fmt.Errorf("%w: worker id is required", ErrInvalidRequest)
		otel.RecordError(span, err, ErrInvalidRequest)
		return status.WorkerStatus{}, err
	}
	if w.Token == "" {
		w.Token = uuid.NewString()
	}
	now := m.now()
	w.LastOnline = now
	w.LastRegister = now

	created, err := m.store.CreateWorker(ctx, w)
	if err != nil {
		otel.RecordError(span, err, store.ErrWorkerExists)
		return status.WorkerStatus{}, err
	}

	slog.InfoContext(ctx, "Worker registered",
		"worker", created.ID,
		"url", created.URL,
		"request_id", middleware.GetReqID(ctx))
	m.recordWorkerCount(ctx)
	return created, nil
}

// RefreshWorker records a heartbeat
func (m *Manager) RefreshWorker(ctx context.Context, workerID string) (status.WorkerStatus, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.RefreshWorker")
	defer span.End()
	span.SetAttributes(otel.AttrWorkerID.String(workerID))

	w, err := m.store.RefreshWorker(ctx, workerID)
	if err != nil {
		otel.RecordError(span, err, notFound...)
		return status.WorkerStatus{}, err
	}
	return w, nil
}

// DeleteWorker removes a registration and drops its pending commands
func (m *Manager) DeleteWorker(ctx context.Context, workerID string) error {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.DeleteWorker")
	defer span.End()
	span.SetAttributes(otel.AttrWorkerID.String(workerID))

	if err := m.store.DeleteWorker(ctx, workerID); err != nil {
		otel.RecordError(span, err, notFound...)
		return err
	}
	m.queue.drop(workerID)

	slog.InfoContext(ctx, "Worker deleted", "worker", workerID)
	m.recordWorkerCount(ctx)
	return nil
}

// ListJobs returns the status records of one worker
func (m *Manager) ListJobs(ctx context.Context, workerID string) ([]status.MirrorStatus, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.ListJobs")
	defer span.End()
	span.SetAttributes(otel.AttrWorkerID.String(workerID))

	if _, err := m.store.GetWorker(ctx, workerID); err != nil {
		otel.RecordError(span, err, notFound...)
		return nil, err
	}
	records, err := m.store.ListMirrorStatus(ctx, workerID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	slices.SortFunc(records, func(a, b status.MirrorStatus) int { return cmp.Compare(a.Name, b.Name) })
	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return records, nil
}

// GetJob returns one status record
func (m *Manager) GetJob(ctx context.Context, workerID, mirrorID string) (status.MirrorStatus, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.GetJob")
	defer span.End()
	span.SetAttributes(otel.JobAttributes(workerID, mirrorID)...)

	rec, err := m.store.GetMirrorStatus(ctx, workerID, mirrorID)
	if err != nil {
		otel.RecordError(span, err, notFound...)
		return status.MirrorStatus{}, err
	}
	return rec, nil
}

// UpdateJob applies a status report. The path identifies the record and the
// report replaces it as a whole. Reports older than the stored record are
// rejected with store.ErrStaleUpdate.
func (m *Manager) UpdateJob(
	ctx context.Context,
	workerID, mirrorID string,
	rec status.MirrorStatus,
) (status.MirrorStatus, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.UpdateJob")
	defer span.End()
	span.SetAttributes(
		otel.AttrWorkerID.String(workerID),
		otel.AttrMirrorName.String(mirrorID),
		otel.AttrSyncStatus.String(rec.Status.String()),
	)

	if _, err := m.store.GetWorker(ctx, workerID); err != nil {
		otel.RecordError(span, err, notFound...)
		return status.MirrorStatus{}, err
	}

	rec.Worker = workerID
	rec.Name = mirrorID

	stored, err := m.store.UpdateMirrorStatus(ctx, workerID, mirrorID, rec)
	if err != nil {
		m.metrics.RecordStatusUpdate(ctx, workerID, rec.Status.String(), false)
		otel.RecordError(span, err, store.ErrStaleUpdate)
		if errors.Is(err, store.ErrStaleUpdate) {
			slog.DebugContext(ctx, "Stale status report rejected",
				"worker", workerID, "mirror", mirrorID, "last_update", rec.LastUpdate)
		}
		return status.MirrorStatus{}, err
	}
	m.metrics.RecordStatusUpdate(ctx, workerID, stored.Status.String(), true)

	logFn := slog.DebugContext
	if stored.Status == status.StatusFailed {
		logFn = slog.WarnContext
	}
	logFn(ctx, "Mirror status updated",
		"worker", workerID,
		"mirror", mirrorID,
		"status", stored.Status,
		"error", stored.ErrorMsg)
	return stored, nil
}

// DeleteJob removes the status record of a mirror
func (m *Manager) DeleteJob(ctx context.Context, workerID, mirrorID string) error {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.DeleteJob")
	defer span.End()
	span.SetAttributes(otel.JobAttributes(workerID, mirrorID)...)

	if err := m.store.DeleteMirrorStatus(ctx, workerID, mirrorID); err != nil {
		otel.RecordError(span, err)
		return err
	}
	slog.InfoContext(ctx, "Mirror status deleted", "worker", workerID, "mirror", mirrorID)
	return nil
}

// GetSchedules returns the stored next run of every mirror of a worker
func (m *Manager) GetSchedules(ctx context.Context, workerID string) (protocol.MirrorSchedules, error) {
	records, err := m.ListJobs(ctx, workerID)
	if err != nil {
		return protocol.MirrorSchedules{}, err
	}

	out := protocol.MirrorSchedules{Schedules: make([]protocol.MirrorSchedule, 0, len(records))}
	for _, rec := range records {
		out.Schedules = append(out.Schedules, protocol.MirrorSchedule{
			Name:         rec.Name,
			NextSchedule: rec.NextScheduled,
		})
	}
	return out, nil
}

// UpdateSchedules stores the next runs reported by a worker. Missing records
// are created with status none. The stored last_update is kept so that the
// next status report from the worker still applies.
func (m *Manager) UpdateSchedules(ctx context.Context, workerID string, s protocol.MirrorSchedules) error {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.UpdateSchedules")
	defer span.End()
	span.SetAttributes(otel.AttrWorkerID.String(workerID), otel.AttrResultCount.Int(len(s.Schedules)))

	if _, err := m.store.GetWorker(ctx, workerID); err != nil {
		otel.RecordError(span, err, notFound...)
		return err
	}

	for _, sched := range s.Schedules {
		if sched.Name == "" {
			continue
		}
		rec, err := m.store.GetMirrorStatus(ctx, workerID, sched.Name)
		switch {
		case errors.Is(err, store.ErrMirrorNotFound):
			rec = status.MirrorStatus{
				Name:   sched.Name,
				Worker: workerID,
				Status: status.StatusNone,
			}
		case err != nil:
			otel.RecordError(span, err)
			return err
		}
		if rec.NextScheduled.Equal(sched.NextSchedule) {
			continue
		}
		rec.NextScheduled = sched.NextSchedule

		if _, err := m.store.UpdateMirrorStatus(ctx, workerID, sched.Name, rec); err != nil {
			if errors.Is(err, store.ErrStaleUpdate) {
				continue
			}
			otel.RecordError(span, err)
			return err
		}
	}
	return nil
}

// PollCommands drains the commands queued for a worker
func (m *Manager) PollCommands(ctx context.Context, workerID string) ([]protocol.WorkerCmd, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.PollCommands")
	defer span.End()
	span.SetAttributes(otel.AttrWorkerID.String(workerID))

	if _, err := m.store.GetWorker(ctx, workerID); err != nil {
		otel.RecordError(span, err, notFound...)
		return nil, err
	}
	cmds := m.queue.drain(workerID)
	span.SetAttributes(otel.AttrResultCount.Int(len(cmds)))
	return cmds, nil
}

// SendCommand relays a client command. Stop and disable are reflected on the
// manager's record right away. The command is pushed to the worker's control
// server and queued for the next poll only when the push fails.
func (m *Manager) SendCommand(ctx context.Context, cmd protocol.ClientCmd) error {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.SendCommand")
	defer span.End()
	span.SetAttributes(
		otel.AttrWorkerID.String(cmd.WorkerID),
		otel.AttrMirrorName.String(cmd.MirrorID),
		otel.AttrCommand.String(string(cmd.Cmd)),
	)

	if err := cmd.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		otel.RecordError(span, err, ErrInvalidRequest)
		return err
	}

	w, err := m.store.GetWorker(ctx, cmd.WorkerID)
	if err != nil {
		otel.RecordError(span, err, notFound...)
		return err
	}

	if held := heldStatus(cmd.Cmd); held != "" {
		if err := m.markHeld(ctx, cmd.WorkerID, cmd.MirrorID, held); err != nil {
			otel.RecordError(span, err)
			return err
		}
	}

	wc := cmd.WorkerCmd()
	if m.client != nil && w.URL != "" {
		err := protocol.PostWorkerCmd(ctx, m.client, w.URL, wc)
		if err == nil {
			slog.InfoContext(ctx, "Command sent to worker", "worker", w.ID, "cmd", wc.String())
			return nil
		}
		slog.WarnContext(ctx, "Failed to push command to worker, queueing it",
			"worker", w.ID, "cmd", wc.String(), "error", err)
	}

	m.queue.push(w.ID, wc)
	slog.InfoContext(ctx, "Command queued", "worker", w.ID, "cmd", wc.String())
	return nil
}

// markHeld records a stop or disable on the manager's copy of the record
func (m *Manager) markHeld(ctx context.Context, workerID, mirrorID string, held status.SyncStatus) error {
	rec, err := m.store.GetMirrorStatus(ctx, workerID, mirrorID)
	if errors.Is(err, store.ErrMirrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	rec.Status = held
	_, err = m.store.UpdateMirrorStatus(ctx, workerID, mirrorID, rec)
	if errors.Is(err, store.ErrStaleUpdate) {
		return nil
	}
	return err
}

func heldStatus(verb protocol.CmdVerb) status.SyncStatus {
	switch verb {
	case protocol.CmdStop:
		return status.StatusPaused
	case protocol.CmdDisable:
		return status.StatusDisabled
	default:
		return ""
	}
}

// WebStatus returns the public view of every mirror, ordered by name
func (m *Manager) WebStatus(ctx context.Context) ([]status.WebMirrorStatus, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.WebStatus")
	defer span.End()

	records, err := m.store.ListAllMirrorStatus(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	slices.SortFunc(records, func(a, b status.MirrorStatus) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Worker, b.Worker))
	})

	out := make([]status.WebMirrorStatus, 0, len(records))
	for _, rec := range records {
		out = append(out, status.NewWebMirrorStatus(rec))
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(out)))
	return out, nil
}

// FlushDisabled removes every disabled record
func (m *Manager) FlushDisabled(ctx context.Context) (int, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.FlushDisabled")
	defer span.End()

	n, err := m.store.FlushDisabledJobs(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return 0, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(n))
	slog.InfoContext(ctx, "Flushed disabled jobs", "count", n)
	return n, nil
}

func (m *Manager) recordWorkerCount(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	workers, err := m.store.ListWorkers(ctx)
	if err != nil {
		return
	}
	m.metrics.RecordWorkers(ctx, int64(len(workers)))
}
