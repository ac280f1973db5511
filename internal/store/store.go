// Package store persists worker registrations and mirror status records on
// top of a kv.Adapter, using one bucket per record kind.
package store

import (
	"context"
	"errors"

	"github.com/hustsync/hustsync/internal/status"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

const (
	// WorkerBucket holds WorkerStatus records keyed by worker id
	WorkerBucket = "workers"

	// StatusBucket holds MirrorStatus records keyed by "<worker>/<mirror>"
	StatusBucket = "mirror_status"

	// InterruptedMessage is recorded on jobs found syncing at startup
	InterruptedMessage = "previous sync was interrupted"
)

var (
	// ErrWorkerNotFound is returned when a worker id is not registered
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrWorkerExists is returned when registering an id that is already present
	ErrWorkerExists = errors.New("worker already exists")

	// ErrMirrorNotFound is returned when no status exists for a mirror
	ErrMirrorNotFound = errors.New("mirror status not found")

	// ErrStaleUpdate is returned when a status report is older than the stored one
	ErrStaleUpdate = errors.New("status report is older than the stored record")
)

// Store is the domain view of the persistent state.
// Multi-record calls read or write inside a single kv transaction.
type Store interface {
	// ListWorkers returns every registered worker
	ListWorkers(ctx context.Context) ([]status.WorkerStatus, error)
	// GetWorker returns one worker or ErrWorkerNotFound
	GetWorker(ctx context.Context, workerID string) (status.WorkerStatus, error)
	// CreateWorker registers a new worker; it fails with ErrWorkerExists if the id is taken
	CreateWorker(ctx context.Context, w status.WorkerStatus) (status.WorkerStatus, error)
	// RefreshWorker bumps the worker's last-online time
	RefreshWorker(ctx context.Context, workerID string) (status.WorkerStatus, error)
	// DeleteWorker removes a worker registration
	DeleteWorker(ctx context.Context, workerID string) error

	// UpdateMirrorStatus upserts a status record and returns what was stored.
	// A record whose LastUpdate is older than the stored one is rejected with ErrStaleUpdate.
	UpdateMirrorStatus(ctx context.Context, workerID, mirrorID string, rec status.MirrorStatus) (status.MirrorStatus, error)
	// GetMirrorStatus returns one record or ErrMirrorNotFound
	GetMirrorStatus(ctx context.Context, workerID, mirrorID string) (status.MirrorStatus, error)
	// ListMirrorStatus returns every record of one worker
	ListMirrorStatus(ctx context.Context, workerID string) ([]status.MirrorStatus, error)
	// ListAllMirrorStatus returns every record of every worker
	ListAllMirrorStatus(ctx context.Context) ([]status.MirrorStatus, error)
	// DeleteMirrorStatus removes one record; an absent record is not an error
	DeleteMirrorStatus(ctx context.Context, workerID, mirrorID string) error
	// FlushDisabledJobs removes every record whose status is disabled
	FlushDisabledJobs(ctx context.Context) (int, error)
	// ReconcileInterrupted marks a worker's syncing and pre-syncing records as failed
	ReconcileInterrupted(ctx context.Context, workerID string) ([]status.MirrorStatus, error)

	// Close releases the underlying adapter
	Close() error
}
