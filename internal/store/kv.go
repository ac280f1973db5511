package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hustsync/hustsync/internal/kv"
	"github.com/hustsync/hustsync/internal/status"
)

// Option configures a kv-backed store
type Option func(*kvStore)

// WithClock overrides the time source used for registration and heartbeat times
func WithClock(now func() time.Time) Option {
	return func(s *kvStore) {
		s.now = now
	}
}

type kvStore struct {
	db  kv.Adapter
	now func() time.Time
}

// New wraps an adapter and makes sure both buckets exist.
// The two InitBucket calls are independent; each is idempotent on its own.
func New(db kv.Adapter, opts ...Option) (Store, error) {
	s := &kvStore{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, bucket := range []string{WorkerBucket, StatusBucket} {
		if err := db.InitBucket(bucket); err != nil {
			return nil, fmt.Errorf("failed to initialize bucket %s: %w", bucket, err)
		}
	}
	return s, nil
}

// Open opens the store file with the named backend and initializes it
func Open(dbType, dbFile string, opts ...Option) (Store, error) {
	db, err := kv.Open(dbType, dbFile)
	if err != nil {
		return nil, err
	}
	s, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func statusKey(workerID, mirrorID string) string {
	return workerID + "/" + mirrorID
}

func (s *kvStore) ListWorkers(_ context.Context) ([]status.WorkerStatus, error) {
	all, err := s.db.GetAll(WorkerBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	workers := make([]status.WorkerStatus, 0, len(all))
	for key, raw := range all {
		var w status.WorkerStatus
		if err := json.Unmarshal(raw, &w); err != nil {
			slog.Warn("Skipping undecodable worker record", "key", key, "error", err)
			continue
		}
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}

func (s *kvStore) GetWorker(_ context.Context, workerID string) (status.WorkerStatus, error) {
	raw, err := s.db.Get(WorkerBucket, workerID)
	if err != nil {
		return status.WorkerStatus{}, fmt.Errorf("failed to get worker %s: %w", workerID, err)
	}
	return decodeWorker(workerID, raw)
}

func (s *kvStore) CreateWorker(_ context.Context, w status.WorkerStatus) (status.WorkerStatus, error) {
	if w.ID == "" {
		return status.WorkerStatus{}, fmt.Errorf("worker id is required")
	}

	now := s.now()
	if w.LastRegister.IsZero() {
		w.LastRegister = now
	}
	if w.LastOnline.IsZero() {
		w.LastOnline = now
	}

	err := s.db.Update(func(tx kv.Tx) error {
		existing, err := tx.Get(WorkerBucket, w.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrWorkerExists, w.ID)
		}
		return putJSON(tx, WorkerBucket, w.ID, w)
	})
	if err != nil {
		return status.WorkerStatus{}, err
	}
	return w, nil
}

func (s *kvStore) RefreshWorker(_ context.Context, workerID string) (status.WorkerStatus, error) {
	var w status.WorkerStatus
	err := s.db.Update(func(tx kv.Tx) error {
		raw, err := tx.Get(WorkerBucket, workerID)
		if err != nil {
			return err
		}
		w, err = decodeWorker(workerID, raw)
		if err != nil {
			return err
		}
		w.LastOnline = s.now()
		return putJSON(tx, WorkerBucket, workerID, w)
	})
	if err != nil {
		return status.WorkerStatus{}, err
	}
	return w, nil
}

func (s *kvStore) DeleteWorker(_ context.Context, workerID string) error {
	return s.db.Update(func(tx kv.Tx) error {
		raw, err := tx.Get(WorkerBucket, workerID)
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrWorkerNotFound, workerID)
		}
		return tx.Delete(WorkerBucket, workerID)
	})
}

func (s *kvStore) UpdateMirrorStatus(
	_ context.Context,
	workerID, mirrorID string,
	m status.MirrorStatus,
) (status.MirrorStatus, error) {
	m.Worker = workerID
	m.Name = mirrorID
	key := statusKey(workerID, mirrorID)

	err := s.db.Update(func(tx kv.Tx) error {
		raw, err := tx.Get(StatusBucket, key)
		if err != nil {
			return err
		}
		if raw != nil {
			var stored status.MirrorStatus
			if err := json.Unmarshal(raw, &stored); err == nil && m.LastUpdate.Before(stored.LastUpdate) {
				return fmt.Errorf("%w: %s (stored %s, got %s)", ErrStaleUpdate, key,
					stored.LastUpdate.Format(time.RFC3339Nano), m.LastUpdate.Format(time.RFC3339Nano))
			}
		}
		return putJSON(tx, StatusBucket, key, m)
	})
	if err != nil {
		return status.MirrorStatus{}, err
	}
	return m, nil
}

func (s *kvStore) GetMirrorStatus(_ context.Context, workerID, mirrorID string) (status.MirrorStatus, error) {
	key := statusKey(workerID, mirrorID)
	raw, err := s.db.Get(StatusBucket, key)
	if err != nil {
		return status.MirrorStatus{}, fmt.Errorf("failed to get mirror status %s: %w", key, err)
	}
	if raw == nil {
		return status.MirrorStatus{}, fmt.Errorf("%w: %s", ErrMirrorNotFound, key)
	}
	var m status.MirrorStatus
	if err := json.Unmarshal(raw, &m); err != nil {
		return status.MirrorStatus{}, fmt.Errorf("failed to decode mirror status %s: %w", key, err)
	}
	return m, nil
}

func (s *kvStore) ListMirrorStatus(_ context.Context, workerID string) ([]status.MirrorStatus, error) {
	all, err := s.db.GetAll(StatusBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror status: %w", err)
	}
	return decodeStatuses(all, workerID), nil
}

func (s *kvStore) ListAllMirrorStatus(_ context.Context) ([]status.MirrorStatus, error) {
	all, err := s.db.GetAll(StatusBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror status: %w", err)
	}
	return decodeStatuses(all, ""), nil
}

func (s *kvStore) DeleteMirrorStatus(_ context.Context, workerID, mirrorID string) error {
	return s.db.Delete(StatusBucket, statusKey(workerID, mirrorID))
}

func (s *kvStore) FlushDisabledJobs(_ context.Context) (int, error) {
	flushed := 0
	err := s.db.Update(func(tx kv.Tx) error {
		flushed = 0
		all, err := tx.GetAll(StatusBucket)
		if err != nil {
			return err
		}
		for key, raw := range all {
			var m status.MirrorStatus
			if err := json.Unmarshal(raw, &m); err != nil {
				continue
			}
			if m.Status != status.StatusDisabled {
				continue
			}
			if err := tx.Delete(StatusBucket, key); err != nil {
				return err
			}
			flushed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to flush disabled jobs: %w", err)
	}
	return flushed, nil
}

func (s *kvStore) ReconcileInterrupted(_ context.Context, workerID string) ([]status.MirrorStatus, error) {
	var fixed []status.MirrorStatus
	err := s.db.Update(func(tx kv.Tx) error {
		fixed = nil
		all, err := tx.GetAll(StatusBucket)
		if err != nil {
			return err
		}
		now := s.now()
		for _, m := range decodeStatuses(all, workerID) {
			if m.Status != status.StatusSyncing && m.Status != status.StatusPreSyncing {
				continue
			}
			m.Status = status.StatusFailed
			m.ErrorMsg = InterruptedMessage
			m.LastUpdate = now
			if m.LastEnded.Before(m.LastStarted) {
				m.LastEnded = now
			}
			if err := putJSON(tx, StatusBucket, statusKey(m.Worker, m.Name), m); err != nil {
				return err
			}
			fixed = append(fixed, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile interrupted jobs: %w", err)
	}
	return fixed, nil
}

func (s *kvStore) Close() error {
	return s.db.Close()
}

func putJSON(tx kv.Tx, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", bucket, key, err)
	}
	return tx.Put(bucket, key, data)
}

func decodeWorker(workerID string, raw []byte) (status.WorkerStatus, error) {
	if raw == nil {
		return status.WorkerStatus{}, fmt.Errorf("%w: %s", ErrWorkerNotFound, workerID)
	}
	var w status.WorkerStatus
	if err := json.Unmarshal(raw, &w); err != nil {
		return status.WorkerStatus{}, fmt.Errorf("failed to decode worker %s: %w", workerID, err)
	}
	return w, nil
}

// decodeStatuses decodes the records of workerID (all workers when empty),
// sorted by worker then name
func decodeStatuses(all map[string][]byte, workerID string) []status.MirrorStatus {
	out := make([]status.MirrorStatus, 0, len(all))
	for key, raw := range all {
		if workerID != "" && !strings.HasPrefix(key, workerID+"/") {
			continue
		}
		var m status.MirrorStatus
		if err := json.Unmarshal(raw, &m); err != nil {
			slog.Warn("Skipping undecodable mirror status", "key", key, "error", err)
			continue
		}
		if workerID != "" && m.Worker != workerID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Worker != out[j].Worker {
			return out[i].Worker < out[j].Worker
		}
		return out[i].Name < out[j].Name
	})
	return out
}
