package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hustsync/hustsync/internal/kv"
	kvmocks "github.com/hustsync/hustsync/internal/kv/mocks"
	"github.com/hustsync/hustsync/internal/status"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, dbType string) Store {
	t.Helper()
	s, err := Open(dbType, filepath.Join(t.TempDir(), "hustsync.db"), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_UnsupportedBackend(t *testing.T) {
	t.Parallel()

	_, err := Open("leveldb", filepath.Join(t.TempDir(), "x.db"))
	require.ErrorIs(t, err, kv.ErrUnsupportedDBType)
}

func TestStore_WorkerLifecycle(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"bolt", "sqlite", "json"} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := newTestStore(t, backend)

			created, err := s.CreateWorker(ctx, status.WorkerStatus{ID: "w1", URL: "http://w1:6000/", Token: "t"})
			require.NoError(t, err)
			assert.Equal(t, testNow, created.LastRegister)
			assert.Equal(t, testNow, created.LastOnline)

			_, err = s.CreateWorker(ctx, status.WorkerStatus{ID: "w1"})
			require.ErrorIs(t, err, ErrWorkerExists)

			got, err := s.GetWorker(ctx, "w1")
			require.NoError(t, err)
			assert.Equal(t, "http://w1:6000/", got.URL)
			assert.True(t, got.LastOnline.Equal(testNow))

			_, err = s.CreateWorker(ctx, status.WorkerStatus{ID: "w0"})
			require.NoError(t, err)
			workers, err := s.ListWorkers(ctx)
			require.NoError(t, err)
			require.Len(t, workers, 2)
			assert.Equal(t, "w0", workers[0].ID)

			require.NoError(t, s.DeleteWorker(ctx, "w1"))
			_, err = s.GetWorker(ctx, "w1")
			require.ErrorIs(t, err, ErrWorkerNotFound)
			require.ErrorIs(t, s.DeleteWorker(ctx, "w1"), ErrWorkerNotFound)
		})
	}
}

func TestStore_RefreshWorker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := testNow
	s, err := Open("bolt", filepath.Join(t.TempDir(), "hustsync.db"), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.RefreshWorker(ctx, "ghost")
	require.ErrorIs(t, err, ErrWorkerNotFound)

	_, err = s.CreateWorker(ctx, status.WorkerStatus{ID: "w1"})
	require.NoError(t, err)

	clock = testNow.Add(time.Minute)
	refreshed, err := s.RefreshWorker(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, refreshed.LastOnline.Equal(clock))
	assert.True(t, refreshed.LastRegister.Equal(testNow))
}

func TestStore_MirrorStatusRoundTrip(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"bolt", "sqlite", "json"} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := newTestStore(t, backend)

			in := status.MirrorStatus{
				Upstream:      "rsync://rsync.elv.sh/elvish/",
				Size:          "1.33T",
				LastUpdate:    testNow,
				LastStarted:   testNow.Add(-time.Hour),
				LastEnded:     testNow,
				NextScheduled: testNow.Add(2 * time.Minute),
				Status:        status.StatusSuccess,
				IsMaster:      true,
			}
			stored, err := s.UpdateMirrorStatus(ctx, "w1", "elvish", in)
			require.NoError(t, err)
			assert.Equal(t, "w1", stored.Worker)
			assert.Equal(t, "elvish", stored.Name)

			got, err := s.GetMirrorStatus(ctx, "w1", "elvish")
			require.NoError(t, err)
			assert.Equal(t, stored.Name, got.Name)
			assert.Equal(t, stored.Size, got.Size)
			assert.Equal(t, stored.Status, got.Status)
			assert.Equal(t, stored.IsMaster, got.IsMaster)
			assert.True(t, stored.NextScheduled.Equal(got.NextScheduled))
			assert.True(t, stored.LastStarted.Equal(got.LastStarted))

			_, err = s.GetMirrorStatus(ctx, "w1", "missing")
			require.ErrorIs(t, err, ErrMirrorNotFound)
		})
	}
}

func TestStore_StaleReportIsRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, "bolt")

	newer := status.MirrorStatus{LastUpdate: testNow, Status: status.StatusSuccess, Size: "2G"}
	_, err := s.UpdateMirrorStatus(ctx, "w1", "elvish", newer)
	require.NoError(t, err)

	older := status.MirrorStatus{LastUpdate: testNow.Add(-time.Second), Status: status.StatusSyncing}
	_, err = s.UpdateMirrorStatus(ctx, "w1", "elvish", older)
	require.ErrorIs(t, err, ErrStaleUpdate)

	got, err := s.GetMirrorStatus(ctx, "w1", "elvish")
	require.NoError(t, err)
	assert.Equal(t, status.StatusSuccess, got.Status)
	assert.Equal(t, "2G", got.Size)

	// replaying the same report is accepted
	_, err = s.UpdateMirrorStatus(ctx, "w1", "elvish", newer)
	require.NoError(t, err)
}

func TestStore_ListMirrorStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, "sqlite")

	for _, rec := range []struct{ worker, mirror string }{
		{"w1", "elvish"}, {"w1", "debian"}, {"w2", "elvish"}, {"w10", "arch"},
	} {
		_, err := s.UpdateMirrorStatus(ctx, rec.worker, rec.mirror, status.MirrorStatus{LastUpdate: testNow})
		require.NoError(t, err)
	}

	w1, err := s.ListMirrorStatus(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, w1, 2)
	assert.Equal(t, "debian", w1[0].Name)
	assert.Equal(t, "elvish", w1[1].Name)

	all, err := s.ListAllMirrorStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStore_FlushDisabledJobs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, "bolt")

	for name, st := range map[string]status.SyncStatus{
		"a": status.StatusDisabled,
		"b": status.StatusSuccess,
		"c": status.StatusDisabled,
		"d": status.StatusPaused,
	} {
		_, err := s.UpdateMirrorStatus(ctx, "w1", name, status.MirrorStatus{LastUpdate: testNow, Status: st})
		require.NoError(t, err)
	}

	n, err := s.FlushDisabledJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.ListMirrorStatus(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].Name)
	assert.Equal(t, "d", left[1].Name)
}

func TestStore_ReconcileInterrupted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, "json")

	started := testNow.Add(-time.Hour)
	_, err := s.UpdateMirrorStatus(ctx, "w1", "elvish", status.MirrorStatus{
		LastUpdate:  started,
		LastStarted: started,
		LastEnded:   started.Add(-time.Hour),
		Status:      status.StatusSyncing,
	})
	require.NoError(t, err)
	_, err = s.UpdateMirrorStatus(ctx, "w1", "debian", status.MirrorStatus{LastUpdate: started, Status: status.StatusSuccess})
	require.NoError(t, err)
	_, err = s.UpdateMirrorStatus(ctx, "w2", "arch", status.MirrorStatus{LastUpdate: started, Status: status.StatusSyncing})
	require.NoError(t, err)

	fixed, err := s.ReconcileInterrupted(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, "elvish", fixed[0].Name)

	got, err := s.GetMirrorStatus(ctx, "w1", "elvish")
	require.NoError(t, err)
	assert.Equal(t, status.StatusFailed, got.Status)
	assert.Equal(t, InterruptedMessage, got.ErrorMsg)
	assert.False(t, got.LastEnded.Before(got.LastStarted))

	other, err := s.GetMirrorStatus(ctx, "w2", "arch")
	require.NoError(t, err)
	assert.Equal(t, status.StatusSyncing, other.Status, "other workers are left alone")
}

func TestStore_ConcurrentUpdatesKeepNewest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, "bolt")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.UpdateMirrorStatus(ctx, "w1", "elvish", status.MirrorStatus{
				LastUpdate: testNow.Add(time.Duration(i) * time.Second),
				Size:       time.Duration(i).String(),
			})
		}(i)
	}
	wg.Wait()

	got, err := s.GetMirrorStatus(ctx, "w1", "elvish")
	require.NoError(t, err)
	assert.True(t, got.LastUpdate.Equal(testNow.Add(19*time.Second)))
}

func TestNew_BucketInitFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	db := kvmocks.NewMockAdapter(ctrl)
	db.EXPECT().InitBucket(WorkerBucket).Return(nil)
	db.EXPECT().InitBucket(StatusBucket).Return(errors.New("disk full"))

	_, err := New(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror_status")
}

func TestStore_FailedWriteSurfaces(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	db := kvmocks.NewMockAdapter(ctrl)
	db.EXPECT().InitBucket(gomock.Any()).Return(nil).Times(2)
	db.EXPECT().Update(gomock.Any()).Return(errors.New("io error"))

	s, err := New(db)
	require.NoError(t, err)

	_, err = s.UpdateMirrorStatus(context.Background(), "w1", "elvish", status.MirrorStatus{})
	require.ErrorContains(t, err, "io error")
}
