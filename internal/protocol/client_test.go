package protocol

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustsync/hustsync/internal/httpclient"
	"github.com/hustsync/hustsync/internal/status"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	hc, err := httpclient.New()
	require.NoError(t, err)
	return NewClient(srv.URL+"/", hc, WithInitialInterval(time.Millisecond), WithMaxTries(3))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Register(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workers", r.URL.Path)
		var in status.WorkerStatus
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.Token = "generated"
		writeJSON(w, http.StatusOK, in)
	}))

	got, err := c.Register(context.Background(), status.WorkerStatus{ID: "w1", URL: "http://w1:6000/"})
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)
	assert.Equal(t, "generated", got.Token)
}

func TestClient_RegisterConflict(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusConflict, map[string]string{"error": "worker already exists"})
	}))

	_, err := c.Register(context.Background(), status.WorkerStatus{ID: "w1"})
	require.ErrorIs(t, err, ErrWorkerExists)
	assert.Equal(t, int32(1), calls.Load(), "conflicts are not retried")
}

func TestClient_UpdateStatusRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workers/w1/jobs/elvish", r.URL.Path)
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db locked"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	}))

	err := c.UpdateStatus(context.Background(), "w1", status.MirrorStatus{Name: "elvish", Status: status.StatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_UpdateStatusGivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := c.UpdateStatus(context.Background(), "w1", status.MirrorStatus{Name: "elvish"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httpclient.StatusCode(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_UpdateStatusStale(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusConflict, map[string]string{"error": "stale"})
	}))

	err := c.UpdateStatus(context.Background(), "w1", status.MirrorStatus{Name: "elvish"})
	require.ErrorIs(t, err, ErrStaleUpdate)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_HeartbeatUnknownWorker(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "worker not found"})
	}))

	_, err := c.Heartbeat(context.Background(), "w1")
	require.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestClient_SchedulesAndCommands(t *testing.T) {
	t.Parallel()

	next := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var reported MirrorSchedules
	mux := http.NewServeMux()
	mux.HandleFunc("GET /workers/w1/schedules", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, MirrorSchedules{Schedules: []MirrorSchedule{{Name: "elvish", NextSchedule: next}}})
	})
	mux.HandleFunc("POST /workers/w1/schedules", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reported))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /workers/w1/commands", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []WorkerCmd{{Cmd: CmdStop, MirrorID: "elvish"}})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	got, err := c.GetSchedules(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got.Schedules, 1)
	assert.True(t, got.Schedules[0].NextSchedule.Equal(next))

	require.NoError(t, c.ReportSchedules(ctx, "w1", got))
	require.Len(t, reported.Schedules, 1)
	assert.Equal(t, "elvish", reported.Schedules[0].Name)

	cmds, err := c.PollCommands(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []WorkerCmd{{Cmd: CmdStop, MirrorID: "elvish"}}, cmds)
}

func TestClient_DeleteStatusIgnoresMissing(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))

	require.NoError(t, c.DeleteStatus(context.Background(), "w1", "elvish"))
}

func TestPostWorkerCmd(t *testing.T) {
	t.Parallel()

	var got WorkerCmd
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"msg": "OK"})
	}))
	defer srv.Close()

	hc, err := httpclient.New()
	require.NoError(t, err)
	require.NoError(t, PostWorkerCmd(context.Background(), hc, srv.URL, WorkerCmd{Cmd: CmdRestart, MirrorID: "elvish"}))
	assert.Equal(t, CmdRestart, got.Cmd)
}
