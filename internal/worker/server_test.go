package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/status"
)

type fakeController struct {
	got protocol.WorkerCmd
	err error
}

func (f *fakeController) Dispatch(_ context.Context, cmd protocol.WorkerCmd) error {
	f.got = cmd
	return f.err
}

func (f *fakeController) Jobs() []status.MirrorStatus {
	return []status.MirrorStatus{{Name: "elvish", Status: status.StatusSuccess}}
}

func TestControlRouter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "ping", method: http.MethodGet, path: "/ping", wantStatus: http.StatusOK, wantBody: "pong"},
		{name: "jobs", method: http.MethodGet, path: "/jobs", wantStatus: http.StatusOK, wantBody: `"name":"elvish"`},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "version", method: http.MethodGet, path: "/version", wantStatus: http.StatusOK, wantBody: `"go_version"`},
		{
			name: "command accepted", method: http.MethodPost, path: "/",
			body: `{"cmd":"stop","mirror_id":"elvish"}`, wantStatus: http.StatusOK, wantBody: "OK",
		},
		{
			name: "unknown verb", method: http.MethodPost, path: "/",
			body: `{"cmd":"explode"}`, wantStatus: http.StatusBadRequest, wantBody: "invalid command",
		},
		{
			name: "unknown mirror", method: http.MethodPost, path: "/",
			body: `{"cmd":"stop","mirror_id":"x"}`, err: fmt.Errorf("%w: x", ErrUnknownMirror),
			wantStatus: http.StatusNotFound,
		},
		{
			name: "not running", method: http.MethodPost, path: "/",
			body: `{"cmd":"stop","mirror_id":"x"}`, err: ErrNotRunning, wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "dispatch failure", method: http.MethodPost, path: "/",
			body: `{"cmd":"reload"}`, err: errors.New("bad config"),
			wantStatus: http.StatusInternalServerError, wantBody: "bad config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctl := &fakeController{err: tt.err}
			router := NewControlRouter(ctl)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if rec.Code != http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestControlRouter_DecodesCommand(t *testing.T) {
	t.Parallel()

	ctl := &fakeController{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"cmd":"cmd-start","mirror_id":"elvish","options":{"force":true}}`))
	rec := httptest.NewRecorder()
	NewControlRouter(ctl).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, protocol.CmdStart, ctl.got.Cmd)
	assert.True(t, ctl.got.Force())
}
