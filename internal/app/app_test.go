package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return l
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // test server URL
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestManagerAppLifecycle(t *testing.T) {
	t.Parallel()

	app, err := NewManagerApp(context.Background(), WithManagerConfig(testManagerConfig(t)))
	require.NoError(t, err)

	l := listen(t)
	base := "http://" + l.Addr().String()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ping") //nolint:gosec // test server URL
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	code, body := get(t, base+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "healthy")

	code, body = get(t, base+"/readiness")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "ready")

	code, body = get(t, base+"/workers")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", body)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}

	// a second Stop does not close the store twice
	assert.NoError(t, app.Stop(time.Second))
}

func TestManagerAppStartBadAddress(t *testing.T) {
	t.Parallel()

	l := listen(t)
	defer l.Close()

	app, err := NewManagerApp(context.Background(),
		WithManagerConfig(testManagerConfig(t)),
		WithAddress(l.Addr().String()))
	require.NoError(t, err)
	defer func() { _ = app.Stop(time.Second) }()

	err = app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestWorkerAppLifecycle(t *testing.T) {
	t.Parallel()

	app, err := NewWorkerApp(context.Background(),
		WithWorkerConfig(testWorkerConfig(t)),
		WithManagerClient(nil))
	require.NoError(t, err)

	l := listen(t)
	base := "http://" + l.Addr().String()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ping") //nolint:gosec // test server URL
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	code, body := get(t, base+"/jobs")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", body)

	code, _ = get(t, base+"/version")
	assert.Equal(t, http.StatusOK, code)

	second := listen(t)
	err = app.Serve(second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}

	assert.NoError(t, app.Stop(time.Second))
}

func TestWorkerAppStopWithoutStart(t *testing.T) {
	t.Parallel()

	app, err := NewWorkerApp(context.Background(),
		WithWorkerConfig(testWorkerConfig(t)),
		WithManagerClient(nil))
	require.NoError(t, err)

	assert.NoError(t, app.Stop(time.Second))
	assert.NoError(t, app.Stop(time.Second))
}

func TestWorkerAppParentContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	app, err := NewWorkerApp(ctx,
		WithWorkerConfig(testWorkerConfig(t)),
		WithManagerClient(nil))
	require.NoError(t, err)
	defer func() { _ = app.Stop(time.Second) }()

	l := listen(t)
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(l) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the parent context ended")
	}
}
