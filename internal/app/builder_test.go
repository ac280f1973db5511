package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/hustsync/hustsync/internal/config"
	"github.com/hustsync/hustsync/internal/store"
)

func testManagerConfig(t *testing.T) *config.ManagerConfig {
	t.Helper()
	cfg := config.DefaultManagerConfig()
	cfg.Files.DBFile = filepath.Join(t.TempDir(), "manager.db")
	return cfg
}

func testWorkerConfig(t *testing.T) *config.WorkerConfig {
	t.Helper()
	cfg := config.DefaultWorkerConfig()
	cfg.Global.Name = "w-test"
	cfg.Global.MirrorDir = t.TempDir()
	cfg.Global.LogDir = os.DevNull
	cfg.Global.DBFile = filepath.Join(t.TempDir(), "worker.db")
	cfg.Mirrors = nil
	return cfg
}

func writeCACert(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "hustsync test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return path
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":14242"},
		{name: "ipv4 and port", addr: "127.0.0.1:14242"},
		{name: "localhost", addr: "localhost:6000"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing port", addr: "127.0.0.1", wantErr: true},
		{name: "empty port", addr: "127.0.0.1:", wantErr: true},
		{name: "port out of range", addr: ":70000", wantErr: true},
		{name: "hostname", addr: "mirrors.example.org:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewManagerApp(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()
		_, err := NewManagerApp(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})

	t.Run("rejects invalid address", func(t *testing.T) {
		t.Parallel()
		_, err := NewManagerApp(context.Background(),
			WithManagerConfig(testManagerConfig(t)),
			WithAddress("not-an-address"))
		assert.Error(t, err)
	})

	t.Run("uses configured address", func(t *testing.T) {
		t.Parallel()
		cfg := testManagerConfig(t)
		app, err := NewManagerApp(context.Background(), WithManagerConfig(cfg))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		assert.Equal(t, cfg.ListenAddress(), app.GetHTTPServer().Addr)
		assert.Same(t, cfg, app.GetConfig())
		assert.NotNil(t, app.GetManager())
		assert.Nil(t, app.GetHTTPServer().TLSConfig)
	})

	t.Run("address override", func(t *testing.T) {
		t.Parallel()
		app, err := NewManagerApp(context.Background(),
			WithManagerConfig(testManagerConfig(t)),
			WithAddress("127.0.0.1:18080"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })
		assert.Equal(t, "127.0.0.1:18080", app.GetHTTPServer().Addr)
	})

	t.Run("unknown db type", func(t *testing.T) {
		t.Parallel()
		cfg := testManagerConfig(t)
		cfg.Files.DBType = "leveldb"
		_, err := NewManagerApp(context.Background(), WithManagerConfig(cfg))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open store")
	})

	t.Run("client verification with CA", func(t *testing.T) {
		t.Parallel()
		cfg := testManagerConfig(t)
		cfg.Files.CACert = writeCACert(t)
		app, err := NewManagerApp(context.Background(), WithManagerConfig(cfg))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		tlsConfig := app.GetHTTPServer().TLSConfig
		require.NotNil(t, tlsConfig)
		assert.Equal(t, tls.RequireAndVerifyClientCert, tlsConfig.ClientAuth)
		assert.NotNil(t, tlsConfig.ClientCAs)
	})

	t.Run("missing CA closes store", func(t *testing.T) {
		t.Parallel()
		cfg := testManagerConfig(t)
		cfg.Files.CACert = filepath.Join(t.TempDir(), "missing.pem")
		_, err := NewManagerApp(context.Background(), WithManagerConfig(cfg))
		require.Error(t, err)

		// the bolt file lock is released, so the store opens again
		st, err := store.Open(cfg.Files.DBType, cfg.Files.DBFile)
		require.NoError(t, err)
		_ = st.Close()
	})

	t.Run("metrics handler and meter provider", func(t *testing.T) {
		t.Parallel()
		metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("hustsync_workers 1\n"))
		})
		app, err := NewManagerApp(context.Background(),
			WithManagerConfig(testManagerConfig(t)),
			WithMeterProvider(noop.NewMeterProvider()),
			WithMetricsHandler(metrics))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		rec := httptest.NewRecorder()
		app.GetHTTPServer().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "hustsync_workers")
	})

	t.Run("custom middlewares replace defaults", func(t *testing.T) {
		t.Parallel()
		called := false
		mw := func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				next.ServeHTTP(w, r)
			})
		}
		app, err := NewManagerApp(context.Background(),
			WithManagerConfig(testManagerConfig(t)),
			WithMiddlewares(mw))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		rec := httptest.NewRecorder()
		app.GetHTTPServer().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, called)
	})
}

func TestClientAuthTLSConfig(t *testing.T) {
	t.Parallel()

	t.Run("no certificates in file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))
		_, err := clientAuthTLSConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no certificates found")
	})

	t.Run("valid CA", func(t *testing.T) {
		t.Parallel()
		tlsConfig, err := clientAuthTLSConfig(writeCACert(t))
		require.NoError(t, err)
		assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
	})
}

func TestNewWorkerApp(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()
		_, err := NewWorkerApp(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})

	t.Run("option errors", func(t *testing.T) {
		t.Parallel()
		_, err := NewWorkerApp(context.Background(), WithWorkerConfigPath(""))
		assert.Error(t, err)
		_, err = NewWorkerApp(context.Background(), WithProviderFactory(nil))
		assert.Error(t, err)
		_, err = NewWorkerApp(context.Background(), WithWorkerAddress("nope"))
		assert.Error(t, err)
	})

	t.Run("standalone worker", func(t *testing.T) {
		t.Parallel()
		cfg := testWorkerConfig(t)
		app, err := NewWorkerApp(context.Background(),
			WithWorkerConfig(cfg),
			WithManagerClient(nil),
			WithWorkerMeterProvider(noop.NewMeterProvider()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		assert.Equal(t, cfg.ControlAddress(), app.GetHTTPServer().Addr)
		assert.Equal(t, "w-test", app.GetWorker().ID())
		assert.Empty(t, app.certFile)
	})

	t.Run("invalid config closes store", func(t *testing.T) {
		t.Parallel()
		cfg := testWorkerConfig(t)
		cfg.Global.Concurrent = 0
		_, err := NewWorkerApp(context.Background(), WithWorkerConfig(cfg), WithManagerClient(nil))
		require.Error(t, err)

		st, err := store.Open(cfg.Global.DBType, cfg.Global.DBFile)
		require.NoError(t, err)
		_ = st.Close()
	})

	t.Run("config file and reload", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "worker.toml")
		write := func(mirrors string) {
			content := `[global]
name = "w-file"
log_dir = "/dev/null"
mirror_dir = "` + dir + `"
db_file = "` + filepath.Join(dir, "worker.db") + `"

[server]
listen_port = 16010
` + mirrors
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		}
		write("")

		app, err := NewWorkerApp(context.Background(),
			WithWorkerConfigPath(path),
			WithManagerClient(nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		assert.Equal(t, "w-file", app.GetConfig().Global.Name)
		assert.Empty(t, app.GetWorker().Jobs())

		write(`
[[mirrors]]
name = "alpine"
upstream = "rsync://rsync.alpinelinux.org/alpine/"
`)
		require.NoError(t, app.Reload(context.Background()))
		jobs := app.GetWorker().Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, "alpine", jobs[0].Name)
	})

	t.Run("reload without config file", func(t *testing.T) {
		t.Parallel()
		app, err := NewWorkerApp(context.Background(),
			WithWorkerConfig(testWorkerConfig(t)),
			WithManagerClient(nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(time.Second) })

		assert.Error(t, app.Reload(context.Background()))
	})
}
