package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestWithConfigPath(t *testing.T) {
	t.Parallel()

	_, err := LoadManagerConfig(WithConfigPath(""))
	require.ErrorContains(t, err, "path is required")

	_, err = LoadManagerConfig(WithConfigPath(filepath.Join(t.TempDir(), "missing.toml")))
	require.ErrorContains(t, err, "failed to evaluate symlinks")

	_, err = LoadManagerConfig(WithConfigPath(t.TempDir()))
	require.ErrorContains(t, err, "not a regular file")
}

func TestLoadManagerConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		check   func(t *testing.T, cfg *ManagerConfig)
		wantErr string
	}{
		{
			name:    "empty toml uses defaults",
			file:    "manager.toml",
			content: "",
			check: func(t *testing.T, cfg *ManagerConfig) {
				assert.Equal(t, "127.0.0.1:12345", cfg.ListenAddress())
				assert.Equal(t, DefaultDBType, cfg.Files.DBType)
				assert.Equal(t, DefaultManagerDBFile, cfg.Files.DBFile)
				assert.Equal(t, 10*time.Minute, cfg.GetWorkerStaleAfter())
				assert.False(t, cfg.TLSEnabled())
			},
		},
		{
			name: "toml values",
			file: "manager.toml",
			content: `
debug = true
worker_stale_after = 300

[server]
addr = "0.0.0.0"
port = 14242
ssl_cert = "/etc/hustsync/manager.crt"
ssl_key = "/etc/hustsync/manager.key"

[files]
db_type = "sqlite"
db_file = "/var/lib/hustsync/manager.db"
ca_cert = "/etc/hustsync/ca.crt"
`,
			check: func(t *testing.T, cfg *ManagerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0:14242", cfg.ListenAddress())
				assert.True(t, cfg.TLSEnabled())
				assert.Equal(t, "sqlite", cfg.Files.DBType)
				assert.Equal(t, "/etc/hustsync/ca.crt", cfg.Files.CACert)
				assert.Equal(t, 5*time.Minute, cfg.GetWorkerStaleAfter())
			},
		},
		{
			name: "yaml values",
			file: "manager.yaml",
			content: `
server:
  port: 8080
files:
  db_type: json
telemetry:
  enabled: true
  metrics:
    prometheus: true
`,
			check: func(t *testing.T, cfg *ManagerConfig) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "json", cfg.Files.DBType)
				assert.True(t, cfg.Telemetry.PrometheusEnabled())
			},
		},
		{
			name:    "unknown toml key",
			file:    "manager.toml",
			content: "[server]\nlisten = \"0.0.0.0\"\n",
			wantErr: "failed to parse TOML config",
		},
		{
			name:    "unknown yaml key",
			file:    "manager.yml",
			content: "server:\n  listen: 0.0.0.0\n",
			wantErr: "failed to parse YAML config",
		},
		{
			name:    "unsupported backend",
			file:    "manager.toml",
			content: "[files]\ndb_type = \"leveldb\"\n",
			wantErr: "files.db_type",
		},
		{
			name:    "cert without key",
			file:    "manager.toml",
			content: "[server]\nssl_cert = \"a.crt\"\n",
			wantErr: "must be set together",
		},
		{
			name:    "port out of range",
			file:    "manager.toml",
			content: "[server]\nport = 70000\n",
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadManagerConfig(WithConfigPath(writeConfig(t, tt.file, tt.content)))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestDefaultManagerConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadManagerConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultManagerConfig(), cfg)
}

func TestManagerConfig_ValidationWrapsSentinel(t *testing.T) {
	t.Parallel()

	cfg := DefaultManagerConfig()
	cfg.WorkerStaleAfter = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	var nilCfg *ManagerConfig
	require.ErrorIs(t, nilCfg.Validate(), ErrInvalidConfig)
}
