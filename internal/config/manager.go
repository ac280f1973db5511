package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hustsync/hustsync/internal/kv"
	"github.com/hustsync/hustsync/internal/telemetry"
)

const (
	// DefaultManagerAddr is the default manager listen address
	DefaultManagerAddr = "127.0.0.1"

	// DefaultManagerPort is the default manager listen port
	DefaultManagerPort = 12345

	// DefaultDBType is the default storage backend
	DefaultDBType = "bolt"

	// DefaultManagerDBFile is the default manager store file
	DefaultManagerDBFile = "/tmp/hustsync/manager.db"

	// DefaultWorkerStaleAfter is how long a silent worker is reported as live
	DefaultWorkerStaleAfter = 10 * time.Minute
)

// ManagerConfig is the root of the manager configuration file
type ManagerConfig struct {
	Server ManagerServerConfig `toml:"server" yaml:"server"`
	Files  ManagerFileConfig   `toml:"files" yaml:"files"`
	Debug  bool                `toml:"debug" yaml:"debug"`

	// WorkerStaleAfter is the grace period, in seconds, after which a worker
	// without heartbeats is flagged stale. Its record is never deleted automatically.
	WorkerStaleAfter int `toml:"worker_stale_after" yaml:"worker_stale_after"`

	Telemetry *telemetry.Config `toml:"telemetry" yaml:"telemetry"`
}

// ManagerServerConfig holds the manager listener settings
type ManagerServerConfig struct {
	Addr    string `toml:"addr" yaml:"addr"`
	Port    int    `toml:"port" yaml:"port"`
	SSLCert string `toml:"ssl_cert" yaml:"ssl_cert"`
	SSLKey  string `toml:"ssl_key" yaml:"ssl_key"`
}

// ManagerFileConfig holds the manager storage and trust settings
type ManagerFileConfig struct {
	DBType string `toml:"db_type" yaml:"db_type"`
	DBFile string `toml:"db_file" yaml:"db_file"`

	// CACert, when set, turns on client certificate verification
	CACert string `toml:"ca_cert" yaml:"ca_cert"`
}

// DefaultManagerConfig returns the configuration used when no file is given
func DefaultManagerConfig() *ManagerConfig {
	cfg := &ManagerConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadManagerConfig loads, defaults and validates a manager configuration.
// Without WithConfigPath it returns the defaults.
func LoadManagerConfig(opts ...Option) (*ManagerConfig, error) {
	loaderCfg, err := newLoaderConfig(opts)
	if err != nil {
		return nil, err
	}

	var cfg ManagerConfig
	if err := decodeFile(loaderCfg.path, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ManagerConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultManagerAddr
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultManagerPort
	}
	if c.Files.DBType == "" {
		c.Files.DBType = DefaultDBType
	}
	if c.Files.DBFile == "" {
		c.Files.DBFile = DefaultManagerDBFile
	}
}

// Validate checks the manager configuration
func (c *ManagerConfig) Validate() error {
	if c == nil {
		return invalidf("config cannot be nil")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalidf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if (c.Server.SSLCert == "") != (c.Server.SSLKey == "") {
		return invalidf("server.ssl_cert and server.ssl_key must be set together")
	}
	if _, err := kv.ParseDBType(c.Files.DBType); err != nil {
		return fmt.Errorf("%w: files.db_type: %w", ErrInvalidConfig, err)
	}
	if c.WorkerStaleAfter < 0 {
		return invalidf("worker_stale_after must not be negative")
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ListenAddress returns host:port for the manager listener
func (c *ManagerConfig) ListenAddress() string {
	return net.JoinHostPort(c.Server.Addr, strconv.Itoa(c.Server.Port))
}

// TLSEnabled reports whether the manager serves HTTPS
func (c *ManagerConfig) TLSEnabled() bool {
	return c.Server.SSLCert != "" && c.Server.SSLKey != ""
}

// GetWorkerStaleAfter returns the stale grace period, using the default if unset
func (c *ManagerConfig) GetWorkerStaleAfter() time.Duration {
	if c.WorkerStaleAfter == 0 {
		return DefaultWorkerStaleAfter
	}
	return time.Duration(c.WorkerStaleAfter) * time.Second
}
