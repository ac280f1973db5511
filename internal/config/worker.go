package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hustsync/hustsync/internal/kv"
	"github.com/hustsync/hustsync/internal/telemetry"
)

const (
	// DefaultWorkerName is used when global.name is unset
	DefaultWorkerName = "test_worker"

	// DefaultLogDir is the log directory template; {{.Name}} is the mirror name
	DefaultLogDir = "/tmp/hustsync/log/hustsync/{{.Name}}"

	// DefaultMirrorDir is the parent directory of every mirror
	DefaultMirrorDir = "/tmp/hustsync"

	// DefaultConcurrent is the number of jobs allowed to sync at once
	DefaultConcurrent = 10

	// DefaultInterval is the delay between a terminal outcome and the next run, in seconds
	DefaultInterval = 120

	// DefaultWorkerDBFile is the worker's local status store
	DefaultWorkerDBFile = "/tmp/hustsync/worker.db"

	// DefaultAPIBase is the manager URL a worker talks to
	DefaultAPIBase = "http://localhost:12345"

	// DefaultHeartbeat is the heartbeat period in seconds
	DefaultHeartbeat = 60

	// DefaultCgroupBasePath is the cgroup mount point
	DefaultCgroupBasePath = "/sys/fs/cgroup"

	// DefaultCgroupGroup is the cgroup the worker's children join
	DefaultCgroupGroup = "hustsync"

	// DefaultWorkerHostname is advertised to the manager
	DefaultWorkerHostname = "localhost"

	// DefaultWorkerListenAddr is the control server listen address
	DefaultWorkerListenAddr = "127.0.0.1"

	// DefaultWorkerListenPort is the control server listen port
	DefaultWorkerListenPort = 6000
)

// Provider names accepted in mirrors[].provider
const (
	ProviderRsync         = "rsync"
	ProviderTwoStageRsync = "two-stage-rsync"
	ProviderCommand       = "command"
)

// Mirror roles
const (
	RoleMaster = "master"
	RoleSlave  = "slave"
)

// RetryStrategy is shared by the global and mirror sections.
// Unset fields inherit from the enclosing scope.
type RetryStrategy struct {
	// Retry is the number of attempts in addition to the first one
	Retry *int `toml:"retry" yaml:"retry"`

	// Timeout bounds one attempt, in seconds
	Timeout *int `toml:"timeout" yaml:"timeout"`

	// Interval is the delay after a terminal outcome, in seconds
	Interval *int `toml:"interval" yaml:"interval"`
}

// ExecOnStatus lists shell hooks run after the final outcome of a run
type ExecOnStatus struct {
	ExecOnSuccess []string `toml:"exec_on_success" yaml:"exec_on_success"`
	ExecOnFailure []string `toml:"exec_on_failure" yaml:"exec_on_failure"`
}

// ExecOnStatusExtra lists mirror hooks appended to the inherited ones
type ExecOnStatusExtra struct {
	ExecOnSuccessExtra []string `toml:"exec_on_success_extra" yaml:"exec_on_success_extra"`
	ExecOnFailureExtra []string `toml:"exec_on_failure_extra" yaml:"exec_on_failure_extra"`
}

// WorkerConfig is the root of the worker configuration file
type WorkerConfig struct {
	Global    WorkerGlobalConfig  `toml:"global" yaml:"global"`
	Manager   WorkerManagerConfig `toml:"manager" yaml:"manager"`
	Cgroup    CgroupConfig        `toml:"cgroup" yaml:"cgroup"`
	Server    WorkerServerConfig  `toml:"server" yaml:"server"`
	Mirrors   []MirrorConfig      `toml:"mirrors" yaml:"mirrors"`
	Telemetry *telemetry.Config   `toml:"telemetry" yaml:"telemetry"`
}

// WorkerGlobalConfig holds worker-wide settings and the mirror defaults
type WorkerGlobalConfig struct {
	RetryStrategy `yaml:",inline"`
	ExecOnStatus  `yaml:",inline"`

	Name         string   `toml:"name" yaml:"name"`
	LogDir       string   `toml:"log_dir" yaml:"log_dir"`
	MirrorDir    string   `toml:"mirror_dir" yaml:"mirror_dir"`
	Concurrent   int      `toml:"concurrent" yaml:"concurrent"`
	RsyncOptions []string `toml:"rsync_options" yaml:"rsync_options"`

	// DangerousGlobalSuccessExitCodes are exit codes counted as success for every mirror
	DangerousGlobalSuccessExitCodes []int `toml:"dangerous_global_success_exit_codes" yaml:"dangerous_global_success_exit_codes"`

	DBType string `toml:"db_type" yaml:"db_type"`
	DBFile string `toml:"db_file" yaml:"db_file"`
}

// WorkerManagerConfig points a worker at its manager
type WorkerManagerConfig struct {
	APIBase string `toml:"api_base" yaml:"api_base"`
	Token   string `toml:"token" yaml:"token"`
	CACert  string `toml:"ca_cert" yaml:"ca_cert"`

	// Heartbeat is the heartbeat period in seconds
	Heartbeat int `toml:"heartbeat" yaml:"heartbeat"`
}

// CgroupConfig controls resource limiting of provider processes
type CgroupConfig struct {
	Enable   bool   `toml:"enable" yaml:"enable"`
	BasePath string `toml:"base_path" yaml:"base_path"`
	Group    string `toml:"group" yaml:"group"`
}

// WorkerServerConfig holds the worker control server settings
type WorkerServerConfig struct {
	Hostname   string `toml:"hostname" yaml:"hostname"`
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
	ListenPort int    `toml:"listen_port" yaml:"listen_port"`
	SSLCert    string `toml:"ssl_cert" yaml:"ssl_cert"`
	SSLKey     string `toml:"ssl_key" yaml:"ssl_key"`
}

// MirrorConfig is one [[mirrors]] entry
type MirrorConfig struct {
	RetryStrategy     `yaml:",inline"`
	ExecOnStatus      `yaml:",inline"`
	ExecOnStatusExtra `yaml:",inline"`

	Name          string            `toml:"name" yaml:"name"`
	Provider      string            `toml:"provider" yaml:"provider"`
	Upstream      string            `toml:"upstream" yaml:"upstream"`
	UseIPv6       bool              `toml:"use_ipv6" yaml:"use_ipv6"`
	MirrorDir     string            `toml:"mirror_dir" yaml:"mirror_dir"`
	MirrorType    string            `toml:"mirror_type" yaml:"mirror_type"`
	LogDir        string            `toml:"log_dir" yaml:"log_dir"`
	Env           map[string]string `toml:"env" yaml:"env"`
	Role          string            `toml:"role" yaml:"role"`
	Command       string            `toml:"command" yaml:"command"`
	FailOnMatch   string            `toml:"fail_on_match" yaml:"fail_on_match"`
	SizePattern   string            `toml:"size_pattern" yaml:"size_pattern"`
	RsyncOptions  []string          `toml:"rsync_options" yaml:"rsync_options"`
	Stage1Profile string            `toml:"stage1_profile" yaml:"stage1_profile"`
	MemoryLimit   string            `toml:"memory_limit" yaml:"memory_limit"`
	Cron          string            `toml:"cron" yaml:"cron"`
}

// DefaultWorkerConfig returns the configuration used when no file is given.
// It carries a single example mirror.
func DefaultWorkerConfig() *WorkerConfig {
	cfg := &WorkerConfig{
		Mirrors: []MirrorConfig{{
			Name:     "elvish",
			Provider: ProviderRsync,
			Upstream: "rsync://rsync.elv.sh/elvish/",
		}},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadWorkerConfig loads, defaults and validates a worker configuration.
// Without WithConfigPath it returns DefaultWorkerConfig.
func LoadWorkerConfig(opts ...Option) (*WorkerConfig, error) {
	loaderCfg, err := newLoaderConfig(opts)
	if err != nil {
		return nil, err
	}
	if loaderCfg.path == "" {
		return DefaultWorkerConfig(), nil
	}

	var cfg WorkerConfig
	if err := decodeFile(loaderCfg.path, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *WorkerConfig) applyDefaults() {
	g := &c.Global
	if g.Name == "" {
		g.Name = DefaultWorkerName
	}
	if g.LogDir == "" {
		g.LogDir = DefaultLogDir
	}
	if g.MirrorDir == "" {
		g.MirrorDir = DefaultMirrorDir
	}
	if g.Concurrent == 0 {
		g.Concurrent = DefaultConcurrent
	}
	if g.Interval == nil {
		interval := DefaultInterval
		g.Interval = &interval
	}
	if g.DBType == "" {
		g.DBType = DefaultDBType
	}
	if g.DBFile == "" {
		g.DBFile = DefaultWorkerDBFile
	}

	if c.Manager.APIBase == "" {
		c.Manager.APIBase = DefaultAPIBase
	}
	if c.Manager.Heartbeat == 0 {
		c.Manager.Heartbeat = DefaultHeartbeat
	}

	if c.Cgroup.BasePath == "" {
		c.Cgroup.BasePath = DefaultCgroupBasePath
	}
	if c.Cgroup.Group == "" {
		c.Cgroup.Group = DefaultCgroupGroup
	}

	if c.Server.Hostname == "" {
		c.Server.Hostname = DefaultWorkerHostname
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultWorkerListenAddr
	}
	if c.Server.ListenPort == 0 {
		c.Server.ListenPort = DefaultWorkerListenPort
	}

	for i := range c.Mirrors {
		if c.Mirrors[i].Provider == "" {
			c.Mirrors[i].Provider = ProviderRsync
		}
	}
}

// Validate checks the worker configuration, including every mirror
func (c *WorkerConfig) Validate() error {
	if c == nil {
		return invalidf("config cannot be nil")
	}

	g := c.Global
	if g.Concurrent < 1 {
		return invalidf("global.concurrent must be at least 1, got %d", g.Concurrent)
	}
	if err := g.RetryStrategy.validate("global"); err != nil {
		return err
	}
	if _, err := kv.ParseDBType(g.DBType); err != nil {
		return fmt.Errorf("%w: global.db_type: %w", ErrInvalidConfig, err)
	}
	if c.Manager.Heartbeat < 0 {
		return invalidf("manager.heartbeat must not be negative")
	}
	if c.Server.ListenPort < 1 || c.Server.ListenPort > 65535 {
		return invalidf("server.listen_port must be between 1 and 65535, got %d", c.Server.ListenPort)
	}
	if (c.Server.SSLCert == "") != (c.Server.SSLKey == "") {
		return invalidf("server.ssl_cert and server.ssl_key must be set together")
	}

	seen := make(map[string]int, len(c.Mirrors))
	for i, m := range c.Mirrors {
		if err := m.validate(i); err != nil {
			return err
		}
		if prev, ok := seen[m.Name]; ok {
			return invalidf("mirrors[%d]: name %q already used by mirrors[%d]", i, m.Name, prev)
		}
		seen[m.Name] = i
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (r RetryStrategy) validate(scope string) error {
	if r.Retry != nil && *r.Retry < 0 {
		return invalidf("%s: retry must not be negative", scope)
	}
	if r.Timeout != nil && *r.Timeout < 0 {
		return invalidf("%s: timeout must not be negative", scope)
	}
	if r.Interval != nil && *r.Interval < 0 {
		return invalidf("%s: interval must not be negative", scope)
	}
	return nil
}

func (m MirrorConfig) validate(i int) error {
	scope := fmt.Sprintf("mirrors[%d]", i)
	if m.Name == "" {
		return invalidf("%s: name is required", scope)
	}
	if strings.ContainsAny(m.Name, "/\\") {
		return invalidf("%s: name %q must not contain path separators", scope, m.Name)
	}
	if err := m.RetryStrategy.validate(scope); err != nil {
		return err
	}

	switch m.Provider {
	case ProviderRsync:
		if m.Upstream == "" {
			return invalidf("%s: upstream is required for provider %s", scope, m.Provider)
		}
	case ProviderTwoStageRsync:
		if m.Upstream == "" {
			return invalidf("%s: upstream is required for provider %s", scope, m.Provider)
		}
		if m.Stage1Profile == "" {
			return invalidf("%s: stage1_profile is required for provider %s", scope, m.Provider)
		}
		if _, ok := Stage1Profiles[m.Stage1Profile]; !ok {
			return invalidf("%s: unknown stage1_profile %q", scope, m.Stage1Profile)
		}
	case ProviderCommand:
		if m.Command == "" {
			return invalidf("%s: command is required for provider %s", scope, m.Provider)
		}
	default:
		return invalidf("%s: unsupported provider %q", scope, m.Provider)
	}

	switch m.Role {
	case "", RoleMaster, RoleSlave:
	default:
		return invalidf("%s: role must be %s or %s, got %q", scope, RoleMaster, RoleSlave, m.Role)
	}

	for field, pattern := range map[string]string{"fail_on_match": m.FailOnMatch, "size_pattern": m.SizePattern} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return invalidf("%s: %s: %v", scope, field, err)
		}
	}

	if m.MemoryLimit != "" {
		if _, err := ParseMemoryLimit(m.MemoryLimit); err != nil {
			return invalidf("%s: memory_limit: %v", scope, err)
		}
	}

	if m.Cron != "" {
		if _, err := cronParser.Parse(m.Cron); err != nil {
			return invalidf("%s: cron: %v", scope, err)
		}
	}
	return nil
}

// ControlAddress returns host:port for the worker control server
func (c *WorkerConfig) ControlAddress() string {
	return net.JoinHostPort(c.Server.ListenAddr, strconv.Itoa(c.Server.ListenPort))
}

// ControlURL is the URL the manager uses to reach this worker
func (c *WorkerConfig) ControlURL() string {
	scheme := "http"
	if c.Server.SSLCert != "" && c.Server.SSLKey != "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(c.Server.Hostname, strconv.Itoa(c.Server.ListenPort)))
}

// GetHeartbeat returns the heartbeat period
func (c *WorkerConfig) GetHeartbeat() time.Duration {
	return time.Duration(c.Manager.Heartbeat) * time.Second
}

// Mirror returns the mirror section called name
func (c *WorkerConfig) Mirror(name string) (MirrorConfig, bool) {
	for _, m := range c.Mirrors {
		if m.Name == name {
			return m, true
		}
	}
	return MirrorConfig{}, false
}
