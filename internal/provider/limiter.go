package provider

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hustsync/hustsync/internal/config"
)

// Limiter constrains the resources of a started provider process
type Limiter interface {
	Apply(mirror string, pid int, memoryLimit int64) error
}

// NewLimiter returns a cgroup v2 limiter when cgroups are enabled and a
// no-op limiter otherwise
func NewLimiter(cfg config.CgroupConfig) Limiter {
	if !cfg.Enable {
		return NoopLimiter{}
	}
	return &CgroupLimiter{BasePath: cfg.BasePath, Group: cfg.Group}
}

// NoopLimiter records nothing and limits nothing
type NoopLimiter struct{}

// Apply logs the requested limit
func (NoopLimiter) Apply(mirror string, pid int, memoryLimit int64) error {
	if memoryLimit > 0 {
		slog.Debug("Cgroups disabled, memory_limit ignored", "mirror", mirror, "pid", pid, "memory_limit", memoryLimit)
	}
	return nil
}

// CgroupLimiter places each mirror's processes in <base>/<group>/<mirror>
// of a cgroup v2 hierarchy
type CgroupLimiter struct {
	BasePath string
	Group    string
}

// Apply moves pid into the mirror cgroup and sets memory.max when a limit is given
func (l *CgroupLimiter) Apply(mirror string, pid int, memoryLimit int64) error {
	dir := filepath.Join(l.BasePath, l.Group, mirror)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cgroup %s: %w", dir, err)
	}

	if memoryLimit > 0 {
		limit := []byte(strconv.FormatInt(memoryLimit, 10))
		if err := os.WriteFile(filepath.Join(dir, "memory.max"), limit, 0o644); err != nil {
			return fmt.Errorf("failed to set memory.max: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "cgroup.procs"), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("failed to move pid %d into %s: %w", pid, dir, err)
	}
	return nil
}
