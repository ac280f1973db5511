package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds each named flag to the viper key prefix+name
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, prefix string, names ...string) {
	for _, name := range names {
		if err := v.BindPFlag(prefix+name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}
}

// pidFile is a locked file holding the process id
type pidFile struct {
	path string
	lock *flock.Flock
}

// acquirePIDFile locks path and writes the current pid into it. It fails
// when another live process holds the lock. An empty path is a no-op.
func acquirePIDFile(path string) (*pidFile, error) {
	if path == "" {
		return nil, nil
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock pidfile %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("pidfile %s is held by another process", path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil { //nolint:gosec // pidfiles are world readable
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to write pidfile %s: %w", path, err)
	}
	return &pidFile{path: path, lock: lock}, nil
}

// Release unlocks and removes the pidfile
func (p *pidFile) Release() error {
	if p == nil {
		return nil
	}
	if err := p.lock.Unlock(); err != nil {
		return err
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
