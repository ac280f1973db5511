package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LatestLink is the symlink in a log directory pointing at the newest log
const LatestLink = "latest"

// OpenLog creates the log file for a run started at now and repoints the
// latest symlink at it. It returns the file path.
func OpenLog(logDir, name string, now time.Time) (string, error) {
	if logDir == "" || logDir == os.DevNull {
		return os.DevNull, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", name, now.Format("2006-01-02_15_04")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	link := filepath.Join(logDir, LatestLink)
	tmp := link + ".tmp"
	_ = os.Remove(tmp)
	if err := os.Symlink(filepath.Base(path), tmp); err != nil {
		return "", fmt.Errorf("failed to link latest log: %w", err)
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to link latest log: %w", err)
	}
	return path, nil
}
