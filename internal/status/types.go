// Package status defines the mirror and worker status records shared by the
// manager, the worker and the persistent store.
package status

import (
	"encoding/json"
	"strings"
	"time"
)

// SyncStatus is the state of a single mirror job
type SyncStatus string

const (
	// StatusNone means the mirror has never been synced
	StatusNone SyncStatus = "none"

	// StatusFailed means the last attempt failed
	StatusFailed SyncStatus = "failed"

	// StatusSuccess means the last attempt succeeded
	StatusSuccess SyncStatus = "success"

	// StatusSyncing means an attempt is running
	StatusSyncing SyncStatus = "syncing"

	// StatusPreSyncing means the job is due and waiting for a free slot
	StatusPreSyncing SyncStatus = "pre-syncing"

	// StatusPaused means the job was stopped by a command
	StatusPaused SyncStatus = "paused"

	// StatusDisabled means the job was disabled and is no longer scheduled
	StatusDisabled SyncStatus = "disabled"

	// StatusUnknown is what any status this build does not recognise decodes to
	StatusUnknown SyncStatus = "unknown"
)

var knownStatuses = map[SyncStatus]struct{}{
	StatusNone:       {},
	StatusFailed:     {},
	StatusSuccess:    {},
	StatusSyncing:    {},
	StatusPreSyncing: {},
	StatusPaused:     {},
	StatusDisabled:   {},
	StatusUnknown:    {},
}

// ParseSyncStatus maps a wire value onto a SyncStatus, returning StatusUnknown
// for anything outside the known set.
func ParseSyncStatus(s string) SyncStatus {
	st := SyncStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownStatuses[st]; ok {
		return st
	}
	return StatusUnknown
}

// String implements fmt.Stringer
func (s SyncStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status ends an attempt run
func (s SyncStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// IsHeld reports whether the status was imposed by a command and blocks scheduling
func (s SyncStatus) IsHeld() bool {
	return s == StatusPaused || s == StatusDisabled
}

// UnmarshalJSON decodes a status, falling back to StatusUnknown
func (s *SyncStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSyncStatus(raw)
	return nil
}

// MirrorStatus is the status record of one mirror on one worker.
// It is identified by (Worker, Name).
type MirrorStatus struct {
	Name     string `json:"name"`
	Worker   string `json:"worker"`
	Upstream string `json:"upstream"`

	// Size is the last reported payload size, free-form (e.g. "1.33T")
	Size     string `json:"size"`
	ErrorMsg string `json:"error-msg"`

	LastUpdate    time.Time `json:"last-update"`
	LastStarted   time.Time `json:"last-started"`
	LastEnded     time.Time `json:"last-ended"`
	NextScheduled time.Time `json:"next-scheduled"`

	Status SyncStatus `json:"status"`

	// IsMaster marks the record as authoritative for a mirror shared by several workers
	IsMaster bool `json:"is-master"`
}

// WorkerStatus is the registration record of a worker
type WorkerStatus struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Token        string    `json:"token"`
	LastOnline   time.Time `json:"last_online"`
	LastRegister time.Time `json:"last_register"`
}

// IsStale reports whether the worker has not been heard from within grace
func (w WorkerStatus) IsStale(now time.Time, grace time.Duration) bool {
	if grace <= 0 {
		return false
	}
	return now.Sub(w.LastOnline) > grace
}
