package worker

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hustsync/hustsync/internal/protocol"
)

// scheduleQueue holds the next run time of every idle job
type scheduleQueue struct {
	mu  sync.Mutex
	due map[string]time.Time
}

func newScheduleQueue() *scheduleQueue {
	return &scheduleQueue{due: make(map[string]time.Time)}
}

// Set schedules name at at, replacing any earlier entry
func (q *scheduleQueue) Set(name string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.due[name] = at
}

func (q *scheduleQueue) Remove(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.due, name)
}

func (q *scheduleQueue) Get(name string) (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	at, ok := q.due[name]
	return at, ok
}

// Pending reports whether name is scheduled after now
func (q *scheduleQueue) Pending(name string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	at, ok := q.due[name]
	return ok && at.After(now)
}

// PopDue removes and returns every job due at now, oldest first.
// Ties break by name.
func (q *scheduleQueue) PopDue(now time.Time) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var names []string
	for name, at := range q.due {
		if !at.After(now) {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := q.due[a].Compare(q.due[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	for _, name := range names {
		delete(q.due, name)
	}
	return names
}

// Snapshot returns the queue as MirrorSchedules, sorted by name
func (q *scheduleQueue) Snapshot() protocol.MirrorSchedules {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := protocol.MirrorSchedules{Schedules: make([]protocol.MirrorSchedule, 0, len(q.due))}
	for name, at := range q.due {
		out.Schedules = append(out.Schedules, protocol.MirrorSchedule{Name: name, NextSchedule: at})
	}
	slices.SortFunc(out.Schedules, func(a, b protocol.MirrorSchedule) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
