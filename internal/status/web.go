package status

import "time"

// WebMirrorStatus is the public view of a mirror served by the manager's
// /jobs endpoint. Each timestamp is repeated as unix seconds in a *_ts field.
type WebMirrorStatus struct {
	Name            string     `json:"name"`
	Upstream        string     `json:"upstream"`
	Size            string     `json:"size"`
	LastUpdate      time.Time  `json:"last-update"`
	LastUpdateTs    int64      `json:"last-update-ts"`
	LastStarted     time.Time  `json:"last-started"`
	LastStartedTs   int64      `json:"last-started-ts"`
	LastEnded       time.Time  `json:"last-ended"`
	LastEndedTs     int64      `json:"last-ended-ts"`
	NextScheduled   time.Time  `json:"next-scheduled"`
	NextScheduledTs int64      `json:"next-scheduled-ts"`
	Status          SyncStatus `json:"status"`
	IsMaster        bool       `json:"is-master"`
}

// NewWebMirrorStatus builds the public view of m
func NewWebMirrorStatus(m MirrorStatus) WebMirrorStatus {
	return WebMirrorStatus{
		Name:            m.Name,
		Upstream:        m.Upstream,
		Size:            m.Size,
		LastUpdate:      m.LastUpdate,
		LastUpdateTs:    unixOrZero(m.LastUpdate),
		LastStarted:     m.LastStarted,
		LastStartedTs:   unixOrZero(m.LastStarted),
		LastEnded:       m.LastEnded,
		LastEndedTs:     unixOrZero(m.LastEnded),
		NextScheduled:   m.NextScheduled,
		NextScheduledTs: unixOrZero(m.NextScheduled),
		Status:          m.Status,
		IsMaster:        m.IsMaster,
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
