// Package protocol defines the messages exchanged between the manager, its
// workers and command line clients, and the client used to send them.
package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CmdVerb is a command addressed to one job or to a whole worker
type CmdVerb string

// Command verbs
const (
	CmdStart   CmdVerb = "start"
	CmdStop    CmdVerb = "stop"
	CmdDisable CmdVerb = "disable"
	CmdRestart CmdVerb = "restart"
	CmdPing    CmdVerb = "ping"
	CmdReload  CmdVerb = "reload"
)

// OptionForce on a start command runs the job now instead of at its next schedule
const OptionForce = "force"

var verbs = map[CmdVerb]struct{}{
	CmdStart: {}, CmdStop: {}, CmdDisable: {}, CmdRestart: {}, CmdPing: {}, CmdReload: {},
}

// ParseCmdVerb accepts a verb name, case-insensitively, with or without a "cmd-" prefix
func ParseCmdVerb(s string) (CmdVerb, error) {
	v := CmdVerb(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "cmd-"))
	if _, ok := verbs[v]; !ok {
		return "", fmt.Errorf("unknown command %q", s)
	}
	return v, nil
}

// UnmarshalJSON rejects unknown verbs
func (v *CmdVerb) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCmdVerb(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// WorkerCommand reports whether the verb targets the worker rather than one job
func (v CmdVerb) WorkerCommand() bool {
	return v == CmdReload
}

// WorkerCmd is a command delivered to a worker
type WorkerCmd struct {
	Cmd      CmdVerb         `json:"cmd"`
	MirrorID string          `json:"mirror_id"`
	Args     []string        `json:"args"`
	Options  map[string]bool `json:"options"`
}

// Force reports whether the force option is set
func (c WorkerCmd) Force() bool {
	return c.Options[OptionForce]
}

func (c WorkerCmd) String() string {
	if c.MirrorID == "" {
		return string(c.Cmd)
	}
	return fmt.Sprintf("%s (%s)", c.Cmd, c.MirrorID)
}

// ClientCmd is a command sent to the manager for relay to a worker
type ClientCmd struct {
	Cmd      CmdVerb         `json:"cmd"`
	MirrorID string          `json:"mirror_id"`
	WorkerID string          `json:"worker_id"`
	Args     []string        `json:"args"`
	Options  map[string]bool `json:"options"`
}

// WorkerCmd strips the routing information
func (c ClientCmd) WorkerCmd() WorkerCmd {
	return WorkerCmd{
		Cmd:      c.Cmd,
		MirrorID: c.MirrorID,
		Args:     c.Args,
		Options:  c.Options,
	}
}

// Validate checks that the command is routable
func (c ClientCmd) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if _, ok := verbs[c.Cmd]; !ok {
		return fmt.Errorf("unknown command %q", c.Cmd)
	}
	if c.MirrorID == "" && !c.Cmd.WorkerCommand() && c.Cmd != CmdPing {
		return fmt.Errorf("mirror_id is required for %s", c.Cmd)
	}
	return nil
}

// MirrorSchedules lists the next run of every job on a worker
type MirrorSchedules struct {
	Schedules []MirrorSchedule `json:"schedules"`
}

// MirrorSchedule is the next run of one job
type MirrorSchedule struct {
	Name         string    `json:"name"`
	NextSchedule time.Time `json:"next_schedule"`
}

// Manager API paths
const (
	PingPath     = "/ping"
	WorkersPath  = "/workers"
	CmdPath      = "/cmd"
	JobsPath     = "/jobs"
	DisabledPath = "/jobs/disabled"
)

// WorkerPath is /workers/{id}
func WorkerPath(workerID string) string {
	return WorkersPath + "/" + url.PathEscape(workerID)
}

// WorkerJobsPath is /workers/{id}/jobs
func WorkerJobsPath(workerID string) string {
	return WorkerPath(workerID) + "/jobs"
}

// WorkerJobPath is /workers/{id}/jobs/{mirror}
func WorkerJobPath(workerID, mirrorID string) string {
	return WorkerJobsPath(workerID) + "/" + url.PathEscape(mirrorID)
}

// WorkerSchedulesPath is /workers/{id}/schedules
func WorkerSchedulesPath(workerID string) string {
	return WorkerPath(workerID) + "/schedules"
}

// WorkerCommandsPath is /workers/{id}/commands
func WorkerCommandsPath(workerID string) string {
	return WorkerPath(workerID) + "/commands"
}
