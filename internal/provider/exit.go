package provider

import (
	"errors"
	"fmt"
	"os/exec"
	"slices"
)

var rsyncExitReasons = map[int]string{
	0:  "Success",
	1:  "Syntax or usage error",
	2:  "Protocol incompatibility",
	3:  "Errors selecting input/output files, dirs",
	4:  "Requested action not supported: an attempt was made to manipulate 64-bit files on a platform that cannot support them; or an option was specified that is supported by the client and not by the server.",
	5:  "Error starting client-server protocol",
	6:  "Daemon unable to append to log-file",
	10: "Error in socket I/O",
	11: "Error in file I/O",
	12: "Error in rsync protocol data stream",
	13: "Errors with program diagnostics",
	14: "Error in IPC code",
	20: "Received SIGUSR1 or SIGINT",
	21: "Some error returned by waitpid()",
	22: "Error allocating core memory buffers",
	23: "Partial transfer due to error",
	24: "Partial transfer due to vanished source files",
	25: "The --max-delete limit stopped deletions",
	30: "Timeout in data send/receive",
	35: "Timeout waiting for daemon connection",
}

// ExitError is a provider process that exited with a non-success code
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// RsyncExitReason describes an rsync exit code.
// Unrecognized codes yield "unknown, code N".
func RsyncExitReason(code int) string {
	if msg, ok := rsyncExitReasons[code]; ok {
		return "rsync error: " + msg
	}
	return fmt.Sprintf("unknown, code %d", code)
}

// classifyExit turns the result of cmd.Wait into nil or an *ExitError.
// Codes in successCodes count as success.
func classifyExit(err error, successCodes []int, reason func(int) string) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}

	code := exitErr.ExitCode()
	if code > 0 && slices.Contains(successCodes, code) {
		return nil
	}
	if code < 0 {
		return &ExitError{Code: code, Reason: exitErr.Error()}
	}
	return &ExitError{Code: code, Reason: reason(code)}
}

func commandExitReason(code int) string {
	return fmt.Sprintf("command exited with code %d", code)
}
