package shell

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCommand is returned when Exec is called without a program name.
var ErrEmptyCommand = errors.New("empty command")

// ExitError reports a command that ran and exited with a non-zero status.
type ExitError struct {
	Command []string
	Code    int
	Stderr  []byte
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", strings.Join(e.Command, " "), e.Code)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// StartError reports a command that could not be started at all
// (missing binary, permission denied).
type StartError struct {
	Command []string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %q: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitCode extracts the exit status from err. It returns 0 for nil and -1
// for errors that do not carry an exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}

// lastLine returns the last non-empty line of b, trimmed.
func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
