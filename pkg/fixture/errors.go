package fixture

import "errors"

// Fixture package errors.
var (
	// ErrSupervisorClosed is returned when tracking a handle on a closed supervisor.
	ErrSupervisorClosed = errors.New("supervisor closed")

	// ErrExited is returned by WaitReady when the process exits before it
	// becomes ready.
	ErrExited = errors.New("fixture process exited")

	// ErrNotReady is returned by WaitReady when the deadline passes.
	ErrNotReady = errors.New("fixture not ready")

	// ErrEmptyPath is returned when a Spec has no program path.
	ErrEmptyPath = errors.New("fixture spec has no path")
)
