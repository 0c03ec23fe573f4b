package mocksetup

import (
	"errors"
	"fmt"
)

// Errors returned by the action. Install and probe failures wrap the
// underlying *shell.ExitError.
var (
	ErrInstall        = errors.New("dependency installation failed")
	ErrImportProbe    = errors.New("dependency import check failed")
	ErrFixtureMissing = errors.New("fixture script not found")
	ErrNotReady       = errors.New("mock server did not become ready")
)

// ConfigError describes an invalid action configuration.
type ConfigError struct {
	// File is the configuration file, empty for inline config.
	File string

	// Field is the offending YAML key, if known.
	Field string

	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
