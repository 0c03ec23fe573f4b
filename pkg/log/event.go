package log

import (
	"strings"
	"time"
)

// Event represents a single recorded side effect of a setup run.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the setup run (UUID).
	RunID string `cbor:"2,keyasint"`

	// Action is the name of the action that produced the event.
	Action string `cbor:"3,keyasint,omitempty"`

	// Kind classifies the event.
	Kind Kind `cbor:"4,keyasint"`

	// Command is the argv of an executed or spawned command.
	Command []string `cbor:"5,keyasint,omitempty"`

	// ExitCode is the exit status of a finished command or process.
	ExitCode *int `cbor:"6,keyasint,omitempty"`

	// PID is the process id of a spawned or terminated fixture.
	PID int `cbor:"7,keyasint,omitempty"`

	// Duration of the command or step.
	Duration time.Duration `cbor:"8,keyasint,omitempty"`

	// Config describes a build configuration change.
	Config *ConfigChange `cbor:"9,keyasint,omitempty"`

	// Detail is free-form context (stage name, signal, working dir).
	Detail string `cbor:"10,keyasint,omitempty"`

	// Error is the error message for failed steps.
	Error string `cbor:"11,keyasint,omitempty"`
}

// Kind classifies events.
type Kind uint8

const (
	// KindStepBegin marks the start of an action.
	KindStepBegin Kind = 0
	// KindStepEnd marks the successful end of an action.
	KindStepEnd Kind = 1
	// KindCommand records a command executed through the shell runner.
	KindCommand Kind = 2
	// KindConfig records a change to the project configuration.
	KindConfig Kind = 3
	// KindSpawn records a fixture process start.
	KindSpawn Kind = 4
	// KindExit records a fixture process exit observed by the supervisor.
	KindExit Kind = 5
	// KindTerminate records a termination signal sent to a fixture.
	KindTerminate Kind = 6
	// KindError records a failed step.
	KindError Kind = 7
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStepBegin:
		return "STEP_BEGIN"
	case KindStepEnd:
		return "STEP_END"
	case KindCommand:
		return "COMMAND"
	case KindConfig:
		return "CONFIG"
	case KindSpawn:
		return "SPAWN"
	case KindExit:
		return "EXIT"
	case KindTerminate:
		return "TERMINATE"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseKind parses a kind name such as "spawn" or "STEP_END".
func ParseKind(s string) (Kind, bool) {
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for k := KindStepBegin; k <= KindError; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// ConfigChange captures a project configuration mutation.
type ConfigChange struct {
	// Key is the configuration list that was changed (e.g. "cmake_args").
	Key string `cbor:"1,keyasint"`

	// Value is the appended value.
	Value string `cbor:"2,keyasint"`

	// Added is false when the value was already present.
	Added bool `cbor:"3,keyasint,omitempty"`
}

// IntPtr returns a pointer to v, for the optional ExitCode field.
func IntPtr(v int) *int {
	return &v
}
