package log

// Logger receives setup events.
// Pass NoopLogger to disable capture.
type Logger interface {
	// Log records an event. Implementations must be thread-safe; the
	// supervisor logs process exits from its reaper goroutines.
	Log(event Event)
}

// NoopLogger discards all events.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}

// OrNoop returns l, or NoopLogger if l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}
