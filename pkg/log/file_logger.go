package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to an event log file. The file is synced after
// events that end a step or a process, so a build agent killed mid-run
// still leaves the outcome on disk. Safe for concurrent use.
type FileLogger struct {
	path string

	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	written int
	err     error
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &FileLogger{path: path, file: f, enc: newEventEncoder(f)}, nil
}

// Path returns the file the logger appends to.
func (l *FileLogger) Path() string { return l.path }

// Log appends event. Write failures never reach the caller; the first one
// is kept for Err and Close.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.fail(err)
		return
	}
	l.written++
	if syncsAfter(event.Kind) {
		l.fail(l.file.Sync())
	}
}

func syncsAfter(k Kind) bool {
	switch k {
	case KindStepEnd, KindError, KindExit, KindTerminate:
		return true
	}
	return false
}

func (l *FileLogger) fail(err error) {
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("event log %s: %w", l.path, err)
	}
}

// Written returns the number of events appended so far.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Err returns the first write error, if any.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close closes the file and reports the first write error. Later calls
// and later Log calls do nothing.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if l.err != nil {
		return l.err
	}
	return err
}

var _ Logger = (*FileLogger)(nil)
