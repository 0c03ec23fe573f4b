package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.evlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("event file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.evlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(Event{
		Timestamp: time.Now(),
		RunID:     "run-1",
		Kind:      KindSpawn,
		PID:       4242,
		Command:   []string{"python3", "mock_s3_server.py"},
	})
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read event file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("event file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if decoded.PID != 4242 {
		t.Errorf("PID: got %d, want 4242", decoded.PID)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.evlog")

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), RunID: "run", Kind: KindStepBegin})
		logger.Close()
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "setup.evlog"))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close is ignored.
	logger.Log(Event{Kind: KindExit})
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.evlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			logger.Log(Event{Timestamp: time.Now(), RunID: "run", Kind: KindExit, PID: pid + 1})
		}(i)
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 10 {
		t.Errorf("got %d events, want 10", len(events))
	}
}

func TestFileLoggerCountsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.evlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Log(Event{Timestamp: time.Now(), RunID: "run", Kind: KindStepBegin})
	logger.Log(Event{Timestamp: time.Now(), RunID: "run", Kind: KindStepEnd})

	if got := logger.Written(); got != 2 {
		t.Errorf("Written = %d, want 2", got)
	}
	if logger.Path() != path {
		t.Errorf("Path = %q, want %q", logger.Path(), path)
	}
	if err := logger.Err(); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
}

func TestFileLoggerReportsWriteError(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "setup.evlog"))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	// Pull the file out from under the encoder.
	logger.file.Close()

	logger.Log(Event{Timestamp: time.Now(), RunID: "run", Kind: KindExit})

	if logger.Err() == nil {
		t.Fatal("expected a write error")
	}
	if logger.Written() != 0 {
		t.Errorf("Written = %d, want 0", logger.Written())
	}
	if err := logger.Close(); err == nil {
		t.Error("Close should report the write error")
	}
}
