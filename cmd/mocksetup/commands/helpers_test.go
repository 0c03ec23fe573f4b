package commands

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fboranek/mocksetup/pkg/fixture"
	"github.com/fboranek/mocksetup/pkg/log"
	"github.com/fboranek/mocksetup/pkg/shell"
)

var testTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// writeEvents writes events to a new log file and returns its path.
func writeEvents(t *testing.T, events ...log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.evlog")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

// sampleRun returns the events of a successful setup run.
func sampleRun(runID string, start time.Time) []log.Event {
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }
	return []log.Event{
		{Timestamp: at(0), RunID: runID, Action: "mock-server-setup", Kind: log.KindStepBegin, Detail: "pre_build_steps"},
		{Timestamp: at(10), RunID: runID, Action: "mock-server-setup", Kind: log.KindCommand,
			Command: []string{"python3", "-m", "pip", "install", "h11", "trio"}, ExitCode: log.IntPtr(0)},
		{Timestamp: at(20), RunID: runID, Action: "mock-server-setup", Kind: log.KindCommand,
			Command: []string{"python3", "-c", "import h11, trio"}, ExitCode: log.IntPtr(0)},
		{Timestamp: at(30), RunID: runID, Action: "mock-server-setup", Kind: log.KindConfig,
			Config: &log.ConfigChange{Key: "cmake_args", Value: "-DENABLE_MOCK_SERVER_TESTS=ON", Added: true}},
		{Timestamp: at(40), RunID: runID, Action: "mock-server-setup", Kind: log.KindSpawn,
			Command: []string{"python3", "mock_s3_server.py"}, PID: 4321, Detail: "/src/tests/mock_s3_server"},
		{Timestamp: at(50), RunID: runID, Action: "mock-server-setup", Kind: log.KindStepEnd, Duration: 50 * time.Millisecond},
	}
}

// okRunner accepts every command.
type okRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *okRunner) Exec(ctx context.Context, name string, args ...string) (*shell.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	argv := append([]string{name}, args...)
	r.calls = append(r.calls, argv)
	return &shell.Result{Command: argv}, nil
}

// failingProbeRunner fails the import probe.
type failingProbeRunner struct{}

func (failingProbeRunner) Exec(ctx context.Context, name string, args ...string) (*shell.Result, error) {
	argv := append([]string{name}, args...)
	if len(args) > 0 && args[0] == "-c" {
		return &shell.Result{Command: argv, ExitCode: 1}, nil
	}
	return &shell.Result{Command: argv}, nil
}

type fakeSpawner struct {
	mu      sync.Mutex
	handles []*fakeHandle
	specs   []fixture.Spec
}

func (s *fakeSpawner) Spawn(ctx context.Context, spec fixture.Spec) (fixture.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &fakeHandle{pid: 500 + len(s.handles), argv: spec.Argv(), done: make(chan struct{})}
	s.handles = append(s.handles, h)
	s.specs = append(s.specs, spec)
	return h, nil
}

type fakeHandle struct {
	pid  int
	argv []string
	once sync.Once
	done chan struct{}
}

func (h *fakeHandle) PID() int              { return h.pid }
func (h *fakeHandle) Command() []string     { return h.argv }
func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) Err() error            { return nil }
func (h *fakeHandle) Kill() error           { return h.Terminate() }
func (h *fakeHandle) Terminate() error {
	h.once.Do(func() { close(h.done) })
	return nil
}
