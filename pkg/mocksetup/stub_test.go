package mocksetup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fboranek/mocksetup/pkg/action"
	"github.com/fboranek/mocksetup/pkg/fixture"
	"github.com/fboranek/mocksetup/pkg/log"
	"github.com/fboranek/mocksetup/pkg/project"
	"github.com/fboranek/mocksetup/pkg/shell"
)

// stubRunner is a shell.Runner driven by testify expectations.
type stubRunner struct {
	mock.Mock
}

func (r *stubRunner) Exec(ctx context.Context, name string, args ...string) (*shell.Result, error) {
	called := r.Called(name, args)
	res, _ := called.Get(0).(*shell.Result)
	return res, called.Error(1)
}

func ok(argv ...string) *shell.Result {
	return &shell.Result{Command: argv}
}

func failed(code int, argv ...string) *shell.Result {
	return &shell.Result{Command: argv, ExitCode: code, Stderr: []byte("ModuleNotFoundError: No module named 'trio'\n")}
}

var (
	installArgs = []string{"-m", "pip", "install", "h11", "trio"}
	probeArgs   = []string{"-c", "import h11, trio"}
)

// succeedingRunner accepts the default install and probe commands.
func succeedingRunner() *stubRunner {
	r := &stubRunner{}
	r.On("Exec", "python3", installArgs).Return(ok("python3"), nil)
	r.On("Exec", "python3", probeArgs).Return(ok("python3"), nil)
	return r
}

// stubSpawner hands out stubHandles.
type stubSpawner struct {
	mu      sync.Mutex
	specs   []fixture.Spec
	handles []*stubHandle
}

func (s *stubSpawner) Spawn(ctx context.Context, spec fixture.Spec) (fixture.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
	h := &stubHandle{pid: 1000 + len(s.handles), argv: spec.Argv(), done: make(chan struct{})}
	s.handles = append(s.handles, h)
	return h, nil
}

func (s *stubSpawner) handle(i int) *stubHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[i]
}

func (s *stubSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

type stubHandle struct {
	pid  int
	argv []string

	mu         sync.Mutex
	terminated bool
	done       chan struct{}
}

func (h *stubHandle) PID() int              { return h.pid }
func (h *stubHandle) Command() []string     { return h.argv }
func (h *stubHandle) Done() <-chan struct{} { return h.done }
func (h *stubHandle) Err() error            { return nil }
func (h *stubHandle) Kill() error           { return h.Terminate() }

func (h *stubHandle) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		return os.ErrProcessDone
	}
	h.terminated = true
	close(h.done)
	return nil
}

func (h *stubHandle) wasTerminated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated
}

// eventRecorder collects events.
type eventRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *eventRecorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) byKind(k log.Kind) []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// fixtureTree creates a base dir containing the default fixture script.
func fixtureTree(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, DefaultFixtureDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFixtureScript), []byte("# mock server\n"), 0o644))
	return base
}

// testEnv builds an Env with stubs and a supervisor closed at test end.
func testEnv(t *testing.T, runner shell.Runner, spawner fixture.Spawner) (*action.Env, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	env := &action.Env{
		Shell:   runner,
		Project: project.New("aws-c-s3"),
		Spawner: spawner,
		Events:  rec,
		RunID:   "test-run",
		BaseDir: fixtureTree(t),
	}
	env.Supervisor = fixture.NewSupervisor(fixture.SupervisorConfig{Events: rec, RunID: env.RunID})
	t.Cleanup(func() { _ = env.Supervisor.Close(context.Background()) })
	return env.Init(), rec
}
