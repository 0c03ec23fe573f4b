package action

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/fboranek/mocksetup/pkg/fixture"
	"github.com/fboranek/mocksetup/pkg/log"
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

// stubSpawner hands out stubHandles and counts spawns.
type stubSpawner struct {
	mu     sync.Mutex
	err    error
	specs  []fixture.Spec
	handle []*stubHandle
}

func (s *stubSpawner) Spawn(ctx context.Context, spec fixture.Spec) (fixture.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.specs = append(s.specs, spec)
	h := &stubHandle{pid: 100 + len(s.handle), argv: spec.Argv(), done: make(chan struct{})}
	s.handle = append(s.handle, h)
	return h, nil
}

type stubHandle struct {
	pid  int
	argv []string
	once sync.Once
	done chan struct{}
}

func (h *stubHandle) PID() int              { return h.pid }
func (h *stubHandle) Command() []string     { return h.argv }
func (h *stubHandle) Done() <-chan struct{} { return h.done }
func (h *stubHandle) Err() error            { return nil }
func (h *stubHandle) Kill() error           { return h.Terminate() }

func (h *stubHandle) Terminate() error {
	err := os.ErrProcessDone
	h.once.Do(func() {
		close(h.done)
		err = nil
	})
	return err
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

func (r *eventRecorder) kinds() []log.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]log.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// funcAction adapts a function to Action.
type funcAction struct {
	name string
	run  func(ctx context.Context, env *Env) error
}

func (a funcAction) Name() string                           { return a.name }
func (a funcAction) Run(ctx context.Context, env *Env) error { return a.run(ctx, env) }

var errBoom = errors.New("boom")
