package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Spec describes a fixture process to start.
type Spec struct {
	// Name labels the fixture in logs and events.
	Name string

	// Path is the program to run.
	Path string

	// Args are passed to the program.
	Args []string

	// Dir is the working directory of the child.
	Dir string

	// Env, when non-nil, replaces the child's environment.
	Env []string

	// Stdout and Stderr receive the child's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Argv returns the full command line of the spec.
func (s Spec) Argv() []string {
	return append([]string{s.Path}, s.Args...)
}

// Spawner starts fixture processes.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec) (Handle, error)
}

// Handle controls a running fixture process.
type Handle interface {
	// PID returns the operating system process id.
	PID() int

	// Command returns the command line the process was started with.
	Command() []string

	// Terminate asks the process to exit (SIGTERM on unix).
	Terminate() error

	// Kill forces the process to exit.
	Kill() error

	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}

	// Err returns the wait error once Done is closed.
	Err() error
}

// ProcessSpawner starts fixtures as operating system processes. On unix
// each child is placed in its own process group so that signals reach any
// helpers it starts.
type ProcessSpawner struct{}

// NewProcessSpawner returns a ProcessSpawner.
func NewProcessSpawner() *ProcessSpawner {
	return &ProcessSpawner{}
}

// Spawn starts the process described by spec and returns without waiting
// for it. ctx is only consulted before the start; the child's lifetime is
// owned by whoever holds the handle.
func (s *ProcessSpawner) Spawn(ctx context.Context, spec Spec) (Handle, error) {
	if spec.Path == "" {
		return nil, ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", strings.Join(spec.Argv(), " "), err)
	}

	p := &process{
		cmd:  cmd,
		argv: spec.Argv(),
		done: make(chan struct{}),
	}
	go p.reap()
	return p, nil
}

// process is a Handle backed by an exec.Cmd.
type process struct {
	cmd  *exec.Cmd
	argv []string
	done chan struct{}

	mu  sync.Mutex
	err error
}

func (p *process) reap() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

func (p *process) PID() int { return p.cmd.Process.Pid }

func (p *process) Command() []string { return append([]string(nil), p.argv...) }

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *process) Terminate() error {
	if p.exited() {
		return os.ErrProcessDone
	}
	return terminate(p.cmd.Process)
}

func (p *process) Kill() error {
	if p.exited() {
		return os.ErrProcessDone
	}
	return kill(p.cmd.Process)
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// IsDone reports whether err only says the process had already exited.
func IsDone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}

var _ Spawner = (*ProcessSpawner)(nil)
var _ Handle = (*process)(nil)
