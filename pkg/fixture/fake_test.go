package fixture

import (
	"errors"
	"os"
	"sync"
)

// fakeHandle is an in-memory Handle. Terminate exits it unless
// ignoreTerm is set; Kill always exits it.
type fakeHandle struct {
	pid        int
	ignoreTerm bool

	mu         sync.Mutex
	done       chan struct{}
	err        error
	terminated int
	killed     int
}

func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{pid: pid, done: make(chan struct{})}
}

func (f *fakeHandle) PID() int          { return f.pid }
func (f *fakeHandle) Command() []string { return []string{"fake", "fixture.py"} }
func (f *fakeHandle) Done() <-chan struct{} {
	return f.done
}

func (f *fakeHandle) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeHandle) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated++
	if f.ignoreTerm {
		return nil
	}
	return f.exitLocked(errors.New("signal: terminated"))
}

func (f *fakeHandle) Kill() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed++
	return f.exitLocked(errors.New("signal: killed"))
}

// crash simulates the process exiting on its own.
func (f *fakeHandle) crash(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.exitLocked(err)
}

func (f *fakeHandle) exitLocked(err error) error {
	select {
	case <-f.done:
		return os.ErrProcessDone
	default:
	}
	f.err = err
	close(f.done)
	return nil
}

func (f *fakeHandle) counts() (terminated, killed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated, f.killed
}
