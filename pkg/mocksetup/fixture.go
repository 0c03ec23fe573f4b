package mocksetup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fboranek/mocksetup/pkg/action"
	"github.com/fboranek/mocksetup/pkg/discovery"
	"github.com/fboranek/mocksetup/pkg/fixture"
)

// Fixture is a running mock server started by the action.
type Fixture struct {
	env    *action.Env
	cfg    Config
	dir    string
	logger *slog.Logger

	mu         sync.Mutex
	handle     fixture.Handle
	advertiser *discovery.Advertiser
	watcher    *fixture.Watcher
	stopped    bool
}

func newFixture(env *action.Env, cfg Config, dir string) *Fixture {
	return &Fixture{
		env:    env,
		cfg:    cfg,
		dir:    dir,
		logger: env.Logger.With("action", Name),
	}
}

// spec describes the fixture process: the interpreter running the script
// from its own directory, with no further arguments. Output goes to the
// parent's stdout and stderr unless the environment redirects it.
func (f *Fixture) spec() fixture.Spec {
	var stdout, stderr io.Writer = os.Stdout, os.Stderr
	if w := f.env.FixtureOutput; w != nil {
		stdout, stderr = w, w
	}
	return fixture.Spec{
		Name:   Name,
		Path:   f.cfg.Interpreter,
		Args:   []string{f.cfg.FixtureScript},
		Dir:    f.dir,
		Stdout: stdout,
		Stderr: stderr,
	}
}

// start spawns the process and waits for readiness when configured. A
// fixture that does not become ready is stopped again.
func (f *Fixture) start(ctx context.Context) error {
	h, err := f.env.Spawn(ctx, Name, f.spec())
	if err != nil {
		return err
	}

	if f.cfg.ReadyAddr != "" {
		if err := fixture.WaitReady(ctx, h, f.cfg.ReadyAddr, f.cfg.ReadyTimeout); err != nil {
			_ = f.env.Supervisor.Stop(context.WithoutCancel(ctx), Name, h)
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
		f.logger.Info("mock server ready", "addr", f.cfg.ReadyAddr, "pid", h.PID())
	}

	f.mu.Lock()
	f.handle = h
	f.mu.Unlock()
	return nil
}

// startAux starts advertisement and the script watcher, and ties their
// lifetime to the supervisor.
func (f *Fixture) startAux() error {
	if f.cfg.Advertise {
		f.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{Logger: f.logger})
		if err := f.advertise(); err != nil {
			return err
		}
	}

	if f.cfg.Watch {
		script := filepath.Join(f.dir, f.cfg.FixtureScript)
		w, err := fixture.NewWatcher(script, fixture.DefaultDebounce, f.onScriptChange, f.logger)
		if err != nil {
			return fmt.Errorf("watch %s: %w", script, err)
		}
		f.mu.Lock()
		f.watcher = w
		f.mu.Unlock()
	}

	go func() {
		<-f.env.Supervisor.Closed()
		f.stopAux()
	}()
	return nil
}

func (f *Fixture) advertise() error {
	if f.advertiser == nil {
		return nil
	}
	port, _ := f.cfg.readyPort()
	return f.advertiser.Advertise(discovery.Info{
		Port:   port,
		RunID:  f.env.RunID,
		PID:    f.PID(),
		Script: f.cfg.FixtureScript,
	})
}

func (f *Fixture) onScriptChange() {
	f.logger.Info("fixture script changed, restarting")
	if err := f.Restart(context.Background()); err != nil {
		f.logger.Error("restart failed", "error", err)
	}
}

// Handle returns the current process handle.
func (f *Fixture) Handle() fixture.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle
}

// PID returns the current process id, or 0 when not running.
func (f *Fixture) PID() int {
	if h := f.Handle(); h != nil {
		return h.PID()
	}
	return 0
}

// Running reports whether the current process is alive.
func (f *Fixture) Running() bool {
	h := f.Handle()
	if h == nil {
		return false
	}
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}

// Restart stops the current process and starts a new one with the same
// command and directory.
func (f *Fixture) Restart(ctx context.Context) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return errors.New("fixture stopped")
	}
	old := f.handle
	f.handle = nil
	f.mu.Unlock()

	if old != nil {
		if err := f.env.Supervisor.Stop(ctx, Name, old); err != nil {
			return err
		}
	}
	if err := f.start(ctx); err != nil {
		return err
	}
	f.logger.Info("fixture restarted", "pid", f.PID())
	return f.advertise()
}

// Stop terminates the process and withdraws the advertisement. The
// fixture cannot be restarted afterwards.
func (f *Fixture) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.stopped = true
	h := f.handle
	f.mu.Unlock()

	f.stopAux()
	if h == nil {
		return nil
	}
	return f.env.Supervisor.Stop(ctx, Name, h)
}

func (f *Fixture) stopAux() {
	f.mu.Lock()
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	if f.advertiser != nil {
		f.advertiser.Stop()
	}
}
