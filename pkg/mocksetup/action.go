package mocksetup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fboranek/mocksetup/pkg/action"
)

// Name is the registered action name.
const Name = "mock-server-setup"

// Action is the mock-server-setup build step.
type Action struct {
	cfg Config

	mu      sync.Mutex
	fixture *Fixture
}

// New creates the action. Unset config fields take their defaults.
func New(cfg Config) *Action {
	cfg.applyDefaults()
	return &Action{cfg: cfg}
}

// Register adds the action to r under Name.
func Register(r *action.Registry) error {
	return r.Register(Name, func(data []byte) (action.Action, error) {
		cfg, err := ParseConfig(data)
		if err != nil {
			return nil, err
		}
		return New(*cfg), nil
	})
}

// Name implements action.Action.
func (a *Action) Name() string { return Name }

// Config returns the effective configuration.
func (a *Action) Config() Config { return a.cfg }

// Run installs and verifies the dependencies, enables the test suite in
// the project config and starts the fixture under env.Supervisor.
func (a *Action) Run(ctx context.Context, env *action.Env) error {
	if err := a.Check(ctx, env); err != nil {
		return err
	}

	env.AppendConfig(Name, a.cfg.ConfigKey, a.cfg.Flag)

	f, err := a.launch(ctx, env)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.fixture = f
	a.mu.Unlock()
	return nil
}

// Check installs the packages and runs the import probe. Nothing else is
// touched.
func (a *Action) Check(ctx context.Context, env *action.Env) error {
	install := append([]string{"-m", "pip", "install"}, a.cfg.Packages...)
	if _, err := env.Exec(ctx, Name, a.cfg.Interpreter, install...); err != nil {
		return fmt.Errorf("%w: %w", ErrInstall, err)
	}
	if _, err := env.Exec(ctx, Name, a.cfg.Interpreter, "-c", a.cfg.ProbeScript()); err != nil {
		return fmt.Errorf("%w: %w", ErrImportProbe, err)
	}
	env.Logger.Info("fixture dependencies ready", "packages", a.cfg.Packages)
	return nil
}

// Fixture returns the fixture started by Run, or nil.
func (a *Action) Fixture() *Fixture {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fixture
}

func (a *Action) launch(ctx context.Context, env *action.Env) (*Fixture, error) {
	dir := env.Resolve(a.cfg.FixtureDir)
	script := filepath.Join(dir, a.cfg.FixtureScript)
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixtureMissing, err)
	}

	f := newFixture(env, a.cfg, dir)
	if err := f.start(ctx); err != nil {
		return nil, err
	}
	if err := f.startAux(); err != nil {
		_ = f.Stop(ctx)
		return nil, err
	}
	return f, nil
}

var _ action.Action = (*Action)(nil)
