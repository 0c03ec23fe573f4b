// Package commands implements the mocksetup CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/fboranek/mocksetup/pkg/action"
	"github.com/fboranek/mocksetup/pkg/fixture"
	"github.com/fboranek/mocksetup/pkg/history"
	"github.com/fboranek/mocksetup/pkg/log"
	"github.com/fboranek/mocksetup/pkg/mocksetup"
	"github.com/fboranek/mocksetup/pkg/project"
	"github.com/fboranek/mocksetup/pkg/shell"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// ConfigPath is the action config file. Empty uses defaults.
	ConfigPath string

	// ProjectPath is the project file read before and saved after the run.
	ProjectPath string

	// BaseDir is the source root that fixture_dir is relative to. Empty
	// means the current directory.
	BaseDir string

	// Stage is the pipeline stage the action runs in.
	Stage action.Stage

	// EventsPath, when set, receives the CBOR event log.
	EventsPath string

	// HistoryPath, when set, records the run in a SQLite database.
	HistoryPath string

	// DryRun logs commands and the fixture launch instead of running them.
	DryRun bool

	Logger        *slog.Logger
	FixtureOutput io.Writer

	// Runner and Spawner replace the os/exec implementations.
	Runner  shell.Runner
	Spawner fixture.Spawner
}

// Session is one setup run with everything it owns.
type Session struct {
	Env    *action.Env
	Action *mocksetup.Action

	opts    SessionOptions
	events  *log.FileLogger
	history *history.Store
	runErr  error
}

// NewSession loads the configuration and builds the environment. Close
// must be called to release the fixture and the event sinks.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stage == "" {
		opts.Stage = action.StagePreBuild
	}

	cfg := mocksetup.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := mocksetup.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if opts.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		opts.BaseDir = wd
	}

	proj := project.New("")
	if opts.ProjectPath != "" {
		p, err := project.Load(opts.ProjectPath)
		if err != nil {
			return nil, fmt.Errorf("load project: %w", err)
		}
		proj = p
	}

	s := &Session{opts: opts}
	sinks := []log.Logger{log.NewSlogAdapter(opts.Logger)}

	if opts.EventsPath != "" {
		fl, err := log.NewFileLogger(opts.EventsPath)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		s.events = fl
		sinks = append(sinks, fl)
	}
	if opts.HistoryPath != "" {
		store, err := history.Open(opts.HistoryPath, history.WithLogger(opts.Logger))
		if err != nil {
			s.closeSinks()
			return nil, err
		}
		s.history = store
		sinks = append(sinks, store)
	}

	runner := opts.Runner
	if runner == nil {
		runner = &shell.ExecRunner{Logger: opts.Logger, DryRun: opts.DryRun}
	}
	spawner := opts.Spawner
	if spawner == nil && opts.DryRun {
		spawner = &fixture.DryRunSpawner{Logger: opts.Logger}
	}
	if opts.DryRun {
		// Nothing listens or has a pid to advertise.
		cfg.ReadyAddr = ""
		cfg.Advertise = false
	}

	s.Action = mocksetup.New(cfg)
	runID := uuid.New().String()
	events := log.Tee(sinks...)
	s.Env = (&action.Env{
		Shell:   runner,
		Project: proj,
		Spawner: spawner,
		Supervisor: fixture.NewSupervisor(fixture.SupervisorConfig{
			Grace:  cfg.KillGrace,
			RunID:  runID,
			Events: events,
			Logger: opts.Logger,
		}),
		Events:        events,
		Logger:        opts.Logger,
		RunID:         runID,
		BaseDir:       opts.BaseDir,
		FixtureOutput: opts.FixtureOutput,
	}).Init()
	env := s.Env

	if s.history != nil {
		err := s.history.CreateRun(&history.Run{
			ID:      env.RunID,
			Project: proj.Name(),
			Stage:   string(opts.Stage),
		})
		if err != nil {
			s.closeSinks()
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	return s, nil
}

// Run executes the stage and saves the project file. The fixture keeps
// running until Close.
func (s *Session) Run(ctx context.Context) error {
	err := action.RunStage(ctx, s.Env, s.opts.Stage, s.Action)
	if err == nil && s.opts.ProjectPath != "" {
		if saveErr := s.Env.Project.Save(s.opts.ProjectPath); saveErr != nil {
			err = fmt.Errorf("save project: %w", saveErr)
		}
	}
	if err == nil && s.history != nil {
		if pidErr := s.history.SetFixturePID(s.Env.RunID, s.FixturePID()); pidErr != nil {
			s.opts.Logger.Warn("record fixture pid", "error", pidErr)
		}
	}
	s.runErr = err
	return err
}

// Check installs and probes the dependencies only.
func (s *Session) Check(ctx context.Context) error {
	s.runErr = s.Action.Check(ctx, s.Env)
	return s.runErr
}

// Fixture returns the running fixture, or nil.
func (s *Session) Fixture() *mocksetup.Fixture {
	return s.Action.Fixture()
}

// FixturePID returns the fixture's pid, or 0.
func (s *Session) FixturePID() int {
	if f := s.Fixture(); f != nil {
		return f.PID()
	}
	return 0
}

// Close terminates the fixture, completes the history record and closes
// the event log.
func (s *Session) Close(ctx context.Context) error {
	errs := []error{s.Env.Supervisor.Close(ctx)}
	if s.history != nil {
		errs = append(errs, s.history.CompleteRun(s.Env.RunID, s.FixturePID(), s.runErr))
	}
	errs = append(errs, s.closeSinks())
	return errors.Join(errs...)
}

func (s *Session) closeSinks() error {
	var errs []error
	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	return errors.Join(errs...)
}
