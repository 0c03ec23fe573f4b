package action

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fboranek/mocksetup/pkg/fixture"
	"github.com/fboranek/mocksetup/pkg/log"
	"github.com/fboranek/mocksetup/pkg/project"
	"github.com/fboranek/mocksetup/pkg/shell"
)

// Action is a single build pipeline step.
type Action interface {
	// Name returns the registered name of the action.
	Name() string

	// Run performs the step. A returned error aborts the stage.
	Run(ctx context.Context, env *Env) error
}

// Env is the build environment handed to actions.
type Env struct {
	// Shell runs commands. Defaults to a shell.ExecRunner.
	Shell shell.Runner

	// Project is the configuration consumed by the downstream build.
	Project *project.Config

	// Spawner starts fixture processes. Defaults to fixture.ProcessSpawner.
	Spawner fixture.Spawner

	// Supervisor owns spawned fixtures until its scope closes.
	Supervisor *fixture.Supervisor

	// Events receives the setup event log.
	Events log.Logger

	// Logger is the operational logger.
	Logger *slog.Logger

	// RunID identifies this run in events and history.
	RunID string

	// BaseDir anchors relative paths used by actions.
	BaseDir string

	// FixtureOutput receives fixture stdout and stderr. Nil leaves them on
	// the parent's stdout and stderr.
	FixtureOutput io.Writer
}

// NewEnv returns an Env for p with defaults for every capability.
func NewEnv(p *project.Config) *Env {
	return (&Env{Project: p}).Init()
}

// Init fills unset fields with defaults and returns e. The supervisor is
// created last so it picks up the run id and loggers.
func (e *Env) Init() *Env {
	if e.RunID == "" {
		e.RunID = uuid.New().String()
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	e.Events = log.OrNoop(e.Events)
	if e.Shell == nil {
		e.Shell = &shell.ExecRunner{Logger: e.Logger}
	}
	if e.Project == nil {
		e.Project = project.New("")
	}
	if e.Spawner == nil {
		e.Spawner = fixture.NewProcessSpawner()
	}
	if e.Supervisor == nil {
		e.Supervisor = fixture.NewSupervisor(fixture.SupervisorConfig{
			RunID:  e.RunID,
			Events: e.Events,
			Logger: e.Logger,
		})
	}
	if e.BaseDir == "" {
		e.BaseDir = "."
	}
	return e
}

// Resolve returns path relative to BaseDir unless it is already absolute.
func (e *Env) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.BaseDir, path)
}

// Exec runs a command through Shell on behalf of the named action and
// records it. Any non-zero exit is returned as an error.
func (e *Env) Exec(ctx context.Context, actionName, name string, args ...string) (*shell.Result, error) {
	res, err := e.Shell.Exec(ctx, name, args...)
	err = shell.Check(res, err)

	ev := log.Event{
		Timestamp: time.Now(),
		RunID:     e.RunID,
		Action:    actionName,
		Kind:      log.KindCommand,
		Command:   append([]string{name}, args...),
	}
	if res != nil {
		ev.ExitCode = log.IntPtr(res.ExitCode)
		ev.Duration = res.Duration
	}
	if err != nil {
		ev.Error = err.Error()
	}
	e.Events.Log(ev)

	e.Logger.Debug("command finished", "action", actionName,
		"command", strings.Join(ev.Command, " "), "error", err)
	return res, err
}

// AppendConfig appends value to the project config list key unless it is
// already present, and records the change. It reports whether the value
// was added.
func (e *Env) AppendConfig(actionName, key, value string) bool {
	added := e.Project.AppendOnce(key, value)
	e.Events.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     e.RunID,
		Action:    actionName,
		Kind:      log.KindConfig,
		Config:    &log.ConfigChange{Key: key, Value: value, Added: added},
	})
	if added {
		e.Logger.Info("config updated", "key", key, "value", value)
	}
	return added
}

// Spawn starts a fixture and places it under the supervisor. If the
// supervisor is already closed the fixture is stopped again and the error
// returned.
func (e *Env) Spawn(ctx context.Context, actionName string, spec fixture.Spec) (fixture.Handle, error) {
	if spec.Name == "" {
		spec.Name = actionName
	}
	h, err := e.Spawner.Spawn(ctx, spec)
	if err != nil {
		e.Events.Log(log.Event{
			Timestamp: time.Now(),
			RunID:     e.RunID,
			Action:    actionName,
			Kind:      log.KindError,
			Command:   spec.Argv(),
			Error:     err.Error(),
		})
		return nil, err
	}

	e.Events.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     e.RunID,
		Action:    actionName,
		Kind:      log.KindSpawn,
		Command:   h.Command(),
		PID:       h.PID(),
		Detail:    spec.Dir,
	})
	if err := e.Supervisor.Track(spec.Name, h); err != nil {
		return nil, err
	}
	return h, nil
}
