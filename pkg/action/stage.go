package action

import (
	"context"
	"fmt"
	"time"

	"github.com/fboranek/mocksetup/pkg/log"
)

// Stage is a phase of the build pipeline.
type Stage string

// Build pipeline stages, in execution order.
const (
	StagePreBuild  Stage = "pre_build_steps"
	StageBuild     Stage = "build_steps"
	StagePostBuild Stage = "post_build_steps"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StagePreBuild, StageBuild, StagePostBuild}

// ParseStage accepts a stage name with or without the _steps suffix.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if s == string(st) || s+"_steps" == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// StepError reports the action that aborted a stage.
type StepError struct {
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// RunStage runs actions in order and stops at the first failure. Failures
// are not retried.
func RunStage(ctx context.Context, env *Env, stage Stage, actions ...Action) error {
	env.Init()
	logger := env.Logger.With("stage", string(stage), "run_id", env.RunID)

	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return &StepError{Action: a.Name(), Err: err}
		}

		name := a.Name()
		env.Events.Log(log.Event{
			Timestamp: time.Now(),
			RunID:     env.RunID,
			Action:    name,
			Kind:      log.KindStepBegin,
			Detail:    string(stage),
		})
		logger.Info("step started", "action", name)

		start := time.Now()
		err := a.Run(ctx, env)
		elapsed := time.Since(start)

		if err != nil {
			env.Events.Log(log.Event{
				Timestamp: time.Now(),
				RunID:     env.RunID,
				Action:    name,
				Kind:      log.KindError,
				Duration:  elapsed,
				Detail:    string(stage),
				Error:     err.Error(),
			})
			logger.Error("step failed", "action", name, "error", err)
			return &StepError{Action: name, Err: err}
		}

		env.Events.Log(log.Event{
			Timestamp: time.Now(),
			RunID:     env.RunID,
			Action:    name,
			Kind:      log.KindStepEnd,
			Duration:  elapsed,
			Detail:    string(stage),
		})
		logger.Info("step finished", "action", name, "duration", elapsed)
	}
	return nil
}
