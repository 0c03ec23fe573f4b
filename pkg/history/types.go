package history

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one invocation of a setup stage.
type Run struct {
	ID          string
	Project     string
	Stage       string
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
	FixturePID  int
	Error       string
}

// Duration returns the run time, or zero while the run is in progress.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond)
}

// Step is one action executed by a run.
type Step struct {
	RunID    string
	Action   string
	Status   string
	Duration time.Duration
	Error    string
}
