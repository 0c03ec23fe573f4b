package log

import (
	"context"
	"log/slog"
	"strings"
)

// SlogAdapter writes events to an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given
// slog.Logger at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter logging at the given level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("kind", event.Kind.String()),
	}

	if event.Action != "" {
		attrs = append(attrs, slog.String("action", event.Action))
	}
	if len(event.Command) > 0 {
		attrs = append(attrs, slog.String("command", strings.Join(event.Command, " ")))
	}
	if event.ExitCode != nil {
		attrs = append(attrs, slog.Int("exit_code", *event.ExitCode))
	}
	if event.PID != 0 {
		attrs = append(attrs, slog.Int("pid", event.PID))
	}
	if event.Duration != 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if event.Config != nil {
		attrs = append(attrs,
			slog.String("config_key", event.Config.Key),
			slog.String("config_value", event.Config.Value),
			slog.Bool("added", event.Config.Added),
		)
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	a.logger.LogAttrs(context.Background(), a.level, "setup event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
