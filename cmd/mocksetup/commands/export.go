package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fboranek/mocksetup/pkg/log"
)

// jsonEvent is the JSONL shape of an event, with the kind by name.
type jsonEvent struct {
	Timestamp string            `json:"timestamp"`
	RunID     string            `json:"run_id"`
	Action    string            `json:"action,omitempty"`
	Kind      string            `json:"kind"`
	Command   []string          `json:"command,omitempty"`
	ExitCode  *int              `json:"exit_code,omitempty"`
	PID       int               `json:"pid,omitempty"`
	Duration  string            `json:"duration,omitempty"`
	Config    *log.ConfigChange `json:"config,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// RunExport writes the matching events as JSON lines.
func RunExport(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		je := jsonEvent{
			Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
			RunID:     event.RunID,
			Action:    event.Action,
			Kind:      event.Kind.String(),
			Command:   event.Command,
			ExitCode:  event.ExitCode,
			PID:       event.PID,
			Config:    event.Config,
			Detail:    event.Detail,
			Error:     event.Error,
		}
		if event.Duration > 0 {
			je.Duration = event.Duration.String()
		}
		if err := encoder.Encode(je); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}
