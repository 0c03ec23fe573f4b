package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fboranek/mocksetup/pkg/log"
)

// ViewOptions are the raw flag values of the events view command.
type ViewOptions struct {
	RunID     string
	Action    string
	Kind      string
	TimeStart string
	TimeEnd   string
}

// Filter converts the options to a log.Filter.
func (o ViewOptions) Filter() (log.Filter, error) {
	f := log.Filter{RunID: o.RunID, Action: o.Action}
	if o.Kind != "" {
		k, ok := log.ParseKind(o.Kind)
		if !ok {
			return f, fmt.Errorf("invalid kind: %s", o.Kind)
		}
		f.Kind = &k
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// RunView prints the events of a log file that match filter.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one line per event, plus an indented error line.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
	fmt.Fprintf(w, "%s [run:%s] %-10s %s", ts, shortID(event.RunID), event.Kind, event.Action)

	switch event.Kind {
	case log.KindStepBegin:
		fmt.Fprintf(w, " stage=%s", event.Detail)
	case log.KindStepEnd:
		fmt.Fprintf(w, " duration=%s", event.Duration.Round(time.Millisecond))
	case log.KindCommand:
		fmt.Fprintf(w, " %q", strings.Join(event.Command, " "))
		if event.ExitCode != nil {
			fmt.Fprintf(w, " exit=%d", *event.ExitCode)
		}
	case log.KindConfig:
		if c := event.Config; c != nil {
			state := "added"
			if !c.Added {
				state = "present"
			}
			fmt.Fprintf(w, " %s += %s (%s)", c.Key, c.Value, state)
		}
	case log.KindSpawn:
		fmt.Fprintf(w, " pid=%d %q", event.PID, strings.Join(event.Command, " "))
		if event.Detail != "" {
			fmt.Fprintf(w, " dir=%s", event.Detail)
		}
	case log.KindExit:
		fmt.Fprintf(w, " pid=%d", event.PID)
		if event.ExitCode != nil {
			fmt.Fprintf(w, " exit=%d", *event.ExitCode)
		}
	case log.KindTerminate:
		fmt.Fprintf(w, " pid=%d", event.PID)
	}
	fmt.Fprintln(w)

	if event.Error != "" {
		fmt.Fprintf(w, "    error: %s\n", event.Error)
	}
}

// shortID returns the first 8 characters of a run id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
