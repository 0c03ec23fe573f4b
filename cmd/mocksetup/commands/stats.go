package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fboranek/mocksetup/pkg/log"
)

// Stats holds aggregate statistics about an event log.
type Stats struct {
	TotalEvents  int
	EventsByKind map[log.Kind]int
	Runs         map[string]*RunStats
	TimeRange    struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats holds statistics for a single run.
type RunStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Commands  int
	Spawns    int
	Failed    bool
}

// CollectStats reads every event of the log file.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByKind: make(map[log.Kind]int),
		Runs:         make(map[string]*RunStats),
	}
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByKind[event.Kind]++
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		run, ok := stats.Runs[event.RunID]
		if !ok {
			run = &RunStats{FirstSeen: event.Timestamp}
			stats.Runs[event.RunID] = run
		}
		run.Events++
		run.LastSeen = event.Timestamp
		switch event.Kind {
		case log.KindCommand:
			run.Commands++
		case log.KindSpawn:
			run.Spawns++
		case log.KindError:
			run.Failed = true
		}
	}
	return stats, nil
}

// RunStatsCommand prints statistics about the log file.
func RunStatsCommand(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	formatStats(w, stats)
	return nil
}

func formatStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}
	fmt.Fprintf(w, "Time range: %s - %s (%s)\n",
		stats.TimeRange.Start.UTC().Format(time.RFC3339),
		stats.TimeRange.End.UTC().Format(time.RFC3339),
		stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))

	fmt.Fprintln(w, "\nBy kind:")
	kinds := make([]log.Kind, 0, len(stats.EventsByKind))
	for k := range stats.EventsByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-10s %d\n", k, stats.EventsByKind[k])
	}

	fmt.Fprintf(w, "\nRuns: %d\n", len(stats.Runs))
	ids := make([]string, 0, len(stats.Runs))
	for id := range stats.Runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Runs[ids[i]].FirstSeen.Before(stats.Runs[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		r := stats.Runs[id]
		status := "ok"
		if r.Failed {
			status = "failed"
		}
		fmt.Fprintf(w, "  %s  events=%d commands=%d spawns=%d %s\n",
			shortID(id), r.Events, r.Commands, r.Spawns, status)
	}
}
