package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fboranek/mocksetup/pkg/log"
)

func TestRunExportJSONL(t *testing.T) {
	path := writeEvents(t, sampleRun("run-1", testTime)...)

	var buf bytes.Buffer
	if err := RunExport(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	var lines []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	if lines[0]["kind"] != "STEP_BEGIN" {
		t.Errorf("first kind = %v", lines[0]["kind"])
	}
	if lines[1]["exit_code"] != float64(0) {
		t.Errorf("exit_code = %v, want 0", lines[1]["exit_code"])
	}
	if lines[5]["duration"] != "50ms" {
		t.Errorf("duration = %v, want 50ms", lines[5]["duration"])
	}
}
