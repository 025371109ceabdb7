// Package stats aggregates counts across a session's persisted log parts for
// the informational statistics view.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/edulog/edulog/internal/record"
)

var partPattern = regexp.MustCompile(`^(.+)_part(\d+)\.json$`)

// Summary holds aggregated activity counts for a set of log parts.
type Summary struct {
	Parts      int
	Students   []string
	Sessions   []string
	Edits      int
	Keystrokes int
	Errors     int
	Executions int // execution_end records, i.e. completed runs
	Failures   int // completed runs with a non-zero exit code
	RuntimeMS  int64
}

// Collect reads every log part in dir and aggregates its latest snapshot.
// Parts of the same target supersede each other, so only the highest part
// number of each target contributes its (cumulative) counts.
func Collect(dir string) (Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("reading log directory: %w", err)
	}

	// Pick the highest-numbered part per target; each part is a full
	// snapshot of the state at write time, so the last one wins.
	latest := map[string]string{}
	latestNum := map[string]int{}
	total := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := partPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		total++
		var n int
		fmt.Sscanf(m[2], "%d", &n)
		if n > latestNum[m[1]] {
			latestNum[m[1]] = n
			latest[m[1]] = filepath.Join(dir, e.Name())
		}
	}

	sum := Summary{Parts: total}
	students := map[string]bool{}
	sessions := map[string]bool{}

	for _, path := range latest {
		data, err := os.ReadFile(path)
		if err != nil {
			continue // unreadable part: skip, stay informational
		}
		var snap record.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		students[snap.StudentID] = true
		sessions[snap.SessionID] = true
		for _, entry := range snap.EditLog {
			if entry.Key != nil {
				sum.Keystrokes++
			} else {
				sum.Edits++
			}
		}
		sum.Errors += len(snap.ErrorLog)
		for _, ex := range snap.ExecutionLog {
			if ex.Event != record.ExecutionEnd {
				continue
			}
			sum.Executions++
			sum.RuntimeMS += ex.DurationMS
			if ex.ExitCode != nil && *ex.ExitCode != 0 {
				sum.Failures++
			}
		}
	}

	for s := range students {
		sum.Students = append(sum.Students, s)
	}
	for s := range sessions {
		sum.Sessions = append(sum.Sessions, s)
	}
	sort.Strings(sum.Students)
	sort.Strings(sum.Sessions)
	return sum, nil
}

// String renders the summary as the plain-text statistics report.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Log parts:   %d\n", s.Parts)
	fmt.Fprintf(&b, "Students:    %s\n", orNone(s.Students))
	fmt.Fprintf(&b, "Sessions:    %d\n", len(s.Sessions))
	fmt.Fprintf(&b, "Edits:       %d\n", s.Edits)
	fmt.Fprintf(&b, "Keystrokes:  %d\n", s.Keystrokes)
	fmt.Fprintf(&b, "Errors:      %d\n", s.Errors)
	fmt.Fprintf(&b, "Executions:  %d (%d failed)\n", s.Executions, s.Failures)
	fmt.Fprintf(&b, "Run time:    %dms\n", s.RuntimeMS)
	return b.String()
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
