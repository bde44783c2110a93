// Package report renders a human-readable Markdown summary of a finished
// run, grounded on the teacher's regexp-templated markdown state updates.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dagctl/dagctl/internal/runstate"
)

// Render produces the contents of report/final_report.md for state.
func Render(state *runstate.RunState) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run %s\n\n", state.RunID)
	fmt.Fprintf(&sb, "**Goal:** %s\n\n", state.Goal)
	fmt.Fprintf(&sb, "**Status:** %s\n\n", state.Status)

	if !state.CreatedAt.IsZero() && !state.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "**Duration:** %s\n\n", state.UpdatedAt.Sub(state.CreatedAt).Round(time.Second))
	}

	counts := state.CountByStatus()
	fmt.Fprintf(&sb, "**Tasks:** %d success, %d failed, %d skipped, %d canceled\n\n",
		counts[runstate.TaskSuccess], counts[runstate.TaskFailed], counts[runstate.TaskSkipped], counts[runstate.TaskCanceled])

	ids := make([]string, 0, len(state.Tasks))
	for id := range state.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sb.WriteString("| Task | Status | Attempts | Duration (s) | Exit Code |\n")
	sb.WriteString("|------|--------|----------|---------------|-----------|\n")
	for _, id := range ids {
		ts := state.Tasks[id]
		duration := "-"
		if ts.DurationSec != nil {
			duration = fmt.Sprintf("%.1f", *ts.DurationSec)
		}
		exitCode := "-"
		if ts.ExitCode != nil {
			exitCode = fmt.Sprintf("%d", *ts.ExitCode)
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %s | %s |\n", id, ts.Status, ts.Attempts, duration, exitCode)
	}
	sb.WriteString("\n")

	if first := firstFailure(state, ids); first != "" {
		fmt.Fprintf(&sb, "**First failure:** %s\n", first)
	}

	return sb.String()
}

func firstFailure(state *runstate.RunState, ids []string) string {
	for _, id := range ids {
		ts := state.Tasks[id]
		if ts.Status == runstate.TaskFailed {
			reason := "non-zero exit"
			if ts.TimedOut {
				reason = "timed out"
			}
			return fmt.Sprintf("%s (%s)", id, reason)
		}
	}
	return ""
}
