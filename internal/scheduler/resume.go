package scheduler

import (
	"strings"

	"github.com/dagctl/dagctl/internal/runstate"
)

// ResetForResume rewinds a reloaded RunState in place so the next
// Prepare+Run call re-admits the right set of tasks under the resume
// rules: a SUCCESS task is never touched. With failedOnly, only tasks
// currently FAILED — or RUNNING, since a task observed RUNNING in a
// reloaded state was left behind by an interrupted process and is
// equivalent to a failed attempt — are reset to PENDING, plus any SKIPPED
// task whose skip_reason traces transitively back to one of them, since
// skip propagation must unwind the same way it was applied. Call this
// before Scheduler.Prepare: by the time Prepare runs its own
// RUNNING-to-FAILED rewrite, ResetForResume has already turned those
// tasks into PENDING, so Prepare's fail-fast scan only observes the
// tasks that remain genuinely FAILED after the reset. Without
// failedOnly, every non-SUCCESS task is reset.
func ResetForResume(state *runstate.RunState, failedOnly bool) {
	if !failedOnly {
		for id, ts := range state.Tasks {
			if ts.Status != runstate.TaskSuccess {
				state.Tasks[id] = pendingTask()
			}
		}
		return
	}

	resetIDs := make(map[string]bool)
	for id, ts := range state.Tasks {
		if ts.Status == runstate.TaskFailed || ts.Status == runstate.TaskRunning {
			resetIDs[id] = true
		}
	}

	for {
		changed := false
		for id, ts := range state.Tasks {
			if resetIDs[id] || ts.Status != runstate.TaskSkipped {
				continue
			}
			if dep := dependencyFromSkipReason(ts.SkipReason); dep != "" && resetIDs[dep] {
				resetIDs[id] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for id := range resetIDs {
		state.Tasks[id] = pendingTask()
	}
}

func pendingTask() runstate.TaskState {
	return runstate.TaskState{Status: runstate.TaskPending}
}

func dependencyFromSkipReason(reason string) string {
	const prefix = "dependency_failed:"
	if strings.HasPrefix(reason, prefix) {
		return reason[len(prefix):]
	}
	return ""
}
