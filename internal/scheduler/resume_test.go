package scheduler

import (
	"testing"

	"github.com/dagctl/dagctl/internal/runstate"
	"github.com/stretchr/testify/assert"
)

func TestResetForResumeFailedOnlyPropagatesThroughSkips(t *testing.T) {
	state := &runstate.RunState{Tasks: map[string]runstate.TaskState{
		"a": {Status: runstate.TaskFailed},
		"b": {Status: runstate.TaskSkipped, SkipReason: "dependency_failed:a"},
		"c": {Status: runstate.TaskSkipped, SkipReason: "dependency_failed:b"},
		"d": {Status: runstate.TaskSuccess},
		"e": {Status: runstate.TaskCanceled, SkipReason: "run_canceled"},
	}}

	ResetForResume(state, true)

	assert.Equal(t, runstate.TaskPending, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskPending, state.Tasks["b"].Status)
	assert.Equal(t, runstate.TaskPending, state.Tasks["c"].Status)
	assert.Equal(t, runstate.TaskSuccess, state.Tasks["d"].Status)
	assert.Equal(t, runstate.TaskCanceled, state.Tasks["e"].Status)
}

func TestResetForResumeFailedOnlyTreatsInterruptedRunningAsFailed(t *testing.T) {
	state := &runstate.RunState{Tasks: map[string]runstate.TaskState{
		"a": {Status: runstate.TaskRunning, Attempts: 1},
		"b": {Status: runstate.TaskSkipped, SkipReason: "dependency_failed:a"},
	}}

	ResetForResume(state, true)

	assert.Equal(t, runstate.TaskPending, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskPending, state.Tasks["b"].Status)
}

func TestResetForResumeFullResetsEveryNonSuccess(t *testing.T) {
	state := &runstate.RunState{Tasks: map[string]runstate.TaskState{
		"a": {Status: runstate.TaskFailed},
		"b": {Status: runstate.TaskSkipped, SkipReason: "dependency_failed:a"},
		"c": {Status: runstate.TaskSuccess},
		"d": {Status: runstate.TaskCanceled, SkipReason: "run_canceled"},
	}}

	ResetForResume(state, false)

	assert.Equal(t, runstate.TaskPending, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskPending, state.Tasks["b"].Status)
	assert.Equal(t, runstate.TaskSuccess, state.Tasks["c"].Status)
	assert.Equal(t, runstate.TaskPending, state.Tasks["d"].Status)
}
