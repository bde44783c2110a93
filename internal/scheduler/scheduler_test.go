package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dagctl/dagctl/internal/cancelsignal"
	"github.com/dagctl/dagctl/internal/dag"
	"github.com/dagctl/dagctl/internal/plan"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/dagctl/dagctl/internal/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunDir(t *testing.T) runid.Dir {
	t.Helper()
	home := t.TempDir()
	dir := runid.NewDir(home, "run1")
	require.NoError(t, os.MkdirAll(dir.LogsDir(), 0755))
	require.NoError(t, os.MkdirAll(dir.ArtifactsDir(), 0755))
	return dir
}

func freshRunState(spec *plan.Spec, maxParallel int, failFast bool) *runstate.RunState {
	tasks := make(map[string]runstate.TaskState, len(spec.Tasks))
	for _, t := range spec.Tasks {
		tasks[t.ID] = runstate.TaskState{Status: runstate.TaskPending}
	}
	now := time.Now()
	return &runstate.RunState{
		RunID:       "run1",
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      runstate.RunRunning,
		Goal:        spec.Goal,
		MaxParallel: maxParallel,
		FailFast:    failFast,
		Tasks:       tasks,
	}
}

func taskSpec(id, shellCmd string, deps ...string) plan.TaskSpec {
	return plan.TaskSpec{ID: id, Argv: []string{"/bin/sh", "-c", shellCmd}, DependsOn: deps}
}

func run(t *testing.T, spec *plan.Spec, state *runstate.RunState, dir runid.Dir) *runstate.RunState {
	t.Helper()
	graph := dag.Build(spec)
	s := New(spec, graph, state, dir, Options{MaxParallel: state.MaxParallel, FailFast: state.FailFast, Workdir: dir.Root}, func(rs *runstate.RunState) error {
		return runstate.Save(dir.Root, rs)
	})
	s.Prepare()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	return state
}

func TestLinearSuccess(t *testing.T) {
	spec := &plan.Spec{Tasks: []plan.TaskSpec{
		taskSpec("a", "exit 0"),
		taskSpec("b", "exit 0", "a"),
	}}
	dir := newRunDir(t)
	state := freshRunState(spec, 2, false)

	run(t, spec, state, dir)

	assert.Equal(t, runstate.RunSuccess, state.Status)
	assert.Equal(t, runstate.TaskSuccess, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskSuccess, state.Tasks["b"].Status)
}

func TestSkipPropagation(t *testing.T) {
	spec := &plan.Spec{Tasks: []plan.TaskSpec{
		taskSpec("a", "exit 1"),
		taskSpec("b", "exit 0", "a"),
	}}
	dir := newRunDir(t)
	state := freshRunState(spec, 2, false)

	run(t, spec, state, dir)

	assert.Equal(t, runstate.RunFailed, state.Status)
	assert.Equal(t, runstate.TaskFailed, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskSkipped, state.Tasks["b"].Status)
	assert.Equal(t, "dependency_failed:a", state.Tasks["b"].SkipReason)
}

func TestRetryRecovers(t *testing.T) {
	dir := newRunDir(t)
	marker := filepath.Join(dir.Root, "attempts")

	spec := &plan.Spec{Tasks: []plan.TaskSpec{
		{
			ID:      "flaky",
			Argv:    []string{"/bin/sh", "-c", "test -f " + marker + " && exit 0 || { touch " + marker + "; exit 1; }"},
			Retries: 1,
		},
	}}
	state := freshRunState(spec, 1, false)

	run(t, spec, state, dir)

	assert.Equal(t, runstate.RunSuccess, state.Status)
	assert.Equal(t, 2, state.Tasks["flaky"].Attempts)
}

func TestFailFastSkipsUnstarted(t *testing.T) {
	spec := &plan.Spec{Tasks: []plan.TaskSpec{
		taskSpec("a", "exit 1"),
		taskSpec("b", "exit 0"),
	}}
	dir := newRunDir(t)
	state := freshRunState(spec, 1, true)

	run(t, spec, state, dir)

	assert.Equal(t, runstate.RunFailed, state.Status)
	assert.Equal(t, runstate.TaskFailed, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskSkipped, state.Tasks["b"].Status)
}

func TestCancelMidRun(t *testing.T) {
	spec := &plan.Spec{Tasks: []plan.TaskSpec{
		taskSpec("a", "sleep 5"),
		taskSpec("b", "exit 0", "a"),
	}}
	dir := newRunDir(t)
	state := freshRunState(spec, 1, false)

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = cancelsignal.Request(dir.Root)
	}()

	run(t, spec, state, dir)

	assert.Equal(t, runstate.RunCanceled, state.Status)
	assert.Equal(t, runstate.TaskCanceled, state.Tasks["a"].Status)
	assert.Equal(t, runstate.TaskCanceled, state.Tasks["b"].Status)
}

func TestResumePreservesSuccess(t *testing.T) {
	spec := &plan.Spec{Tasks: []plan.TaskSpec{
		taskSpec("a", "exit 0"),
	}}
	dir := newRunDir(t)
	state := freshRunState(spec, 1, false)
	now := time.Now()
	state.Tasks["a"] = runstate.TaskState{Status: runstate.TaskSuccess, StartedAt: &now, EndedAt: &now}

	run(t, spec, state, dir)

	assert.Equal(t, runstate.RunSuccess, state.Status)
	assert.Equal(t, runstate.TaskSuccess, state.Tasks["a"].Status)
}
