package runstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshState(runID string) *RunState {
	now := time.Now()
	return &RunState{
		RunID:       runID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      RunRunning,
		Goal:        "build and test",
		MaxParallel: 2,
		Tasks: map[string]TaskState{
			"build": {Status: TaskPending},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := freshState("r1")

	require.NoError(t, Save(dir, want))
	got, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Tasks["build"].Status, got.Tasks["build"].Status)

	// temp file must not linger after a successful save
	_, err = os.Stat(filepath.Join(dir, "state.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejectsInvalidState(t *testing.T) {
	dir := t.TempDir()
	bad := freshState("")
	err := Save(dir, bad)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"),
		[]byte(`{"run_id":"r1","status":"RUNNING","max_parallel":1,"tasks":{},"bogus":true}`), 0644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownStatus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"),
		[]byte(`{"run_id":"r1","status":"WEIRD","max_parallel":1,"tasks":{}}`), 0644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestRunningTaskRequiresStart(t *testing.T) {
	s := freshState("r1")
	s.Tasks["build"] = TaskState{Status: TaskRunning}
	assert.Error(t, s.Validate())
}

func TestSuccessRequiresAllTasksSuccess(t *testing.T) {
	s := freshState("r1")
	s.Status = RunSuccess
	assert.Error(t, s.Validate())
}
