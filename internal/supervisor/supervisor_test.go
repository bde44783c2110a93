package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInput(t *testing.T, argv []string) Input {
	t.Helper()
	dir := t.TempDir()
	return Input{
		Argv:       argv,
		Cwd:        dir,
		StdoutPath: filepath.Join(dir, "out.log"),
		StderrPath: filepath.Join(dir, "err.log"),
		Attempt:    1,
		MaxAttempt: 1,
	}
}

func TestRunSuccess(t *testing.T) {
	in := newInput(t, []string{"/bin/sh", "-c", "echo hello; exit 0"})
	result, err := Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.False(t, result.TimedOut)
	assert.False(t, result.Canceled)

	out, _ := os.ReadFile(in.StdoutPath)
	assert.Contains(t, string(out), "hello")
	assert.Contains(t, string(out), "attempt 1 / 1")
}

func TestRunNonZeroExit(t *testing.T) {
	in := newInput(t, []string{"/bin/sh", "-c", "exit 7"})
	result, err := Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 7, *result.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	in := newInput(t, []string{"/bin/sh", "-c", "sleep 30"})
	in.Timeout = 100 * time.Millisecond

	start := time.Now()
	result, err := Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
	assert.Nil(t, result.ExitCode)
	assert.Less(t, time.Since(start), terminateGrace+5*time.Second)
}

func TestRunCancel(t *testing.T) {
	in := newInput(t, []string{"/bin/sh", "-c", "sleep 30"})
	cancel := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(cancel)
	}()

	result, err := Run(context.Background(), in, cancel)
	require.NoError(t, err)
	assert.True(t, result.Canceled)
	assert.Nil(t, result.ExitCode)
}

func TestCollectArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("data"), 0644))

	artifactDir := filepath.Join(t.TempDir(), "artifacts", "task")
	in := Input{
		Argv:        []string{"/bin/sh", "-c", "true"},
		Cwd:         dir,
		StdoutPath:  filepath.Join(dir, "out.log"),
		StderrPath:  filepath.Join(dir, "err.log"),
		Attempt:     1,
		MaxAttempt:  1,
		Outputs:     []string{"*.txt"},
		ArtifactDir: artifactDir,
	}

	result, err := Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"out.txt"}, result.ArtifactPaths)

	copied, err := os.ReadFile(filepath.Join(artifactDir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(copied))
}
