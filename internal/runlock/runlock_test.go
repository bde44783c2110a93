package runlock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir, DefaultStaleAfter)
	require.NoError(t, err)
	assert.True(t, IsHeld(dir, DefaultStaleAfter))
	require.NoError(t, lock.Release())
	assert.False(t, IsHeld(dir, DefaultStaleAfter))
}

func TestAcquireFailsWhileHeld(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir, DefaultStaleAfter)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Acquire(dir, DefaultStaleAfter)
	assert.Error(t, err)
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, ".lock")
	require.NoError(t, os.WriteFile(lockPath, []byte("ancient-token"), 0644))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	lock, err := Acquire(dir, time.Hour)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestReleaseRefusesForeignToken(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir, DefaultStaleAfter)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(lock.path, []byte("someone-else"), 0644))
	assert.Error(t, lock.Release())
}
