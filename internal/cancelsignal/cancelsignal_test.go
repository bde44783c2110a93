package cancelsignal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestAndObserve(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Requested(dir))
	require.NoError(t, Request(dir))
	assert.True(t, Requested(dir))
	// idempotent
	require.NoError(t, Request(dir))
	assert.True(t, Requested(dir))
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Clear(dir)) // clearing an absent marker is not an error
	require.NoError(t, Request(dir))
	require.NoError(t, Clear(dir))
	assert.False(t, Requested(dir))
}
