package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func TestLinesShorterThanRequest(t *testing.T) {
	path := writeLines(t, 3)
	lines, err := Lines(path, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 1", "line 2", "line 3"}, lines)
}

func TestLinesTailOnly(t *testing.T) {
	path := writeLines(t, 100)
	lines, err := Lines(path, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 96", "line 97", "line 98", "line 99", "line 100"}, lines)
}

func TestLinesSpanningMultipleChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.log")
	var sb strings.Builder
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&sb, "entry-%06d some padding text to grow the file\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))

	lines, err := Lines(path, 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "entry-019997 some padding text to grow the file", lines[0])
	assert.Equal(t, "entry-019999 some padding text to grow the file", lines[2])
}

func TestLinesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.log")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	lines, err := Lines(path, 5)
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestCombinedTagsEachStream(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "t.out.log")
	errPath := filepath.Join(dir, "t.err.log")
	require.NoError(t, os.WriteFile(outPath, []byte("stdout line\n"), 0644))
	require.NoError(t, os.WriteFile(errPath, []byte("stderr line\n"), 0644))

	lines, err := Combined(outPath, errPath, 10)
	require.NoError(t, err)
	assert.Contains(t, lines, "[out] stdout line")
	assert.Contains(t, lines, "[err] stderr line")
}
