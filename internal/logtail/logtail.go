// Package logtail reads the trailing lines of the append-only log files a
// task supervisor writes, without loading the whole file into memory —
// the "tail-read of large log files" half of the run-id/path utilities
// component.
package logtail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// chunkSize is how far back we seek at a time while scanning for newlines.
const chunkSize = 64 * 1024

// Lines returns the last n lines of the file at path. A file shorter than
// n lines returns its entire content. n <= 0 returns nil. The file is
// read back-to-front in fixed-size chunks so the cost is bounded by the
// requested tail, not the file's total size.
func Lines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	var (
		pos        = size
		newlines   = 0
		buf        []byte
		chunk      = make([]byte, chunkSize)
		wantExtra  = 1 // allow for a trailing newline not counting as an extra line
	)

	for pos > 0 && newlines < n+wantExtra {
		readSize := int64(chunkSize)
		if readSize > pos {
			readSize = pos
		}
		pos -= readSize

		if _, err := f.ReadAt(chunk[:readSize], pos); err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		buf = append(append([]byte(nil), chunk[:readSize]...), buf...)
		newlines = bytes.Count(buf, []byte{'\n'})
	}

	// Trim a single trailing newline so it doesn't register as a blank
	// final line.
	trimmed := bytes.TrimSuffix(buf, []byte{'\n'})

	lines := splitLines(trimmed)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func splitLines(buf []byte) []string {
	if len(buf) == 0 {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Stream is which log stream(s) a caller wants interleaved.
type Stream string

const (
	StreamOut  Stream = "out"
	StreamErr  Stream = "err"
	StreamBoth Stream = "both"
)

// taggedLine is one line tagged with the stream it came from, used when
// both out and err are requested.
type taggedLine struct {
	stream Stream
	text   string
}

// Combined returns the last n lines across stdout and stderr logs. Since
// the two streams are independent, byte-exact wall-clock interleaving
// isn't recoverable from the files alone; lines are grouped by source and
// ordered so the stream whose last write is older appears first (stdout
// first on a tie or when either file is missing), a close approximation
// useful for a human skimming combined output. A missing log file
// contributes no lines.
func Combined(stdoutPath, stderrPath string, n int) ([]string, error) {
	outLines, err := Lines(stdoutPath, n)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	errLines, err := Lines(stderrPath, n)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	outTagged := make([]taggedLine, 0, len(outLines))
	for _, l := range outLines {
		outTagged = append(outTagged, taggedLine{stream: StreamOut, text: "[out] " + l})
	}
	errTagged := make([]taggedLine, 0, len(errLines))
	for _, l := range errLines {
		errTagged = append(errTagged, taggedLine{stream: StreamErr, text: "[err] " + l})
	}

	tagged := append(outTagged, errTagged...)
	outInfo, outErr := os.Stat(stdoutPath)
	errInfo, errErr := os.Stat(stderrPath)
	if outErr == nil && errErr == nil && errInfo.ModTime().Before(outInfo.ModTime()) {
		tagged = append(errTagged, outTagged...)
	}

	result := make([]string, 0, len(tagged))
	for _, tl := range tagged {
		result = append(result, tl.text)
	}
	if len(result) > n {
		result = result[len(result)-n:]
	}
	return result, nil
}
