// Package cancelsignal implements the single-writer/single-reader
// cancellation rendezvous between the `cancel` command and a running
// scheduler, using a marker file's mere presence as the signal.
package cancelsignal

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const markerName = "cancel.request"

// Request creates the cancellation marker in runDir. Creating it twice is
// not an error — cancellation is idempotent.
func Request(runDir string) error {
	path := filepath.Join(runDir, markerName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "cannot create cancel marker")
	}
	return f.Close()
}

// Requested reports whether cancellation has been requested for runDir.
func Requested(runDir string) bool {
	_, err := os.Stat(filepath.Join(runDir, markerName))
	return err == nil
}

// Clear removes the cancellation marker, if present. A resume supersedes
// a prior cancellation rather than honoring a stale marker left over from
// the interrupted run.
func Clear(runDir string) error {
	err := os.Remove(filepath.Join(runDir, markerName))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "cannot clear cancel marker")
	}
	return nil
}
