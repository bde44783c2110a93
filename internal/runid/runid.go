// Package runid generates and parses run identifiers and computes the
// on-disk layout of a run directory.
package runid

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// New returns a fresh run id of the form YYYYMMDD_HHMMSS_xxxxxx, where the
// suffix is six hex characters drawn from a fresh UUID's low bits.
func New(now time.Time) string {
	u := uuid.New()
	suffix := fmt.Sprintf("%02x%02x%02x", u[13], u[14], u[15])
	return fmt.Sprintf("%s_%s", now.Format("20060102_150405"), suffix)
}

// Token returns a short opaque string suitable for identifying the holder
// of a run lock. It carries no meaning beyond uniqueness.
func Token() string {
	return uuid.New().String()
}

// Dir is the set of paths that make up a run directory.
type Dir struct {
	Root string
}

// NewDir returns the Dir for runID under home.
func NewDir(home, runID string) Dir {
	return Dir{Root: filepath.Join(home, "runs", runID)}
}

func (d Dir) PlanPath() string       { return filepath.Join(d.Root, "plan.yaml") }
func (d Dir) StatePath() string      { return filepath.Join(d.Root, "state.json") }
func (d Dir) LockPath() string       { return filepath.Join(d.Root, ".lock") }
func (d Dir) CancelPath() string     { return filepath.Join(d.Root, "cancel.request") }
func (d Dir) LogsDir() string        { return filepath.Join(d.Root, "logs") }
func (d Dir) ArtifactsDir() string   { return filepath.Join(d.Root, "artifacts") }
func (d Dir) ReportDir() string      { return filepath.Join(d.Root, "report") }
func (d Dir) ReportPath() string     { return filepath.Join(d.Root, "report", "final_report.md") }
func (d Dir) TaskArtifactDir(taskID string) string {
	return filepath.Join(d.ArtifactsDir(), taskID)
}
func (d Dir) StdoutLogPath(taskID string) string {
	return filepath.Join(d.LogsDir(), taskID+".out.log")
}
func (d Dir) StderrLogPath(taskID string) string {
	return filepath.Join(d.LogsDir(), taskID+".err.log")
}
