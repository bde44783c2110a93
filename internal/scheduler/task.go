package scheduler

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dagctl/dagctl/internal/runstate"
	"github.com/dagctl/dagctl/internal/supervisor"
)

// runTask drives one task through its full attempt/retry lifecycle and
// records the terminal outcome. It runs as one of dispatch's g.Go
// goroutines; its return value is the infrastructure error (if any) from
// persisting state, which errgroup threads through to Run's g.Wait().
func (s *Scheduler) runTask(ctx context.Context, id string, cancelCh <-chan struct{}) error {
	defer s.releaseSlot(id)

	spec := s.tasksByID[id]
	maxAttempts := 1 + spec.Retries
	cwd := resolveCwd(s.opts.Workdir, spec.Cwd)

	var timeout time.Duration
	if spec.TimeoutSec != nil {
		timeout = time.Duration(*spec.TimeoutSec * float64(time.Second))
	}

	var last supervisor.Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.markRunning(id, attempt); err != nil {
			return err
		}

		in := supervisor.Input{
			Argv:                spec.Argv,
			Cwd:                 cwd,
			Env:                 spec.Env,
			Timeout:             timeout,
			StdoutPath:          s.dir.StdoutLogPath(id),
			StderrPath:          s.dir.StderrLogPath(id),
			Attempt:             attempt,
			MaxAttempt:          maxAttempts,
			Outputs:             spec.Outputs,
			ArtifactDir:         s.dir.TaskArtifactDir(id),
			ExternalArtifactDir: s.externalArtifactDir(id),
		}

		result, err := supervisor.Run(ctx, in, cancelCh)
		last = result
		if err != nil {
			// failure to even start the process: treated as a failed attempt
			last.ExitCode = nil
		}

		if result.Canceled {
			return s.markTerminal(id, runstate.TaskCanceled, last)
		}

		success := last.ExitCode != nil && *last.ExitCode == 0 && !result.TimedOut
		if success {
			return s.markTerminal(id, runstate.TaskSuccess, last)
		}

		if attempt < maxAttempts {
			delay := backoffFor(spec.RetryBackoffSec, attempt-1)
			if delay > 0 {
				timer := time.NewTimer(time.Duration(delay * float64(time.Second)))
				select {
				case <-timer.C:
				case <-cancelCh:
					timer.Stop()
					return s.markTerminal(id, runstate.TaskCanceled, last)
				case <-ctx.Done():
					timer.Stop()
					return nil
				}
			}
			continue
		}

		return s.markTerminal(id, runstate.TaskFailed, last)
	}
	return nil
}

// backoffFor returns the delay, in seconds, before the attempt following
// the 0-indexed attempt idx. An idx beyond the configured list repeats the
// last entry; an empty list means no delay.
func backoffFor(list []float64, idx int) float64 {
	if len(list) == 0 {
		return 0
	}
	if idx < len(list) {
		return list[idx]
	}
	return list[len(list)-1]
}

func (s *Scheduler) externalArtifactDir(id string) string {
	if s.spec.ArtifactsDir == "" {
		return ""
	}
	return joinIfRelative(s.opts.Workdir, s.spec.ArtifactsDir, id)
}

func (s *Scheduler) markRunning(id string, attempt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.state.Tasks[id]
	ts.Status = runstate.TaskRunning
	ts.Attempts = attempt
	if ts.StartedAt == nil {
		now := time.Now()
		ts.StartedAt = &now
	}
	if ts.StdoutPath == "" {
		ts.StdoutPath = s.dir.StdoutLogPath(id)
		ts.StderrPath = s.dir.StderrLogPath(id)
	}
	s.state.Tasks[id] = ts
	return s.persistLocked()
}

func (s *Scheduler) markTerminal(id string, status runstate.TaskStatus, result supervisor.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.state.Tasks[id]
	now := time.Now()
	ts.Status = status
	ts.EndedAt = &now
	if ts.StartedAt != nil {
		d := now.Sub(*ts.StartedAt).Seconds()
		ts.DurationSec = &d
	}
	ts.ExitCode = result.ExitCode
	ts.TimedOut = result.TimedOut
	ts.Canceled = result.Canceled
	if len(result.ArtifactPaths) > 0 {
		ts.ArtifactPaths = result.ArtifactPaths
	}
	if status == runstate.TaskCanceled {
		ts.SkipReason = "run_canceled"
	}
	s.state.Tasks[id] = ts

	if status == runstate.TaskFailed && s.opts.FailFast {
		s.failFastHalted = true
	}

	err := s.persistLocked()

	select {
	case s.done <- struct{}{}:
	default:
	}

	return err
}

func (s *Scheduler) releaseSlot(id string) {
	s.mu.Lock()
	s.inFlight--
	delete(s.taskCancel, id)
	s.mu.Unlock()
}

// resolveCwd resolves a task's cwd against the run's workdir: empty
// defers to workdir itself, relative paths join onto it, absolute paths
// pass through unchanged — matching how relative plan paths are
// documented to resolve against the CLI-provided --workdir.
func resolveCwd(workdir, cwd string) string {
	if cwd == "" {
		return workdir
	}
	if filepath.IsAbs(cwd) {
		return cwd
	}
	return filepath.Join(workdir, cwd)
}

func joinIfRelative(workdir, base, id string) string {
	if base == "" {
		return ""
	}
	if filepath.IsAbs(base) {
		return filepath.Join(base, id)
	}
	return filepath.Join(workdir, base, id)
}
