// Package scheduler drives the DAG to completion: it admits ready tasks,
// bounds parallelism, dispatches each to the supervisor with retry and
// backoff, propagates failure as skips to dependents, and honors
// cooperative cancellation and fail-fast.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dagctl/dagctl/internal/cancelsignal"
	"github.com/dagctl/dagctl/internal/dag"
	"github.com/dagctl/dagctl/internal/plan"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/dagctl/dagctl/internal/runstate"
	"golang.org/x/sync/errgroup"
)

// pollInterval bounds how long the main loop can go without re-checking the
// cancellation marker when nothing else wakes it.
const pollInterval = 1 * time.Second

// Options configures one scheduler run.
type Options struct {
	MaxParallel int
	FailFast    bool
	Workdir     string
}

// Scheduler owns the mutable run state for the duration of one run and
// drives it to completion.
type Scheduler struct {
	spec  *plan.Spec
	graph *dag.Graph
	dir   runid.Dir
	opts  Options

	tasksByID map[string]plan.TaskSpec

	mu              sync.Mutex
	state           *runstate.RunState
	inFlight        int
	failFastHalted  bool
	cancelRequested bool
	taskCancel      map[string]chan struct{}

	done chan struct{}

	save func(*runstate.RunState) error
}

// New builds a Scheduler over an already-loaded plan, graph, and run state.
// save is called to persist state after every transition (usually
// runstate.Save bound to the run directory).
func New(spec *plan.Spec, graph *dag.Graph, state *runstate.RunState, dir runid.Dir, opts Options, save func(*runstate.RunState) error) *Scheduler {
	byID := make(map[string]plan.TaskSpec, len(spec.Tasks))
	for _, t := range spec.Tasks {
		byID[t.ID] = t
	}
	return &Scheduler{
		spec:       spec,
		graph:      graph,
		dir:        dir,
		opts:       opts,
		tasksByID:  byID,
		state:      state,
		taskCancel: make(map[string]chan struct{}),
		done:       make(chan struct{}, len(spec.Tasks)),
		save:       save,
	}
}

// Prepare rewrites any task left RUNNING by a previous, interrupted process
// into FAILED, and marks fail-fast halted if any task is already FAILED.
// Called once before the first scheduling pass, for both fresh runs and
// resumes.
func (s *Scheduler) Prepare() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, ts := range s.state.Tasks {
		if ts.Status == runstate.TaskRunning {
			ts.Status = runstate.TaskFailed
			ts.SkipReason = "previous_run_interrupted"
			ts.EndedAt = &now
			s.state.Tasks[id] = ts
		}
		if ts.Status == runstate.TaskFailed && s.opts.FailFast {
			s.failFastHalted = true
		}
	}
}

// Run drives the scheduler to completion, returning only an infrastructure
// error (a failed state save). A canceled ctx is not itself returned as an
// error. Task-level failures are reflected in the final RunState, not
// returned here.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for {
		s.mu.Lock()
		if !s.cancelRequested && cancelsignal.Requested(s.dir.Root) {
			s.cancelRequested = true
			for _, ch := range s.taskCancel {
				close(ch)
			}
		}

		changed := s.classifyReady()
		s.dispatch(g, ctx)
		allTerminal := s.state.AllTerminal()
		if changed {
			if err := s.persistLocked(); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.mu.Unlock()

		if allTerminal {
			break
		}

		select {
		case <-s.done:
		case <-time.After(pollInterval):
		case <-ctx.Done():
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.finalizeStatus()
	err := s.persistLocked()
	s.mu.Unlock()
	return err
}

// classifyReady first re-evaluates any task already sitting READY but not
// yet dispatched — a cancel or fail-fast halt that lands after such a task
// cleared its dependency check (typically because it was waiting on a
// max_parallel slot, not on a dependency) must still convert it to
// CANCELED/SKIPPED before dispatch can launch it. It then walks every
// PENDING task whose dependencies are all terminal and assigns it READY,
// SKIPPED, or CANCELED. Must be called with mu held. Returns whether any
// task state changed.
func (s *Scheduler) classifyReady() bool {
	changed := s.reviewReady()

	done := map[string]bool{}
	inFlight := map[string]bool{}
	for id, ts := range s.state.Tasks {
		if ts.Status.IsTerminal() {
			done[id] = true
		}
		if ts.Status == runstate.TaskRunning {
			inFlight[id] = true
		}
	}

	candidates := s.graph.Ready(done, inFlight)
	now := time.Now()

	for _, id := range candidates {
		ts := s.state.Tasks[id]
		if ts.Status != runstate.TaskPending {
			continue
		}

		switch {
		case s.cancelRequested:
			ts.Status = runstate.TaskCanceled
			ts.SkipReason = "run_canceled"
			ts.EndedAt = &now

		case s.failedDependency(id) != "":
			ts.Status = runstate.TaskSkipped
			ts.SkipReason = fmt.Sprintf("dependency_failed:%s", s.failedDependency(id))
			ts.EndedAt = &now

		case s.failFastHalted:
			ts.Status = runstate.TaskSkipped
			ts.SkipReason = "fail_fast_halted"
			ts.EndedAt = &now

		default:
			ts.Status = runstate.TaskReady
		}

		s.state.Tasks[id] = ts
		changed = true
	}

	return changed
}

// reviewReady converts any task still sitting READY — admitted but not yet
// claimed a dispatch slot — into CANCELED or SKIPPED once a cancel or
// fail-fast halt has landed, so dispatch never launches a task that should
// no longer run. Must be called with mu held.
func (s *Scheduler) reviewReady() bool {
	if !s.cancelRequested && !s.failFastHalted {
		return false
	}

	changed := false
	now := time.Now()
	for id, ts := range s.state.Tasks {
		if ts.Status != runstate.TaskReady {
			continue
		}

		if s.cancelRequested {
			ts.Status = runstate.TaskCanceled
			ts.SkipReason = "run_canceled"
		} else {
			ts.Status = runstate.TaskSkipped
			ts.SkipReason = "fail_fast_halted"
		}
		ts.EndedAt = &now
		s.state.Tasks[id] = ts
		changed = true
	}

	return changed
}

// failedDependency returns the id of the first non-SUCCESS, terminal
// dependency of id, or "" if all dependencies succeeded.
func (s *Scheduler) failedDependency(id string) string {
	for _, dep := range s.graph.DependsOn[id] {
		ts := s.state.Tasks[dep]
		if ts.Status != runstate.TaskSuccess {
			return dep
		}
	}
	return ""
}

// dispatch launches READY tasks while a parallelism slot is free, fanning
// each out through g so a hard infrastructure error (a state-save failure
// inside a task's attempt loop) cancels ctx and surfaces through g.Wait()
// in Run. Canceling ctx also kills the child processes of sibling tasks
// already in flight, since each attempt runs under exec.CommandContext.
// Must be called with mu held.
func (s *Scheduler) dispatch(g *errgroup.Group, ctx context.Context) {
	for _, id := range s.graph.Order {
		if s.inFlight >= s.opts.MaxParallel {
			return
		}
		ts := s.state.Tasks[id]
		if ts.Status != runstate.TaskReady {
			continue
		}

		ts.Status = runstate.TaskRunning
		if ts.Attempts < 1 {
			ts.Attempts = 1
		}
		if ts.StartedAt == nil {
			now := time.Now()
			ts.StartedAt = &now
		}
		s.state.Tasks[id] = ts
		s.inFlight++
		cancelCh := make(chan struct{})
		s.taskCancel[id] = cancelCh

		taskID := id
		g.Go(func() error {
			return s.runTask(ctx, taskID, cancelCh)
		})
	}
}

func (s *Scheduler) persistLocked() error {
	s.state.UpdatedAt = time.Now()
	return s.save(s.state)
}

// finalizeStatus computes the run-level status once no task is
// PENDING/READY/RUNNING. Must be called with mu held.
func (s *Scheduler) finalizeStatus() {
	if s.cancelRequested {
		s.state.Status = runstate.RunCanceled
		return
	}
	allSuccess := true
	for _, ts := range s.state.Tasks {
		if ts.Status != runstate.TaskSuccess {
			allSuccess = false
			break
		}
	}
	if allSuccess {
		s.state.Status = runstate.RunSuccess
		return
	}
	s.state.Status = runstate.RunFailed
}
