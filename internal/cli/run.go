package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dagctl/dagctl/internal/dag"
	"github.com/dagctl/dagctl/internal/display"
	"github.com/dagctl/dagctl/internal/plan"
	"github.com/dagctl/dagctl/internal/report"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/dagctl/dagctl/internal/runlock"
	"github.com/dagctl/dagctl/internal/runstate"
	"github.com/dagctl/dagctl/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	runMaxParallel int
	runHome        string
	runWorkdir     string
	runFailFast    bool
	runNoFailFast  bool
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Execute a plan, creating a new run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doRun(args[0])
	},
}

func init() {
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "maximum tasks running concurrently (default from the plan, then config, else 4)")
	runCmd.Flags().StringVar(&runHome, "home", "", "orchestrator home directory (default from config, else ~/.dagctl)")
	runCmd.Flags().StringVar(&runWorkdir, "workdir", "", "default working directory for tasks (default: current directory)")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop admitting new tasks after the first failure")
	runCmd.Flags().BoolVar(&runNoFailFast, "no-fail-fast", false, "allow independent branches to continue after a failure")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "validate the plan and print topological order without executing")
	rootCmd.AddCommand(runCmd)
}

func doRun(planPath string) error {
	spec, err := plan.Load(planPath)
	if err != nil {
		return withExitCode(2, err)
	}

	graph := dag.Build(spec)

	if runDryRun {
		return printDryRun(graph)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	workdir := runWorkdir
	if workdir == "" {
		workdir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot determine working directory: %w", err)
		}
	}

	home := resolveHome(runHome, cfg)
	maxParallel := runMaxParallel
	if maxParallel <= 0 {
		maxParallel = spec.MaxParallel
	}
	if maxParallel <= 0 {
		maxParallel = cfg.Run.MaxParallel
	}
	failFast := spec.FailFastOr(cfg.Run.FailFast)
	if runFailFast {
		failFast = true
	}
	if runNoFailFast {
		failFast = false
	}

	now := time.Now()
	runID := runid.New(now)
	dir := runid.NewDir(home, runID)

	if err := os.MkdirAll(dir.LogsDir(), 0755); err != nil {
		return fmt.Errorf("cannot create run directory: %w", err)
	}
	if err := os.MkdirAll(dir.ArtifactsDir(), 0755); err != nil {
		return fmt.Errorf("cannot create artifacts directory: %w", err)
	}
	if err := os.MkdirAll(dir.ReportDir(), 0755); err != nil {
		return fmt.Errorf("cannot create report directory: %w", err)
	}

	if err := copyFile(planPath, dir.PlanPath()); err != nil {
		return fmt.Errorf("cannot freeze plan copy: %w", err)
	}

	lock, err := runlock.Acquire(dir.Root, staleAfter(cfg))
	if err != nil {
		return fmt.Errorf("cannot start run: %w", err)
	}
	defer lock.Release()

	state := freshRunState(spec, runID, now, home, workdir, maxParallel, failFast)
	if err := runstate.Save(dir.Root, state); err != nil {
		return fmt.Errorf("cannot persist initial state: %w", err)
	}

	return execute(spec, graph, state, dir, maxParallel, failFast, workdir)
}

func freshRunState(spec *plan.Spec, runID string, now time.Time, home, workdir string, maxParallel int, failFast bool) *runstate.RunState {
	tasks := make(map[string]runstate.TaskState, len(spec.Tasks))
	for _, t := range spec.Tasks {
		tasks[t.ID] = runstate.TaskState{Status: runstate.TaskPending}
	}
	return &runstate.RunState{
		RunID:       runID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      runstate.RunRunning,
		Goal:        spec.Goal,
		PlanRelpath: "plan.yaml",
		Home:        home,
		Workdir:     workdir,
		MaxParallel: maxParallel,
		FailFast:    failFast,
		Tasks:       tasks,
	}
}

// newScheduler constructs a Scheduler bound to dir's save function, without
// starting it — callers that need to reset resume state before Prepare
// use this directly instead of execute.
func newScheduler(spec *plan.Spec, graph *dag.Graph, state *runstate.RunState, dir runid.Dir, maxParallel int, failFast bool, workdir string) *scheduler.Scheduler {
	return scheduler.New(spec, graph, state, dir, scheduler.Options{
		MaxParallel: maxParallel,
		FailFast:    failFast,
		Workdir:     workdir,
	}, func(s *runstate.RunState) error {
		return runstate.Save(dir.Root, s)
	})
}

// execute drives the scheduler to completion, writes the final report, and
// translates the terminal run status into the process exit code.
func execute(spec *plan.Spec, graph *dag.Graph, state *runstate.RunState, dir runid.Dir, maxParallel int, failFast bool, workdir string) error {
	sched := newScheduler(spec, graph, state, dir, maxParallel, failFast, workdir)
	sched.Prepare()
	return runToCompletion(sched, state, dir)
}

// runToCompletion starts an already-Prepare'd scheduler, writes the final
// report, and translates the terminal run status into the process exit
// code.
func runToCompletion(sched *scheduler.Scheduler, state *runstate.RunState, dir runid.Dir) error {
	disp := display.New()
	disp.Info("run", state.RunID)

	if err := sched.Run(context.Background()); err != nil {
		return fmt.Errorf("run %s aborted: %w", state.RunID, err)
	}

	if err := writeReport(dir, state); err != nil {
		disp.Warning(fmt.Sprintf("cannot write report: %v", err))
	}

	disp.RunSummary(state)
	disp.TaskTable(state)

	return exitForRunStatus(state)
}

func exitForRunStatus(state *runstate.RunState) error {
	switch state.Status {
	case runstate.RunSuccess:
		return nil
	case runstate.RunCanceled:
		return withExitCode(4, fmt.Errorf("run %s was canceled", state.RunID))
	default:
		return withExitCode(3, fmt.Errorf("run %s finished with status %s", state.RunID, state.Status))
	}
}

func writeReport(dir runid.Dir, state *runstate.RunState) error {
	return os.WriteFile(dir.ReportPath(), []byte(report.Render(state)), 0644)
}

func printDryRun(graph *dag.Graph) error {
	waves, err := graph.Waves()
	if err != nil {
		return withExitCode(2, err)
	}
	for i, wave := range waves {
		fmt.Printf("wave %d: %v\n", i, wave)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
