package cli

import (
	"fmt"

	"github.com/dagctl/dagctl/internal/cancelsignal"
	"github.com/dagctl/dagctl/internal/dag"
	"github.com/dagctl/dagctl/internal/plan"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/dagctl/dagctl/internal/runlock"
	"github.com/dagctl/dagctl/internal/runstate"
	"github.com/dagctl/dagctl/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	resumeHome        string
	resumeMaxParallel int
	resumeFailedOnly  bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run_id>",
	Short: "Resume an interrupted or failed run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doResume(args[0])
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeHome, "home", "", "orchestrator home directory (default from config, else ~/.dagctl)")
	resumeCmd.Flags().IntVar(&resumeMaxParallel, "max-parallel", 0, "override the run's recorded max-parallel")
	resumeCmd.Flags().BoolVar(&resumeFailedOnly, "failed-only", false, "only re-eligible previously-FAILED tasks, not every non-SUCCESS task")
	rootCmd.AddCommand(resumeCmd)
}

func doResume(runIDArg string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	home := resolveHome(resumeHome, cfg)
	dir := runid.NewDir(home, runIDArg)

	lock, err := runlock.Acquire(dir.Root, staleAfter(cfg))
	if err != nil {
		return fmt.Errorf("cannot resume run: %w", err)
	}
	defer lock.Release()

	spec, err := plan.Load(dir.PlanPath())
	if err != nil {
		return withExitCode(2, fmt.Errorf("frozen plan copy is invalid: %w", err))
	}
	graph := dag.Build(spec)

	state, err := runstate.Load(dir.Root)
	if err != nil {
		return fmt.Errorf("cannot load run state: %w", err)
	}

	if err := cancelsignal.Clear(dir.Root); err != nil {
		return fmt.Errorf("cannot clear stale cancel marker: %w", err)
	}

	maxParallel := resumeMaxParallel
	if maxParallel <= 0 {
		maxParallel = state.MaxParallel
	}
	state.MaxParallel = maxParallel
	state.Status = runstate.RunRunning

	// Reset before Prepare: ResetForResume already treats an interrupted
	// RUNNING task as failed, so Prepare's own RUNNING-to-FAILED rewrite
	// and fail-fast scan only see the tasks that remain FAILED afterward.
	scheduler.ResetForResume(state, resumeFailedOnly)

	sched := newScheduler(spec, graph, state, dir, maxParallel, state.FailFast, state.Workdir)
	sched.Prepare()

	return runToCompletion(sched, state, dir)
}
