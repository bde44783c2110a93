package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dagctl/dagctl/internal/dag"
	"github.com/dagctl/dagctl/internal/plan"
	"github.com/spf13/cobra"
)

var validateWorkdir string

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Validate a plan and print topological order without creating a run directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doValidate(args[0])
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateWorkdir, "workdir", "", "working directory relative paths in the plan resolve against")
	rootCmd.AddCommand(validateCmd)
}

func doValidate(planPath string) error {
	spec, err := plan.Load(planPath)
	if err != nil {
		return withExitCode(2, err)
	}

	workdir := validateWorkdir
	if workdir == "" {
		workdir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot determine working directory: %w", err)
		}
	}

	if err := checkTaskDirs(spec, workdir); err != nil {
		return withExitCode(2, err)
	}

	graph := dag.Build(spec)
	return printDryRun(graph)
}

// checkTaskDirs resolves every task's cwd against workdir, the same way
// the scheduler does at run time, and confirms it exists — catching a
// missing directory before a run ever starts.
func checkTaskDirs(spec *plan.Spec, workdir string) error {
	for _, t := range spec.Tasks {
		cwd := t.Cwd
		if cwd == "" {
			cwd = workdir
		} else if !filepath.IsAbs(cwd) {
			cwd = filepath.Join(workdir, cwd)
		}
		info, err := os.Stat(cwd)
		if err != nil {
			return fmt.Errorf("task %s: cwd %s: %w", t.ID, cwd, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("task %s: cwd %s is not a directory", t.ID, cwd)
		}
	}
	return nil
}
