// Package cli assembles the dagctl command tree: run, resume, status,
// logs, cancel, and validate, each a thin cobra wrapper around the
// execution engine.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set by goreleaser via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dagctl",
	Short: "Run and supervise DAGs of subprocess tasks",
	Long: `dagctl executes a plan — a DAG of subprocess invocations — with
bounded parallelism, durable run state, streamed log capture, per-task
timeout and retry, and crash-safe resumption.

Core commands:
  dagctl validate plan.yaml          Check a plan without running it
  dagctl run plan.yaml                Execute a plan, creating a new run
  dagctl resume <run_id>               Resume an interrupted or failed run
  dagctl status <run_id>               Show a run's task table
  dagctl logs <run_id> --task <id>      Tail a task's captured output
  dagctl cancel <run_id>                Request cooperative cancellation`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCodeError carries the precise process exit code an error should
// produce, per the contract in §6 of the spec (2 = plan error, 3 = task
// failure/skip, 4 = canceled).
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: code, err: err}
}

// Execute runs the command tree and returns the process exit code: 0 on
// success, the code carried by an exitCodeError, or 1 for any other
// error.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			fmt.Fprintln(os.Stderr, "Error:", ec.err)
			return ec.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("dagctl version %s\n", Version))
}
