package cli

import (
	"fmt"
	"os"

	"github.com/dagctl/dagctl/internal/logtail"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/spf13/cobra"
)

var (
	logsHome   string
	logsTask   string
	logsTail   int
	logsStream string
)

var logsCmd = &cobra.Command{
	Use:   "logs <run_id>",
	Short: "Tail a task's captured output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doLogs(args[0])
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsHome, "home", "", "orchestrator home directory (default from config, else ~/.dagctl)")
	logsCmd.Flags().StringVar(&logsTask, "task", "", "task id to read logs for (required)")
	logsCmd.Flags().IntVar(&logsTail, "tail", 50, "number of trailing lines to print")
	logsCmd.Flags().StringVar(&logsStream, "stream", "both", "which stream to print: out, err, or both")
	rootCmd.AddCommand(logsCmd)
}

func doLogs(runIDArg string) error {
	if logsTask == "" {
		return fmt.Errorf("--task is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	home := resolveHome(logsHome, cfg)
	dir := runid.NewDir(home, runIDArg)

	var lines []string
	switch logtail.Stream(logsStream) {
	case logtail.StreamOut:
		lines, err = logtail.Lines(dir.StdoutLogPath(logsTask), logsTail)
	case logtail.StreamErr:
		lines, err = logtail.Lines(dir.StderrLogPath(logsTask), logsTail)
	case logtail.StreamBoth:
		lines, err = logtail.Combined(dir.StdoutLogPath(logsTask), dir.StderrLogPath(logsTask), logsTail)
	default:
		return fmt.Errorf("--stream must be one of out, err, both (got %q)", logsStream)
	}
	if err != nil {
		return fmt.Errorf("cannot read logs for task %s: %w", logsTask, err)
	}

	for _, line := range lines {
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
