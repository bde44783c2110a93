package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dagctl/dagctl/internal/display"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/dagctl/dagctl/internal/runstate"
	"github.com/spf13/cobra"
)

var (
	statusHome string
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status <run_id>",
	Short: "Show a run's task table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doStatus(args[0])
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusHome, "home", "", "orchestrator home directory (default from config, else ~/.dagctl)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw state snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

func doStatus(runIDArg string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	home := resolveHome(statusHome, cfg)
	dir := runid.NewDir(home, runIDArg)

	bestEffortReadNotice(dir.Root, cfg)

	state, err := runstate.Load(dir.Root)
	if err != nil {
		return fmt.Errorf("cannot load run state: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	disp := display.New()
	disp.RunSummary(state)
	disp.TaskTable(state)
	return nil
}
