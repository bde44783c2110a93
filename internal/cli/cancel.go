package cli

import (
	"fmt"
	"os"

	"github.com/dagctl/dagctl/internal/cancelsignal"
	"github.com/dagctl/dagctl/internal/display"
	"github.com/dagctl/dagctl/internal/runid"
	"github.com/spf13/cobra"
)

var cancelHome string

var cancelCmd = &cobra.Command{
	Use:   "cancel <run_id>",
	Short: "Request cooperative cancellation of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doCancel(args[0])
	},
}

func init() {
	cancelCmd.Flags().StringVar(&cancelHome, "home", "", "orchestrator home directory (default from config, else ~/.dagctl)")
	rootCmd.AddCommand(cancelCmd)
}

func doCancel(runIDArg string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	home := resolveHome(cancelHome, cfg)
	dir := runid.NewDir(home, runIDArg)

	if _, err := os.Stat(dir.Root); err != nil {
		return fmt.Errorf("run %s not found under %s: %w", runIDArg, home, err)
	}

	if err := cancelsignal.Request(dir.Root); err != nil {
		return fmt.Errorf("cannot request cancellation: %w", err)
	}

	display.New().Info("cancel", fmt.Sprintf("requested for run %s", runIDArg))
	return nil
}
