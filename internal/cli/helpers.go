package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dagctl/dagctl/internal/config"
	"github.com/dagctl/dagctl/internal/runlock"
)

// resolveHome returns the effective --home value: the flag if given,
// otherwise cfg's default.
func resolveHome(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Home
}

// loadConfig loads the project config relative to the current directory,
// used to seed defaults (max-parallel, fail-fast, stale-lock threshold)
// when a flag isn't explicitly set.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}
	return config.Load(cwd)
}

// staleAfter converts a config's stale-lock threshold to a duration,
// falling back to runlock.DefaultStaleAfter if unset.
func staleAfter(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Lock.StaleAfterSec <= 0 {
		return runlock.DefaultStaleAfter
	}
	return time.Duration(cfg.Lock.StaleAfterSec) * time.Second
}

// bestEffortReadNotice briefly attempts to acquire the run lock purely to
// detect whether a writer currently holds it, then releases immediately —
// readers never hold the lock while reading. On persistent failure to
// acquire, it prints a one-line notice that the view may be stale and
// proceeds anyway, per §4.E's degraded-read contract for observer
// commands.
func bestEffortReadNotice(runDir string, cfg *config.Config) {
	threshold := staleAfter(cfg)
	const attempts = 3
	for i := 0; i < attempts; i++ {
		lock, err := runlock.Acquire(runDir, threshold)
		if err == nil {
			_ = lock.Release()
			return
		}
		if i < attempts-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	fmt.Fprintln(os.Stderr, "warning: run is locked by another process; showing a possibly stale view")
}
