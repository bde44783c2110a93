// Package config loads project-level orchestrator defaults from
// .dagctl/config.yaml, following the teacher's viper-plus-mapstructure
// load-then-merge-defaults pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the operator-tunable defaults that seed a run when a flag is
// not explicitly given on the command line.
type Config struct {
	Home string     `mapstructure:"home"`
	Run  RunConfig  `mapstructure:"run"`
	Lock LockConfig `mapstructure:"lock"`
}

// RunConfig contains scheduler defaults.
type RunConfig struct {
	MaxParallel int  `mapstructure:"max_parallel"`
	FailFast    bool `mapstructure:"fail_fast"`
}

// LockConfig contains run-lock defaults.
type LockConfig struct {
	StaleAfterSec int `mapstructure:"stale_after_sec"`
}

// Load reads .dagctl/config.yaml under workspaceDir, falling back to
// DefaultConfig if it doesn't exist.
func Load(workspaceDir string) (*Config, error) {
	configPath := filepath.Join(workspaceDir, ".dagctl", "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Home: filepath.Join(home, ".dagctl"),
		Run: RunConfig{
			MaxParallel: 4,
			FailFast:    false,
		},
		Lock: LockConfig{
			StaleAfterSec: 3600,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Home == "" {
		cfg.Home = defaults.Home
	}
	if cfg.Run.MaxParallel == 0 {
		cfg.Run.MaxParallel = defaults.Run.MaxParallel
	}
	if cfg.Lock.StaleAfterSec == 0 {
		cfg.Lock.StaleAfterSec = defaults.Lock.StaleAfterSec
	}
}
