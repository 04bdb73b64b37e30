package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/comalice/hsm/internal/config"
	"github.com/comalice/hsm/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "arena",
		Short:         "Arena is a wave-survival demo driven by a hierarchical state machine",
		Long:          `Arena plays a scripted session (fight, shop, die, restart) on a fixed-tick driver and reports every state change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("config", "", "Path to a YAML config file")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(), newGraphCmd(), newVersionCmd())
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config and applies the flags that were set on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if f := flags.Lookup("ticks"); f != nil && f.Changed {
		cfg.MaxTicks, _ = flags.GetInt("ticks")
	}
	if f := flags.Lookup("tick-rate"); f != nil && f.Changed {
		cfg.TickRate, _ = flags.GetDuration("tick-rate")
	}
	if f := flags.Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}
