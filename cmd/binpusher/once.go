package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sample-and-publish cycle",
	Long:  `Samples the sensors once, publishes the bin status and waste log entry, and exits. Exits non-zero if the cycle fails.`,
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out, closeOut := openOutput(cfg, cmd.OutOrStdout())
	defer closeOut()

	loop, cleanup, err := buildLoop(cfg, out)
	if err != nil {
		return err
	}
	defer cleanup()

	cycle, err := loop.Cycle(cmd.Context())
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	loop.Report(cycle)
	if cycle.LogKey != "" {
		fmt.Fprintf(out, "Waste log key: %s\n", cycle.LogKey)
	}
	return nil
}
