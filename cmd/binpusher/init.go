package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/binpusher/internal/config"
)

var (
	initEndpoint string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "Remote store base URL")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Endpoint = initEndpoint

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	if cfg.Endpoint == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Set endpoint in the file or BINPUSHER_ENDPOINT before running")
	}
	return nil
}
