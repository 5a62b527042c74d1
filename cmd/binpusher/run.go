package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func runLoop(cmd *cobra.Command, args []string) error {
	// Load config
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, "Starting sensor push loop...")
	fmt.Fprintf(out, "Target: %s\n", cfg.Endpoint)

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "Shutting down...")
		return nil
	}
	return err
}
