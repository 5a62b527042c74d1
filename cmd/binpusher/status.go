package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/binpusher/internal/store"
	"github.com/jgoulah/binpusher/internal/telemetry"
)

var statusBinID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the bin status currently held by the remote store",
	Long:  `Reads the bin status document back from the remote store, the same record the dashboard displays.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusBinID, "bin", "", "Bin identifier (default from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	binID := statusBinID
	if binID == "" {
		binID = cfg.GetBinID()
	}

	remote := store.New(cfg.Endpoint, cfg.GetHTTPTimeout())
	status, err := remote.GetBinStatus(cmd.Context(), binID)
	if err != nil {
		return fmt.Errorf("fetching status for %s: %w", binID, err)
	}

	out := cmd.OutOrStdout()
	if status == nil {
		fmt.Fprintf(out, "No status found for %s\n", binID)
		return nil
	}

	updated := status.LastUpdated
	if t, err := telemetry.ParseTimestamp(status.LastUpdated); err == nil {
		updated = fmt.Sprintf("%s (%s)", status.LastUpdated, humanize.Time(t))
	}

	fmt.Fprintf(out, "Bin:          %s\n", status.HouseID)
	fmt.Fprintf(out, "Fill level:   %d%%\n", status.FillLevel)
	fmt.Fprintf(out, "Status:       %s\n", status.Status)
	fmt.Fprintf(out, "Last updated: %s\n", updated)
	return nil
}
