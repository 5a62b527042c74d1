package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled cycles",
	Long:  `Displays the cycles recorded in the local journal, newest first.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Number of cycles to show (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open database
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	cycles, err := db.ListCycles(listLimit)
	if err != nil {
		return fmt.Errorf("listing cycles: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(cycles) == 0 {
		fmt.Fprintln(out, "No cycles found")
		return nil
	}

	fmt.Fprintln(out, "------------------------------------------------------------------")
	fmt.Fprintf(out, "%-16s  %-6s  %5s  %-8s  %-10s  %6s  %s\n", "When", "Bin", "Fill", "Status", "Type", "kg", "Result")
	fmt.Fprintln(out, "------------------------------------------------------------------")

	for _, c := range cycles {
		result := "✓"
		if !c.Published {
			result = "FAILED: " + c.Error
		}
		fmt.Fprintf(out, "%-16s  %-6s  %4d%%  %-8s  %-10s  %6.2f  %s\n",
			humanize.Time(c.SampledAt), c.Status.HouseID, c.Status.FillLevel, c.Status.Status,
			c.Log.WasteType, c.Log.Weight, result)
	}

	stats, err := db.Stats()
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	fmt.Fprintln(out, "------------------------------------------------------------------")
	fmt.Fprintf(out, "Total: %s cycles (%s published, %s failed)\n",
		humanize.Comma(int64(stats.Total)), humanize.Comma(int64(stats.Published)), humanize.Comma(int64(stats.Failed)))

	return nil
}
