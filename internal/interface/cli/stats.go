package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	Long: `Display statistics about the local build history.

Shows build and tab counts, the most used compiler, date ranges and storage info.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("History Statistics")
	fmt.Println("==================")
	fmt.Println()
	fmt.Printf("Total Builds:      %d\n", stats.TotalBuilds)
	fmt.Printf("  With Results:    %d\n", stats.WithResults)
	fmt.Printf("  Drafts:          %d\n", stats.TotalDrafts)
	fmt.Printf("Total Tabs:        %d\n", stats.TotalTabs)

	if stats.MostUsedCompiler != "" {
		fmt.Printf("Top Compiler:      %s (%d tabs)\n", stats.MostUsedCompiler, stats.MostUsedCompilerTab)
	}

	if !stats.OldestBuild.IsZero() {
		fmt.Println()
		fmt.Printf("Oldest Build:      %s (%s)\n", stats.OldestBuild.Local().Format("2006-01-02 15:04"), humanize.Time(stats.OldestBuild))
		fmt.Printf("Newest Build:      %s (%s)\n", stats.NewestBuild.Local().Format("2006-01-02 15:04"), humanize.Time(stats.NewestBuild))
	}

	if info, err := os.Stat(dbPath); err == nil {
		fmt.Println()
		fmt.Printf("Database:          %s\n", dbPath)
		fmt.Printf("Size:              %s\n", humanize.Bytes(uint64(info.Size())))
	}

	return nil
}
