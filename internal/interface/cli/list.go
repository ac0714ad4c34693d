package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/spf13/cobra"
)

var (
	listLimit    int
	listSince    string
	listCompiler string
	listDrafts   bool
	listResults  bool
	listDelete   string
	listNote     string
)

var listCmd = &cobra.Command{
	Use:     "history [query]",
	Aliases: []string{"list", "ls"},
	Short:   "List builds in the local history",
	Long: `List recorded builds, most recently updated first.

The optional query matches titles, notes and build ids, and may carry
filters: compiler:<prefix>, after:<date>, before:<date>, limit:<n>,
has:results and has:drafts. Dates accept calendar forms (2024-11-01) and
relative ones (yesterday, 3-days-ago).

Examples:
  qbench history
  qbench history --limit 10 --since yesterday
  qbench history "compiler:gcc has:results"
  qbench history --note 5e1f3c2a "with -fno-exceptions"
  qbench history --delete draft-1a2b3c4d`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of builds to display")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only builds updated since this date")
	listCmd.Flags().StringVar(&listCompiler, "compiler", "", "Only builds using a compiler with this prefix")
	listCmd.Flags().BoolVar(&listDrafts, "drafts", false, "Include drafts that never got a build id")
	listCmd.Flags().BoolVar(&listResults, "results", false, "Only builds that produced results")
	listCmd.Flags().StringVar(&listDelete, "delete", "", "Delete the build with this id")
	listCmd.Flags().StringVar(&listNote, "note", "", "Attach a note to the build with this id (note text as argument)")
}

func runList(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	switch {
	case listDelete != "":
		deleted, err := database.DeleteBuild(listDelete)
		if err != nil {
			return fmt.Errorf("failed to delete build: %w", err)
		}
		if !deleted {
			return fmt.Errorf("no build %s in history", listDelete)
		}
		fmt.Printf("Deleted %s\n", listDelete)
		return nil
	case listNote != "":
		if err := database.SetNote(listNote, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to set note: %w", err)
		}
		fmt.Printf("Updated note for %s\n", listNote)
		return nil
	}

	filter := db.ParseHistoryQuery(strings.Join(args, " "))
	if filter.Limit == 0 {
		filter.Limit = listLimit
	}
	if listCompiler != "" {
		filter.Compiler = listCompiler
	}
	if listDrafts {
		filter.IncludeDrafts = true
	}
	if listResults {
		filter.OnlyResults = true
	}
	if listSince != "" {
		since, ok := db.ParseDate(listSince)
		if !ok {
			return fmt.Errorf("could not understand date: %s", listSince)
		}
		filter.AfterDate = since
		filter.HasAfter = true
	}

	builds, err := database.ListBuilds(filter)
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}

	if len(builds) == 0 {
		fmt.Println("No builds found. Run 'qbench build <file>' to record one.")
		return nil
	}

	fmt.Printf("Showing %d build(s)\n\n", len(builds))

	for i, b := range builds {
		marker := ""
		if b.Draft {
			marker = " (draft)"
		} else if !b.HasResult {
			marker = " (diagnostics only)"
		}
		fmt.Printf("[%d] %s%s\n", i+1, b.BuildID, marker)
		fmt.Printf("    Title:     %s\n", truncateTitle(b.Title, 80))
		if b.Note != "" {
			fmt.Printf("    Note:      %s\n", truncateTitle(b.Note, 80))
		}
		fmt.Printf("    Tabs:      %d (%s)\n", b.TabCount, strings.Join(b.Compilers, ", "))
		fmt.Printf("    Code:      %s chars\n", humanize.Comma(int64(b.CodeSize)))
		if b.OpenCount > 0 {
			fmt.Printf("    Opened:    %d times\n", b.OpenCount)
		}
		if !b.UpdatedAt.IsZero() {
			fmt.Printf("    Updated:   %s\n", humanize.Time(b.UpdatedAt))
		}
		fmt.Println()
	}

	return nil
}

// truncateTitle flattens whitespace and shortens long titles for display
func truncateTitle(title string, maxLen int) string {
	title = strings.Join(strings.Fields(title), " ")
	if len(title) <= maxLen {
		return title
	}
	return title[:maxLen-3] + "..."
}
