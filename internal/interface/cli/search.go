package cli

import (
	"fmt"
	"strings"

	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/search"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the code of recorded builds",
	Long: `Search the code and titles of every tab in the local history.

Plain words use full-text search. Queries with punctuation, such as C++
symbols, are matched verbatim. Results are grouped by build.

Examples:
  qbench search iostream
  qbench search "std::vector"
  qbench search "#include <ranges>" --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of matching tabs to show")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	results, err := search.Search(database, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No matches for %q\n", query)
		return nil
	}

	fmt.Printf("Found %d matching tab(s)\n\n", len(results))

	current := ""
	for _, r := range results {
		if r.BuildID != current {
			if current != "" {
				fmt.Println()
			}
			current = r.BuildID
			fmt.Printf("%s  %s\n", r.BuildID, truncateTitle(r.BuildTitle, 60))
			if r.UpdatedAt != "" {
				fmt.Printf("    Updated: %s\n", r.UpdatedAt)
			}
		}
		fmt.Printf("    [%d] %s (%s): %s\n", r.Position+1, r.TabTitle, r.Compiler, truncateTitle(r.Snippet, 100))
	}

	return nil
}
