package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/neilberkman/qbench/internal/core/browser"
	"github.com/neilberkman/qbench/internal/core/explorer"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
	"github.com/spf13/cobra"
)

var (
	explorerID       string
	explorerCompiler string
	explorerStd      string
	explorerOptim    string
	explorerLib      string
	explorerCopy     bool
	explorerOpen     bool
)

var explorerCmd = &cobra.Command{
	Use:     "explorer [file...]",
	Aliases: []string{"godbolt"},
	Short:   "Open source files or a stored build in Compiler Explorer",
	Long: `Build a Compiler Explorer link with one editor and compiler per tab.

The tabs come from the given files, or from a stored build with --id
(looked up in the local history first, then on the service).

Examples:
  qbench explorer a.cpp b.cpp --open
  qbench explorer --id 5e1f3c2a --copy`,
	RunE: runExplorer,
}

func init() {
	rootCmd.AddCommand(explorerCmd)
	explorerCmd.Flags().StringVar(&explorerID, "id", "", "Stored build id or URL")
	addOptionFlags(explorerCmd, &explorerCompiler, &explorerStd, &explorerOptim, &explorerLib)
	explorerCmd.Flags().BoolVar(&explorerCopy, "copy", false, "Copy the link to the clipboard")
	explorerCmd.Flags().BoolVar(&explorerOpen, "open", false, "Open the link in a browser")
}

func runExplorer(cmd *cobra.Command, args []string) error {
	var tabs []models.Tab
	switch {
	case explorerID != "" && len(args) > 0:
		return fmt.Errorf("give either files or --id, not both")
	case explorerID != "":
		s, err := loadStored(cmd.Context(), explorerID)
		if err != nil {
			return err
		}
		tabs = s.Tabs()
	case len(args) > 0:
		opts := flagOptions(explorerCompiler, explorerStd, explorerOptim, explorerLib)
		t, err := history.ReadSources(args, opts)
		if err != nil {
			return err
		}
		tabs = t
	default:
		return fmt.Errorf("give source files or --id")
	}

	link, err := explorer.Link(cfg.ExplorerURL, tabs)
	if err != nil {
		return err
	}
	fmt.Println(link)

	if explorerCopy {
		if err := clipboard.WriteAll(link); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Copied to clipboard")
	}
	if explorerOpen {
		if err := browser.New(cfg.BrowserCommand).Open(link); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
	}
	return nil
}

// loadStored loads a build into a new session from the history, falling
// back to the service
func loadStored(ctx context.Context, input string) (*session.Session, error) {
	id, ok := buildbench.ParseIdentity(input)
	if !ok {
		return nil, fmt.Errorf("not a build id or build page URL: %s", input)
	}

	database, rec, err := openHistory()
	if err != nil {
		return nil, err
	}
	if database != nil {
		defer func() {
			_ = database.Close()
		}()
	}

	s := newSession()
	if rec != nil {
		if _, err := s.Load(ctx, rec, id); err == nil {
			return s, nil
		}
	}
	if _, err := s.Load(ctx, newClient(), id); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Notice(), err)
	}
	return s, nil
}
