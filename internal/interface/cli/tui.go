package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/qbench/internal/core/browser"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/internal/core/share"
	"github.com/neilberkman/qbench/internal/interface/tui"
	"github.com/neilberkman/qbench/pkg/buildbench"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [id|url]",
	Short: "Launch the interactive editor",
	Long: `Launch the interactive terminal editor.

Edit tabs side by side, build them, and browse results and the local
history. Pass a build id or build page URL to start from a stored build.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

var openCmd = &cobra.Command{
	Use:   "open <share-link>",
	Short: "Open a share link in the interactive editor",
	Long: `Decode a share link (or bare token) and open its code and options in
the first tab of the interactive editor.

Examples:
  qbench open 'https://build-bench.com/#eyJ0ZXh0Ijo...'`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(openCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	initial := ""
	if len(args) == 1 {
		id, ok := buildbench.ParseIdentity(args[0])
		if !ok {
			return fmt.Errorf("not a build id or build page URL: %s", args[0])
		}
		initial = id
	}
	return launchTUI(newSession(), initial)
}

func runOpen(cmd *cobra.Command, args []string) error {
	p, ok := share.ParseInput(args[0])
	if !ok {
		return share.ErrDecode
	}
	s := newSession()
	s.Hydrate(p)
	return launchTUI(s, "")
}

func launchTUI(s *session.Session, initialID string) error {
	database, rec, err := openHistory()
	if err != nil {
		return err
	}
	if database != nil {
		defer func() {
			_ = database.Close()
		}()
	}

	opts := tui.Options{
		Session:     s,
		Client:      newClient(),
		History:     rec,
		DB:          database,
		Opener:      browser.New(cfg.BrowserCommand),
		ServiceURL:  cfg.ServiceURL,
		ExplorerURL: cfg.ExplorerURL,
		Compilers:   cfg.CompilerChoices(),
		InitialID:   initialID,
	}

	p := tea.NewProgram(
		tui.New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if m, ok := finalModel.(tui.Model); ok && m.PageURL != "" {
		fmt.Println(m.PageURL)
	}
	return nil
}
