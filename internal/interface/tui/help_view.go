package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key returns to the previous view
	m.mode = m.prev
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
qbench - Help
═════════════

EDITOR
──────
  ctrl+r       Build all tabs
  tab/shift+tab  Next / previous tab
  ctrl+t       Add a copy of the current tab
  ctrl+w       Close the current tab
  F7/F8        Move the current tab left / right
  F6           Rename the current tab
  F2 F3 F4 F5  Cycle compiler, standard, optimization, library
  F9           Toggle mirrored code across tabs
  F10          Toggle mirrored options across tabs
  ctrl+f       Toggle cache bypass (unchanged builds only)
  ctrl+n       Start over with the default tabs
  ctrl+y       Copy a share link for the current tab
  ctrl+x       Copy a Compiler Explorer link for all tabs
  ctrl+b       Open the build page in a browser
  ctrl+g       Show results
  ctrl+l       Show history

RESULTS
───────
  tab, 1-5     Switch pane (chart, includes, assembly, preprocessed, messages)
  [ ]          Previous / next tab for per-tab panes
  j/k d/u g/G  Scroll
  e, esc       Back to the editor

HISTORY
───────
  enter        Open the build from the local history
  r            Reload the build from the service
  f            Filter (compiler:gcc after:yesterday has:results has:drafts)
  /            Search the code of every recorded tab
  x            Delete the build from the history
  esc          Back to the editor

ctrl+c quits from anywhere. Press any key to return.
`
	return helpStyle.Render(strings.TrimPrefix(help, "\n"))
}
