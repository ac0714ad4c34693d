package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/session"
)

type buildListItem struct {
	build db.BuildSummary
}

func (i buildListItem) FilterValue() string {
	return i.build.Title + " " + i.build.BuildID + " " + i.build.Note
}

func (i buildListItem) Title() string {
	if i.build.Note != "" {
		return i.build.Title + " - " + i.build.Note
	}
	return i.build.Title
}

func (i buildListItem) Description() string {
	state := "results"
	switch {
	case i.build.Draft:
		state = "draft"
	case !i.build.HasResult:
		state = "diagnostics"
	}
	return fmt.Sprintf("%s | %d tabs (%s) | %s | Updated: %s",
		i.build.BuildID, i.build.TabCount, strings.Join(i.build.Compilers, ", "), state,
		humanize.Time(i.build.UpdatedAt))
}

// Drafts are dimmed so finished builds stand out
type buildDelegate struct {
	list.DefaultDelegate
}

func (d buildDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	b, ok := item.(buildListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := b.Title()
	desc := b.Description()

	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case b.build.Draft:
		title = draftItemStyle.Render(title)
		desc = draftItemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createBuildList(builds []db.BuildSummary, width, height int) list.Model {
	items := make([]list.Item, len(builds))
	for i, b := range builds {
		items[i] = buildListItem{build: b}
	}

	delegate := buildDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false) // Filtering uses the history query syntax instead

	return l
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "enter", "esc":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, tea.Batch(cmd, loadBuilds(m.opts.DB, m.filter.Value()))
	}

	switch msg.String() {
	case "esc", "q":
		m.mode = editorView
		return m, nil

	case "enter":
		selected, ok := m.list.SelectedItem().(buildListItem)
		if !ok {
			return m, nil
		}
		t, load := m.session.Navigate(selected.build.BuildID)
		m.mode = editorView
		if !load {
			return m, nil
		}
		m.refreshResults()
		var b session.Builder = m.opts.Client
		if m.opts.History != nil {
			b = m.opts.History
		}
		return m, fetchBuild(b, t)

	case "r":
		// Reload from the service rather than the local copy
		selected, ok := m.list.SelectedItem().(buildListItem)
		if !ok || selected.build.Draft {
			return m, nil
		}
		t := m.session.BeginLoad(selected.build.BuildID)
		m.mode = editorView
		m.refreshResults()
		return m, fetchBuild(m.opts.Client, t)

	case "f":
		m.filtering = true
		m.filter.Focus()
		return m, nil

	case "/":
		m.mode = searchView
		m.searchInput.Focus()
		return m, nil

	case "x", "delete":
		selected, ok := m.list.SelectedItem().(buildListItem)
		if !ok {
			return m, nil
		}
		m.status = "deleted " + selected.build.BuildID
		return m, deleteBuild(m.opts.DB, selected.build.BuildID, m.filter.Value())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewHistory() string {
	var b strings.Builder

	b.WriteString(searchHeaderStyle.Render("History "))
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
	}
	b.WriteString("\n")

	if len(m.builds) == 0 {
		b.WriteString("\nNo builds recorded yet. Build something with ctrl+r.\n\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/k up • ↓/j down • enter open • r reload from service • f filter • / search code • x delete • esc back"))
	return b.String()
}
