package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/qbench/internal/core/session"
)

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.mode = historyView
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchResults = nil
		m.searchSelectedIdx = 0
		m.searchViewOffset = 0
		return m, nil

	case "enter":
		if len(m.searchResults) > 0 && m.searchSelectedIdx < len(m.searchResults) {
			r := m.searchResults[m.searchSelectedIdx]
			m.searchInput.Blur()
			m.mode = editorView
			t, load := m.session.Navigate(r.BuildID)
			if !load {
				_ = m.session.Focus(r.Position)
				m.loadEditor()
				return m, nil
			}
			m.refreshResults()
			var b session.Builder = m.opts.Client
			if m.opts.History != nil {
				b = m.opts.History
			}
			return m, fetchBuild(b, t)
		}
		return m, nil

	// Navigation: Use Ctrl+j or arrow keys (allow j/k to be typed in search)
	case "ctrl+j", "down":
		if len(m.searchResults) > 0 {
			m.searchSelectedIdx++
			if m.searchSelectedIdx >= len(m.searchResults) {
				m.searchSelectedIdx = len(m.searchResults) - 1
			}
			return adjustSearchViewport(m), nil
		}
		return m, nil

	case "up":
		if len(m.searchResults) > 0 {
			m.searchSelectedIdx--
			if m.searchSelectedIdx < 0 {
				m.searchSelectedIdx = 0
			}
			return adjustSearchViewport(m), nil
		}
		return m, nil
	}

	m.searchInput, cmd = m.searchInput.Update(msg)

	// Perform live search on every keystroke
	query := m.searchInput.Value()
	m.searchSelectedIdx = 0
	m.searchViewOffset = 0
	return m, tea.Batch(cmd, performSearch(m.opts.DB, query))
}

func (m Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(searchHeaderStyle.Render("Search code: "))
	b.WriteString(m.searchInput.View())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 80))
	b.WriteString("\n\n")

	if m.searchResults == nil {
		b.WriteString(searchMetaStyle.Render("Type to search (minimum 2 characters)"))
	} else if len(m.searchResults) == 0 {
		b.WriteString(searchMetaStyle.Render("No results found"))
	} else {
		b.WriteString(searchMetaStyle.Render(fmt.Sprintf("Found %d tabs:", len(m.searchResults))))
		b.WriteString("\n\n")

		startIdx, endIdx := visibleSearchWindow(m)
		query := m.searchInput.Value()
		for i := startIdx; i < endIdx; i++ {
			r := m.searchResults[i]

			prefix := "  "
			title := r.BuildTitle
			if i == m.searchSelectedIdx {
				prefix = "► "
				title = searchSelectedStyle.Render(title)
			} else {
				title = searchMatchStyle.Render(title)
			}

			b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, title,
				searchMetaStyle.Render(fmt.Sprintf("| %s | %s", r.BuildID, r.UpdatedAt))))
			b.WriteString(fmt.Sprintf("    %s %s\n\n",
				searchMetaStyle.Render(fmt.Sprintf("[%s, %s]", r.TabTitle, r.Compiler)),
				highlightQuery(firstLine(r.Snippet, 100), query)))
		}

		if startIdx > 0 {
			b.WriteString(searchMetaStyle.Render(fmt.Sprintf("... %d results above\n", startIdx)))
		}
		if endIdx < len(m.searchResults) {
			b.WriteString(searchMetaStyle.Render(fmt.Sprintf("... %d results below\n", len(m.searchResults)-endIdx)))
		}
	}

	b.WriteString("\n\n")
	if len(m.searchResults) > 0 {
		b.WriteString("Ctrl+j or ↑↓: navigate | Enter: open | esc: back | F1: help")
	} else {
		b.WriteString("Type to search (min 2 chars) | esc: back | F1: help")
	}
	return b.String()
}

func highlightQuery(text, query string) string {
	if query == "" {
		return text
	}

	// Simple case-insensitive highlighting
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx == -1 {
		return text
	}

	before := text[:idx]
	match := text[idx : idx+len(query)]
	after := text[idx+len(query):]

	return before + searchMatchStyle.Render(match) + after
}
