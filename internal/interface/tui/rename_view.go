package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.titleInput.Blur()
		m.mode = m.prev
		return m, nil

	case "enter":
		title := strings.TrimSpace(m.titleInput.Value())
		if title == "" {
			m.status = "a tab needs a title"
		} else {
			_ = m.session.SetTitle(m.session.Focused(), title)
		}
		m.titleInput.Blur()
		m.mode = m.prev
		return m, nil
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) viewRename() string {
	return m.renderTabBar() + "\n\n" +
		searchHeaderStyle.Render("Rename tab: ") + m.titleInput.View() + "\n\n" +
		helpStyle.Render("enter save • esc cancel")
}
