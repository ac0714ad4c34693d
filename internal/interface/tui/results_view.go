package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/qbench/internal/core/progress"
	"github.com/neilberkman/qbench/internal/core/report"
)

type resultPane int

const (
	chartPane resultPane = iota
	includesPane
	assemblyPane
	preprocessedPane
	messagesPane
)

var paneNames = []string{"chart", "includes", "assembly", "preprocessed", "messages"}

func (p resultPane) String() string {
	return paneNames[p]
}

func (m Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := resultPane(len(paneNames))

	switch {
	case key.Matches(msg, resultsKeys.Editor):
		m.mode = editorView
		return m, nil

	case key.Matches(msg, resultsKeys.NextPane):
		m.pane = (m.pane + 1) % n
		m.refreshResults()
		return m, nil

	case key.Matches(msg, resultsKeys.PrevPane):
		m.pane = (m.pane + n - 1) % n
		m.refreshResults()
		return m, nil

	case key.Matches(msg, resultsKeys.NextTab):
		if m.paneTab < m.session.Len()-1 {
			m.paneTab++
		}
		m.refreshResults()
		return m, nil

	case key.Matches(msg, resultsKeys.PrevTab):
		if m.paneTab > 0 {
			m.paneTab--
		}
		m.refreshResults()
		return m, nil

	case key.Matches(msg, resultsKeys.Rebuild):
		return m.startBuild()

	case key.Matches(msg, resultsKeys.History):
		if m.opts.DB == nil {
			m.status = "history is disabled"
			return m, nil
		}
		m.mode = historyView
		return m, loadBuilds(m.opts.DB, m.filter.Value())

	case key.Matches(msg, resultsKeys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, resultsKeys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, resultsKeys.HalfDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, resultsKeys.HalfUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, resultsKeys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, resultsKeys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	switch msg.String() {
	case "1", "2", "3", "4", "5":
		m.pane = resultPane(msg.String()[0] - '1')
		m.refreshResults()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refreshResults re-renders the current pane into the viewport
func (m *Model) refreshResults() {
	if m.paneTab >= m.session.Len() {
		m.paneTab = m.session.Len() - 1
	}
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderPane())
}

func (m Model) renderPane() string {
	s := m.session
	res := s.Results()

	if m.pane == messagesPane {
		var b strings.Builder
		if s.Notice() != "" {
			b.WriteString(noticeStyle.Render(m.wrap(s.Notice())))
			b.WriteString("\n\n")
		}
		for _, t := range s.Tabs() {
			if t.Message == "" {
				continue
			}
			b.WriteString(titleStyle.Render(t.Title))
			b.WriteString("\n")
			b.WriteString(m.wrap(t.Message))
			b.WriteString("\n\n")
		}
		if b.Len() == 0 {
			return statusStyle.Render("No messages")
		}
		return b.String()
	}

	if res == nil {
		if s.InFlight() {
			return statusStyle.Render("Waiting for the build service...")
		}
		return statusStyle.Render("No results yet. Press ctrl+r to build.")
	}

	switch m.pane {
	case chartPane:
		return m.renderChart()
	case includesPane:
		return paneText(res.Includes, m.paneTab)
	case assemblyPane:
		return paneText(res.Assembly, m.paneTab)
	case preprocessedPane:
		return paneText(res.Preprocessed, m.paneTab)
	}
	return ""
}

// wrap folds long diagnostic lines to the viewport width
func (m Model) wrap(text string) string {
	if m.viewport.Width <= 4 {
		return text
	}
	return wordwrap.String(text, m.viewport.Width-2)
}

func paneText(items []string, i int) string {
	if i < 0 || i >= len(items) || items[i] == "" {
		return statusStyle.Render("Nothing to show for this tab")
	}
	return items[i]
}

// renderChart draws one horizontal bar group per metric
func (m Model) renderChart() string {
	benchmarks := report.FromGraph(m.session.Results().Graph)
	if len(benchmarks) == 0 {
		return statusStyle.Render("The build produced no benchmark entries")
	}
	r := report.Report{Benchmarks: benchmarks}

	nameWidth := 0
	for _, bm := range benchmarks {
		if len(bm.Name) > nameWidth {
			nameWidth = len(bm.Name)
		}
	}
	barWidth := m.width - nameWidth - 20
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 10 {
		barWidth = 10
	}

	var b strings.Builder
	for _, metric := range r.MetricNames() {
		b.WriteString(titleStyle.Render(metric))
		b.WriteString("\n")
		max := 0.0
		for _, bm := range benchmarks {
			if v := bm.Metrics[metric]; v > max {
				max = v
			}
		}
		for _, bm := range benchmarks {
			v := bm.Metrics[metric]
			pct := 0.0
			if max > 0 {
				pct = v / max * 100
			}
			fmt.Fprintf(&b, "  %-*s %s %s\n", nameWidth, bm.Name,
				barStyle.Render(progress.Bar(pct, barWidth)), report.FormatValue(v))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewResults() string {
	var b strings.Builder
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")

	var panes []string
	for i, name := range paneNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if resultPane(i) == m.pane {
			panes = append(panes, activeTabStyle.Render(label))
		} else {
			panes = append(panes, inactiveTabStyle.Render(label))
		}
	}
	b.WriteString(strings.Join(panes, " "))
	if m.pane == includesPane || m.pane == assemblyPane || m.pane == preprocessedPane {
		if tab, err := m.session.Tab(m.paneTab); err == nil {
			b.WriteString("  " + optionsStyle.Render("tab: "+tab.Title))
		}
	}
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ", m.viewport.ScrollPercent()*100)))
	b.WriteString(m.keyHelp.View(resultsKeys))
	return b.String()
}
