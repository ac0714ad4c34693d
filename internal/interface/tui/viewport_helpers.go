package tui

const (
	linesPerResult = 3 // Each search result renders as title, snippet and a blank line
	reservedLines  = 8 // Header + footer lines
)

func maxVisibleResults(height int) int {
	n := (height - reservedLines) / linesPerResult
	if n < 2 {
		n = 2
	}
	return n
}

// adjustSearchViewport ensures the selected search result is visible within the viewport
func adjustSearchViewport(m Model) Model {
	visible := maxVisibleResults(m.height)

	// Scroll down if selected item is below visible window
	if m.searchSelectedIdx >= m.searchViewOffset+visible {
		m.searchViewOffset = m.searchSelectedIdx - visible + 1
	}

	// Scroll up if selected item is above visible window
	if m.searchSelectedIdx < m.searchViewOffset {
		m.searchViewOffset = m.searchSelectedIdx
	}

	return m
}

// visibleSearchWindow returns the [start, end) range of results to draw
func visibleSearchWindow(m Model) (int, int) {
	start := m.searchViewOffset
	if start > len(m.searchResults) {
		start = len(m.searchResults)
	}
	end := start + maxVisibleResults(m.height)
	if end > len(m.searchResults) {
		end = len(m.searchResults)
	}
	return start, end
}
