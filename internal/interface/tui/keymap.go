package tui

import "github.com/charmbracelet/bubbles/key"

// resultsKeyMap binds the results view
type resultsKeyMap struct {
	NextPane key.Binding
	PrevPane key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Down     key.Binding
	Up       key.Binding
	HalfDown key.Binding
	HalfUp   key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Rebuild  key.Binding
	History  key.Binding
	Editor   key.Binding
}

// ShortHelp implements help.KeyMap.
func (k resultsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPane, k.NextTab, k.Down, k.Rebuild, k.Editor, k.History}
}

// FullHelp implements help.KeyMap.
func (k resultsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPane, k.PrevPane, k.NextTab, k.PrevTab},
		{k.Down, k.Up, k.HalfDown, k.HalfUp, k.Top, k.Bottom},
		{k.Rebuild, k.History, k.Editor},
	}
}

var resultsKeys = resultsKeyMap{
	NextPane: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "pane"),
	),
	PrevPane: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous pane"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("]", "l", "right"),
		key.WithHelp("[/]", "tab"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("[", "h", "left"),
		key.WithHelp("[", "previous tab"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/k", "scroll"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k", "up"),
	),
	HalfDown: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "half page down"),
	),
	HalfUp: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "half page up"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Rebuild: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "rebuild"),
	),
	History: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "history"),
	),
	Editor: key.NewBinding(
		key.WithKeys("esc", "e", "q"),
		key.WithHelp("e", "editor"),
	),
}
