package session

import "github.com/neilberkman/qbench/internal/core/models"

// SyncMode says whether a field is edited per tab or mirrored from the
// source tab to every tab
type SyncMode int

const (
	Independent SyncMode = iota
	Mirrored
)

// MirrorSource is the tab whose value is broadcast in Mirrored mode
const MirrorSource = 0

func (m SyncMode) String() string {
	if m == Mirrored {
		return "mirrored"
	}
	return "independent"
}

// CodeSync returns the code synchronization mode
func (s *Session) CodeSync() SyncMode {
	return s.codeSync
}

// OptionsSync returns the options synchronization mode
func (s *Session) OptionsSync() SyncMode {
	return s.optionsSync
}

// SetCodeSync switches code mirroring. Turning it on copies the source
// tab's code over every other tab, discarding their edits; turning it off
// leaves the data as is.
func (s *Session) SetCodeSync(mode SyncMode) {
	s.codeSync = mode
	if mode != Mirrored {
		return
	}
	src := s.tabs[MirrorSource].Code
	changed := false
	for i := range s.tabs {
		if s.tabs[i].Code != src {
			s.tabs[i].Code = src
			changed = true
		}
	}
	if changed {
		s.markDirty()
	}
}

// SetOptionsSync switches options mirroring, with the same collapse
// semantics as SetCodeSync
func (s *Session) SetOptionsSync(mode SyncMode) {
	s.optionsSync = mode
	if mode != Mirrored {
		return
	}
	src := s.tabs[MirrorSource].Options
	changed := false
	for i := range s.tabs {
		if s.tabs[i].Options != src {
			s.tabs[i].Options = src
			changed = true
		}
	}
	if changed {
		s.markDirty()
	}
}

// ToggleCodeSync flips code mirroring and returns the new mode
func (s *Session) ToggleCodeSync() SyncMode {
	s.SetCodeSync(toggle(s.codeSync))
	return s.codeSync
}

// ToggleOptionsSync flips options mirroring and returns the new mode
func (s *Session) ToggleOptionsSync() SyncMode {
	s.SetOptionsSync(toggle(s.optionsSync))
	return s.optionsSync
}

func toggle(m SyncMode) SyncMode {
	if m == Mirrored {
		return Independent
	}
	return Mirrored
}

// detectSync returns Mirrored when every tab carries the same value
func detectSync[T comparable](tabs []models.Tab, field func(models.Tab) T) SyncMode {
	if len(tabs) == 0 {
		return Independent
	}
	first := field(tabs[0])
	for _, t := range tabs[1:] {
		if field(t) != first {
			return Independent
		}
	}
	return Mirrored
}
