// Package session is the benchmark session controller: it owns the tabs a
// user edits, the wrapped-mode policy between them, and the lifecycle of
// build submissions and loads against the build service.
//
// A Session is owned by a single goroutine (the TUI update loop or a CLI
// command). Network calls happen outside it: callers take a Ticket and a
// request from Begin*, perform the call, and hand the result back to
// Complete*, which discards responses that a newer request has superseded.
package session

import (
	"fmt"

	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/progress"
)

// Results holds everything a successful build produced. The auxiliary
// outputs are index-aligned with the tabs that were submitted.
type Results struct {
	Graph        models.Graph
	Includes     []string
	Assembly     []string
	Preprocessed []string
}

// Session is the editing and build state of one benchmark page
type Session struct {
	tabs  []models.Tab
	focus int

	results  *Results
	identity string
	notice   string

	dirty    bool
	inFlight bool
	force    bool

	codeSync    SyncMode
	optionsSync SyncMode

	token uint64 // latest issued request ticket

	defaultOptions   models.Options
	maxCodeSize      int
	tooLargeTemplate string
	progress         *progress.Estimator
	onProgress       func(float64)
}

// Option configures a Session
type Option func(*Session)

// WithMaxCodeSize sets the per-tab code size limit in characters
func WithMaxCodeSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxCodeSize = n
		}
	}
}

// WithDefaultOptions sets the options of the starter tabs
func WithDefaultOptions(opts models.Options) Option {
	return func(s *Session) { s.defaultOptions = models.DefaultOptions().Merge(opts) }
}

// WithProgress sets the estimator driven during submissions
func WithProgress(e *progress.Estimator) Option {
	return func(s *Session) {
		if e != nil {
			s.progress = e
		}
	}
}

// WithTooLargeTemplate sets the mustache template for oversize-code notices
func WithTooLargeTemplate(tmpl string) Option {
	return func(s *Session) {
		if tmpl != "" {
			s.tooLargeTemplate = tmpl
		}
	}
}

// New creates a session holding the default starter tabs
func New(opts ...Option) *Session {
	s := &Session{
		defaultOptions:   models.DefaultOptions(),
		maxCodeSize:      DefaultMaxCodeSize,
		tooLargeTemplate: DefaultTooLargeTemplate,
		progress:         progress.New(progress.DefaultInterval, progress.DefaultExpected),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restoreDefaults()
	return s
}

func (s *Session) restoreDefaults() {
	s.tabs = defaultTabs(s.defaultOptions)
	s.focus = 0
	s.results = nil
	s.identity = ""
	s.notice = ""
	s.dirty = true
	s.inFlight = false
	s.force = false
	s.codeSync = Independent
	s.optionsSync = Mirrored
}

// Reset restores the default tabs and flags and forgets the identity. Any
// outstanding request becomes stale.
func (s *Session) Reset() {
	s.token++
	s.progress.Stop()
	s.restoreDefaults()
}

// OnProgress registers a callback for estimator ticks during Submit
func (s *Session) OnProgress(fn func(float64)) {
	s.onProgress = fn
}

// Len returns the number of tabs
func (s *Session) Len() int {
	return len(s.tabs)
}

// Tabs returns a copy of the tabs
func (s *Session) Tabs() []models.Tab {
	out := make([]models.Tab, len(s.tabs))
	copy(out, s.tabs)
	return out
}

// Tab returns the tab at index i
func (s *Session) Tab(i int) (models.Tab, error) {
	if err := s.checkIndex(i); err != nil {
		return models.Tab{}, err
	}
	return s.tabs[i], nil
}

// Focused returns the index of the focused tab
func (s *Session) Focused() int {
	return s.focus
}

// Focus moves the focus to tab i
func (s *Session) Focus(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.focus = i
	return nil
}

// Results returns the last build's results, or nil
func (s *Session) Results() *Results {
	return s.results
}

// Identity returns the service-assigned identity, or "" for an unsubmitted session
func (s *Session) Identity() string {
	return s.identity
}

// Notice returns the session-level message (not tied to a tab)
func (s *Session) Notice() string {
	return s.notice
}

// Dirty reports whether the tabs changed since the last successful build or load
func (s *Session) Dirty() bool {
	return s.dirty
}

// InFlight reports whether a submission or load is outstanding
func (s *Session) InFlight() bool {
	return s.inFlight
}

// Force reports whether the next submission bypasses the service cache
func (s *Session) Force() bool {
	return s.force
}

// MaxCodeSize returns the per-tab code size limit
func (s *Session) MaxCodeSize() int {
	return s.maxCodeSize
}

// Progress returns the session's progress estimator
func (s *Session) Progress() *progress.Estimator {
	return s.progress
}

// SetForce requests a cache-bypassing rebuild. Forcing is only offered for
// a clean session; it returns false and leaves the flag unset when dirty.
func (s *Session) SetForce(force bool) bool {
	if force && s.dirty {
		return false
	}
	s.force = force
	return true
}

// SetCode replaces the code of tab i. With code mirrored, the edit lands
// in the source tab and is broadcast to every tab.
func (s *Session) SetCode(i int, code string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if s.codeSync == Mirrored {
		for j := range s.tabs {
			s.tabs[j].Code = code
		}
	} else {
		s.tabs[i].Code = code
	}
	s.markDirty()
	return nil
}

// SetTitle renames tab i. Titles are never mirrored.
func (s *Session) SetTitle(i int, title string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.tabs[i].Title = title
	s.markDirty()
	return nil
}

// SetOptions replaces the compiler options of tab i, broadcasting them
// when options are mirrored.
func (s *Session) SetOptions(i int, opts models.Options) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if s.optionsSync == Mirrored {
		for j := range s.tabs {
			s.tabs[j].Options = opts
		}
	} else {
		s.tabs[i].Options = opts
	}
	s.markDirty()
	return nil
}

// SetTabs replaces every tab, as when opening source files. Sync modes are
// re-derived from the new tabs, results and identity are kept until the
// next build.
func (s *Session) SetTabs(tabs []models.Tab) error {
	if len(tabs) == 0 {
		return fmt.Errorf("%w: a session needs at least one tab", ErrInvalidIndex)
	}
	for i := range tabs {
		if err := tabs[i].Validate(); err != nil {
			return fmt.Errorf("tab %d: %w", i, err)
		}
	}
	s.tabs = append([]models.Tab(nil), tabs...)
	s.focus = 0
	s.codeSync = detectSync(s.tabs, func(t models.Tab) string { return t.Code })
	s.optionsSync = detectSync(s.tabs, func(t models.Tab) models.Options { return t.Options })
	s.markDirty()
	return nil
}

// AddTab appends a copy of the focused tab with a disambiguated title and
// returns its index.
func (s *Session) AddTab() int {
	src := s.tabs[s.focus]
	s.tabs = append(s.tabs, models.Tab{
		Code:    src.Code,
		Title:   s.uniqueTitle(src.Title),
		Options: src.Options,
	})
	s.markDirty()
	return len(s.tabs) - 1
}

// RemoveTab deletes tab i. The last remaining tab cannot be removed.
func (s *Session) RemoveTab(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if len(s.tabs) == 1 {
		return fmt.Errorf("%w: cannot remove the last tab", ErrInvalidIndex)
	}

	s.tabs = append(s.tabs[:i:i], s.tabs[i+1:]...)
	if s.results != nil {
		s.results.Includes = removeAt(s.results.Includes, i)
		s.results.Assembly = removeAt(s.results.Assembly, i)
		s.results.Preprocessed = removeAt(s.results.Preprocessed, i)
	}

	if i < s.focus || s.focus >= len(s.tabs) {
		s.focus--
	}
	s.markDirty()
	return nil
}

// MoveTab moves tab from to position to, shifting the tabs in between
func (s *Session) MoveTab(from, to int) error {
	if err := s.checkIndex(from); err != nil {
		return err
	}
	if err := s.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	s.tabs = move(s.tabs, from, to)
	if s.results != nil {
		s.results.Includes = moveIfAligned(s.results.Includes, from, to)
		s.results.Assembly = moveIfAligned(s.results.Assembly, from, to)
		s.results.Preprocessed = moveIfAligned(s.results.Preprocessed, from, to)
	}

	switch {
	case s.focus == from:
		s.focus = to
	case from < s.focus && s.focus <= to:
		s.focus--
	case to <= s.focus && s.focus < from:
		s.focus++
	}
	s.markDirty()
	return nil
}

func (s *Session) markDirty() {
	s.dirty = true
	s.force = false
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.tabs) {
		return indexError(i, len(s.tabs))
	}
	return nil
}

// uniqueTitle returns base suffixed with the first counter (2, 3, ...)
// that no tab uses yet
func (s *Session) uniqueTitle(base string) string {
	taken := make(map[string]bool, len(s.tabs))
	for _, t := range s.tabs {
		taken[t.Title] = true
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func move[T any](items []T, from, to int) []T {
	item := items[from]
	rest := append(items[:from:from], items[from+1:]...)
	return append(rest[:to:to], append([]T{item}, rest[to:]...)...)
}

func moveIfAligned(items []string, from, to int) []string {
	if from >= len(items) || to >= len(items) {
		return items
	}
	return move(items, from, to)
}

func removeAt(items []string, i int) []string {
	if i < 0 || i >= len(items) {
		return items
	}
	return append(items[:i:i], items[i+1:]...)
}
