// Package picker implements the selection session: the query buffer,
// cursor, selection set, and the state machine that drives the filter
// pipeline in response to input operations.
package picker

import (
	"github.com/google/uuid"

	"github.com/runger/selecta/internal/filter"
	"github.com/runger/selecta/internal/item"
)

// State is the session's lifecycle position. The three terminal states
// are absorbing: every operation is a guarded no-op once one is reached.
type State int

const (
	StateIdle State = iota
	StateActive
	StateSelected
	StateMultiSelected
	StateCancelled
)

// Terminal reports whether s is one of the absorbing states.
func (s State) Terminal() bool {
	return s == StateSelected || s == StateMultiSelected || s == StateCancelled
}

// OutcomeKind discriminates the Outcome union.
type OutcomeKind int

const (
	OutcomeSelected OutcomeKind = iota
	OutcomeMultiSelected
	OutcomeCancelled
)

// Outcome is the result of a finished session.
type Outcome struct {
	Kind  OutcomeKind
	Item  item.Item   // valid when Kind == OutcomeSelected
	Items []item.Item // valid when Kind == OutcomeMultiSelected, in OrderIndex order
}

// Options configures one session.
type Options struct {
	Multiselect    bool
	MultiselectMax int // 0 = unlimited
	Hierarchical   bool
	AutoSelect     bool
	PreserveOrder  bool
	// PreserveCursor keeps the cursor on its current item across
	// query edits once the user has navigated, instead of resetting
	// to the first match.
	PreserveCursor bool
	Prompt         string
	// InitialQuery seeds the query buffer at Start. Seeding is not a
	// query mutation: it never triggers auto-select.
	InitialQuery string
	Vocabulary   filter.Vocabulary
}

// RenderFunc receives every recomputed view. The session retains no
// handle into whatever the renderer draws.
type RenderFunc func(view filter.View, cursorRow int, selected []string)

// RequestFunc is invoked with the effective query after query
// mutations. The async source adapter is wired here so the session
// never talks to a producer directly.
type RequestFunc func(effectiveQuery string)

// Session is one picker generation: created at show time, driven by
// input operations while Active, and discarded after reaching a
// terminal state.
type Session struct {
	generation string
	state      State
	opts       Options
	pipeline   filter.Pipeline
	coll       *item.Collection

	query     Query
	cursor    int
	sel       *Selection
	navigated bool
	view      filter.View

	render  RenderFunc
	request RequestFunc
	outcome Outcome
}

// New creates an Idle session over the given collection.
func New(coll *item.Collection, opts Options) *Session {
	return &Session{
		generation: uuid.NewString(),
		state:      StateIdle,
		opts:       opts,
		pipeline: filter.Pipeline{
			Hierarchical:  opts.Hierarchical,
			PreserveOrder: opts.PreserveOrder,
			Vocabulary:    opts.Vocabulary.Normalize(),
		},
		coll: coll,
		sel:  NewSelection(),
	}
}

// Generation returns the session's unique id.
func (s *Session) Generation() string { return s.generation }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// View returns the current filtered view.
func (s *Session) View() filter.View { return s.view }

// CursorRow returns the cursor index into the view, or -1 when empty.
func (s *Session) CursorRow() int {
	if len(s.view) == 0 {
		return -1
	}
	return s.cursor
}

// QueryString returns the current query text.
func (s *Session) QueryString() string { return s.query.String() }

// Prompt returns the configured prompt.
func (s *Session) Prompt() string { return s.opts.Prompt }

// Selection exposes the selection set for rendering and tests.
func (s *Session) Selection() *Selection { return s.sel }

// EffectiveQuery returns the query with any recognized sentinel prefix
// stripped, as handed to producers.
func (s *Session) EffectiveQuery() string {
	return s.pipeline.EffectiveQuery(s.query.String())
}

// OnRender registers the render callback.
func (s *Session) OnRender(fn RenderFunc) { s.render = fn }

// OnRequest registers the async production hook.
func (s *Session) OnRequest(fn RequestFunc) { s.request = fn }

// Outcome returns the terminal result. Reading it before the session
// has finished is a contract violation.
func (s *Session) Outcome() Outcome {
	if !s.state.Terminal() {
		panic("picker: outcome read before terminal state")
	}
	return s.outcome
}

// Start moves Idle → Active, runs the initial filter, and fires the
// first production request. A second Start is a no-op.
func (s *Session) Start() {
	if s.state != StateIdle {
		return
	}
	s.state = StateActive
	for _, r := range s.opts.InitialQuery {
		s.query.Insert(r)
	}
	s.refilter()
	s.fireRequest()
	s.emit()
}

// Insert appends a rune to the query at its cursor.
func (s *Session) Insert(r rune) {
	if s.state != StateActive {
		return
	}
	s.query.Insert(r)
	s.afterQueryChange()
}

// Backspace deletes one rune before the query cursor.
func (s *Session) Backspace() {
	if s.state != StateActive {
		return
	}
	if s.query.Backspace() {
		s.afterQueryChange()
	}
}

// DeleteWord removes the trailing word from the query.
func (s *Session) DeleteWord() {
	if s.state != StateActive {
		return
	}
	if s.query.DeleteWord() {
		s.afterQueryChange()
	}
}

// ClearLine empties the query.
func (s *Session) ClearLine() {
	if s.state != StateActive {
		return
	}
	if s.query.Clear() {
		s.afterQueryChange()
	}
}

// CursorLeft moves the query edit cursor one rune left.
func (s *Session) CursorLeft() {
	if s.state == StateActive {
		s.query.Left()
	}
}

// CursorRight moves the query edit cursor one rune right.
func (s *Session) CursorRight() {
	if s.state == StateActive {
		s.query.Right()
	}
}

// QueryCursor returns the rune offset of the query edit cursor.
func (s *Session) QueryCursor() int { return s.query.Cursor() }

// Navigate moves the cursor row by delta with wraparound. It marks the
// session as navigated, which disables auto-select for its remainder.
func (s *Session) Navigate(delta int) {
	if s.state != StateActive || len(s.view) == 0 {
		return
	}
	s.navigated = true
	s.cursor = wrap(s.cursor+delta, len(s.view))
	s.emit()
}

// Toggle flips selection membership for the item under the cursor and
// advances the cursor. Refused when multiselect is disabled, the view
// is empty, or selecting would exceed the configured maximum.
func (s *Session) Toggle() {
	if s.state != StateActive || !s.opts.Multiselect || len(s.view) == 0 {
		return
	}
	id := s.view[s.cursor].Item.Identity
	if !s.sel.Selected(id) && s.atCapacity(1) {
		return
	}
	s.sel.Toggle(id)
	s.cursor = wrap(s.cursor+1, len(s.view))
	s.emit()
}

// Untoggle deselects the nearest previously selected item, scanning
// backward from the cursor with wraparound, and moves the cursor to it.
func (s *Session) Untoggle() {
	if s.state != StateActive || len(s.view) == 0 || s.sel.Count() == 0 {
		return
	}
	for i := 1; i <= len(s.view); i++ {
		row := wrap(s.cursor-i, len(s.view))
		id := s.view[row].Item.Identity
		if s.sel.Selected(id) {
			s.sel.Set(id, false)
			s.cursor = row
			s.emit()
			return
		}
	}
}

// SelectAll marks every item in the current view. Refused entirely when
// the result would exceed the configured maximum.
func (s *Session) SelectAll() {
	if s.state != StateActive || !s.opts.Multiselect || len(s.view) == 0 {
		return
	}
	added := 0
	for _, m := range s.view {
		if !s.sel.Selected(m.Item.Identity) {
			added++
		}
	}
	if s.atCapacity(added) {
		return
	}
	for _, m := range s.view {
		s.sel.Set(m.Item.Identity, true)
	}
	s.emit()
}

// ClearAll unmarks every item in the current view. Selections filtered
// out of view are untouched.
func (s *Session) ClearAll() {
	if s.state != StateActive || len(s.view) == 0 {
		return
	}
	for _, m := range s.view {
		s.sel.Set(m.Item.Identity, false)
	}
	s.emit()
}

// Confirm resolves the session: MultiSelected when the selection set is
// non-empty in a multiselect session, Selected for the cursor item, or
// Cancelled on an empty view.
func (s *Session) Confirm() {
	if s.state != StateActive {
		return
	}
	if s.opts.Multiselect && s.sel.Count() > 0 {
		s.state = StateMultiSelected
		s.outcome = Outcome{
			Kind:  OutcomeMultiSelected,
			Items: s.sel.Members(s.coll.Snapshot()),
		}
		return
	}
	if len(s.view) == 0 {
		s.state = StateCancelled
		s.outcome = Outcome{Kind: OutcomeCancelled}
		return
	}
	s.state = StateSelected
	s.outcome = Outcome{Kind: OutcomeSelected, Item: s.view[s.cursor].Item}
}

// Cancel resolves the session as Cancelled, unconditionally.
func (s *Session) Cancel() {
	if s.state != StateActive {
		return
	}
	s.state = StateCancelled
	s.outcome = Outcome{Kind: OutcomeCancelled}
}

// Refresh re-runs the pipeline against the current collection snapshot,
// for use after async appends. The cursor follows its item when the
// item survives, otherwise clamps to the view.
func (s *Session) Refresh() {
	if s.state != StateActive {
		return
	}
	var keep string
	if len(s.view) > 0 {
		keep = s.view[s.cursor].Item.Identity
	}
	s.refilter()
	s.restoreCursor(keep)
	s.emit()
}

// afterQueryChange refilters, repositions the cursor, fires the
// production hook, applies the auto-select policy, and renders.
func (s *Session) afterQueryChange() {
	var keep string
	if s.navigated && s.opts.PreserveCursor && len(s.view) > 0 {
		keep = s.view[s.cursor].Item.Identity
	}
	s.refilter()
	s.restoreCursor(keep)
	s.fireRequest()

	// Auto-select: exactly one match, nothing marked, and the user
	// has not started browsing.
	if s.opts.AutoSelect && len(s.view) == 1 &&
		s.sel.Count() == 0 && !s.navigated {
		s.Confirm()
		return
	}
	s.emit()
}

func (s *Session) refilter() {
	s.view = s.pipeline.Run(s.coll.Snapshot(), s.query.String())
}

// restoreCursor points the cursor at the item with identity keep when
// it survived filtering; otherwise resets to the first row (or clamps).
func (s *Session) restoreCursor(keep string) {
	if keep != "" {
		for i, m := range s.view {
			if m.Item.Identity == keep {
				s.cursor = i
				return
			}
		}
	}
	s.cursor = 0
}

func (s *Session) fireRequest() {
	if s.request != nil {
		s.request(s.EffectiveQuery())
	}
}

func (s *Session) emit() {
	if s.render != nil {
		s.render(s.view, s.CursorRow(), s.sel.Identities())
	}
}

// atCapacity reports whether adding n selections would exceed the
// configured maximum. A zero maximum means unlimited.
func (s *Session) atCapacity(n int) bool {
	max := s.opts.MultiselectMax
	return max > 0 && s.sel.Count()+n > max
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
