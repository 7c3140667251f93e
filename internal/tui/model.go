// Package tui hosts a picker session as a Bubble Tea model: it
// translates key events into session operations, debounces async
// production, and renders the filtered view.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runger/selecta/internal/filter"
	"github.com/runger/selecta/internal/item"
	"github.com/runger/selecta/internal/picker"
	"github.com/runger/selecta/internal/source"
)

// defaultDebounce is the delay after the last keystroke before a
// production request is issued.
const defaultDebounce = 100 * time.Millisecond

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match the current debounce counter to be accepted
}

// sourceMsg carries an adapter result onto the Bubble Tea loop so all
// session mutation stays single-threaded.
type sourceMsg struct {
	result source.Result
}

// initMsg is sent by Init() so the first render and production request
// run through Update, where state mutations are visible to the runtime.
type initMsg struct{}

// requestTracker is the composition point between the session's request
// hook and the model's debounce timer: the session records that a
// request is wanted, the model decides when to issue it.
type requestTracker struct {
	pending bool
	query   string
}

// Model is the Bubble Tea host for one picker session.
type Model struct {
	session *picker.Session
	coll    *item.Collection
	adapter *source.Adapter // nil for static item sets
	tracker *requestTracker
	results chan source.Result

	debounce   time.Duration
	debounceID uint64

	spin    spinner.Model
	loading bool
	notice  string

	width  int
	height int
}

// NewModel wires a session (and optionally an adapter) into a model.
// The adapter's results are funneled through the model's Update; the
// caller must not register its own OnResult handler.
func NewModel(session *picker.Session, coll *item.Collection, adapter *source.Adapter, debounce time.Duration) Model {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	tracker := &requestTracker{}
	session.OnRequest(func(query string) {
		tracker.pending = true
		tracker.query = query
	})

	m := Model{
		session:  session,
		coll:     coll,
		adapter:  adapter,
		tracker:  tracker,
		debounce: debounce,
		spin:     spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		width:    80,
		height:   24,
	}
	if adapter != nil {
		m.results = make(chan source.Result, 8)
		adapter.OnResult(func(r source.Result) {
			m.results <- r
		})
	}
	return m
}

// Outcome returns the session result after the program finishes.
func (m Model) Outcome() picker.Outcome {
	return m.session.Outcome()
}

// Cancelled reports whether the session ended without a selection.
func (m Model) Cancelled() bool {
	return m.session.State() == picker.StateCancelled
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return initMsg{} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case initMsg:
		m.session.Start()
		var cmds []tea.Cmd
		if m.adapter != nil {
			cmds = append(cmds, m.listen())
		}
		if cmd := m.maybeDebounce(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case debounceMsg:
		return m.handleDebounce(msg)

	case sourceMsg:
		return m.handleSource(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey translates key events into session operations.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.session.Cancel()

	case tea.KeyEnter:
		m.session.Confirm()

	case tea.KeyUp:
		m.session.Navigate(-1)

	case tea.KeyDown:
		m.session.Navigate(1)

	case tea.KeyTab:
		m.session.Toggle()

	case tea.KeyShiftTab:
		m.session.Untoggle()

	case tea.KeyCtrlA:
		m.session.SelectAll()

	case tea.KeyCtrlX:
		m.session.ClearAll()

	case tea.KeyCtrlW:
		m.session.DeleteWord()

	case tea.KeyCtrlU:
		m.session.ClearLine()

	case tea.KeyBackspace:
		m.session.Backspace()

	case tea.KeyLeft:
		m.session.CursorLeft()

	case tea.KeyRight:
		m.session.CursorRight()

	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.session.Insert(r)
		}

	case tea.KeySpace:
		m.session.Insert(' ')
	}

	if m.session.State().Terminal() {
		if m.adapter != nil {
			m.adapter.Close()
		}
		return m, tea.Quit
	}
	// Sequence the debounce-counter mutation before m is copied into
	// the return value.
	cmd := m.maybeDebounce()
	return m, cmd
}

// maybeDebounce starts the debounce timer when the session has flagged
// a pending production request.
func (m *Model) maybeDebounce() tea.Cmd {
	if m.adapter == nil || !m.tracker.pending {
		return nil
	}
	m.tracker.pending = false
	m.debounceID++
	id := m.debounceID
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// handleDebounce issues the production request if the timer is still
// current.
func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.debounceID {
		return m, nil // Stale debounce timer; ignore.
	}
	if m.adapter == nil || m.session.State().Terminal() {
		return m, nil
	}
	m.loading = true
	m.notice = ""
	m.adapter.Request(m.tracker.query)
	return m, m.spin.Tick
}

// handleSource applies a delivered production round: append the batch,
// refresh the view, surface any recoverable notice.
func (m Model) handleSource(msg sourceMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if n := msg.result.Notice; n != nil {
		m.notice = noticeText(n)
	}
	if len(msg.result.Items) > 0 {
		m.coll.Append(msg.result.Items)
		m.session.Refresh()
	}
	return m, m.listen()
}

// listen waits for the next adapter result.
func (m Model) listen() tea.Cmd {
	results := m.results
	return func() tea.Msg {
		return sourceMsg{result: <-results}
	}
}

func noticeText(n *source.Notice) string {
	switch n.Kind {
	case source.NoticeTimeout:
		return "source timed out"
	case source.NoticeCancelled:
		return "" // Superseded by the user's own typing; not worth showing.
	case source.NoticeDropped:
		return "source busy, request dropped"
	default:
		return "source failed"
	}
}

// --- View rendering ---

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	retainedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	matchedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	selectedMarker = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(promptStyle.Render(m.session.Prompt()))
	b.WriteString(m.session.QueryString())
	b.WriteRune('\n')

	b.WriteString(m.viewList())

	if m.loading {
		b.WriteRune('\n')
		b.WriteString(m.spin.View())
	} else if m.notice != "" {
		b.WriteRune('\n')
		b.WriteString(noticeStyle.Render(m.notice))
	}

	return b.String()
}

// viewList renders the filtered view with cursor and selection markers.
func (m Model) viewList() string {
	view := m.session.View()
	if len(view) == 0 {
		return noticeStyle.Render("No matches")
	}

	var b strings.Builder
	cursor := m.session.CursorRow()
	sel := m.session.Selection()
	maxRows := m.listHeight()

	for i, match := range view {
		if i >= maxRows {
			break
		}
		marker := "  "
		if i == cursor {
			marker = "> "
		}
		check := " "
		if sel.Selected(match.Item.Identity) {
			check = selectedMarker.Render("*")
		}

		line := m.renderItem(match, i == cursor)
		b.WriteString(marker)
		b.WriteString(check)
		b.WriteString(line)
		if i < len(view)-1 && i < maxRows-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

// renderItem draws one match, highlighting matched runes when the line
// fits the terminal; truncated lines are drawn plain since the stored
// positions no longer map onto the truncated text.
func (m Model) renderItem(match filter.Match, atCursor bool) string {
	display := ValidateUTF8(StripANSI(match.Item.Display))

	base := normalStyle
	if match.Retained {
		base = retainedStyle
	}
	if atCursor {
		base = cursorStyle
	}

	avail := m.width - 4
	if avail > 0 && runewidth.StringWidth(display) > avail {
		return base.Render(MiddleTruncate(display, avail))
	}
	// Positions index the scored match text; they only map onto the
	// screen when that is what we are drawing.
	if len(match.Positions) == 0 || display != match.Item.Text() {
		return base.Render(display)
	}

	pos := make(map[int]bool, len(match.Positions))
	for _, p := range match.Positions {
		pos[p] = true
	}
	var b strings.Builder
	for i, r := range []rune(display) {
		if pos[i] {
			b.WriteString(matchedStyle.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// listHeight returns the visible list rows: terminal height minus the
// query line and the notice/spinner line.
func (m Model) listHeight() int {
	const chrome = 2
	h := m.height - chrome
	if h < 1 {
		h = 20 // Sensible default before the first WindowSizeMsg
	}
	return h
}
