package tui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/selecta/internal/item"
	"github.com/runger/selecta/internal/picker"
	"github.com/runger/selecta/internal/source"
)

func newTestCollection(displays ...string) *item.Collection {
	coll := item.NewCollection(nil)
	items := make([]item.Item, len(displays))
	for i, d := range displays {
		items[i] = item.Item{Identity: d, Display: d, Payload: d}
	}
	coll.Append(items)
	return coll
}

// newStaticModel builds a started model over a fixed item set.
func newStaticModel(t *testing.T, opts picker.Options, displays ...string) Model {
	t.Helper()
	coll := newTestCollection(displays...)
	session := picker.New(coll, opts)
	m := NewModel(session, coll, nil, time.Millisecond)

	updated, _ := m.Update(initMsg{})
	model, ok := updated.(Model)
	require.True(t, ok)
	return model
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestModelTypingFilters(t *testing.T) {
	m := newStaticModel(t, picker.Options{}, "apple", "banana")

	m, _ = update(t, m, keyRunes("app"))
	view := m.View()
	assert.Contains(t, view, "apple")
	assert.NotContains(t, view, "banana")
}

func TestModelEnterConfirms(t *testing.T) {
	m := newStaticModel(t, picker.Options{}, "apple", "banana")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	require.False(t, m.Cancelled())
	assert.Equal(t, "banana", m.Outcome().Item.Display)
}

func TestModelEscCancels(t *testing.T) {
	m := newStaticModel(t, picker.Options{}, "apple")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Cancelled())
}

func TestModelMultiselectKeys(t *testing.T) {
	m := newStaticModel(t, picker.Options{Multiselect: true}, "a1", "a2", "a3")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})      // Toggle a1.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})      // Toggle a2.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}) // Untoggle a2.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	out := m.Outcome()
	require.Equal(t, picker.OutcomeMultiSelected, out.Kind)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "a1", out.Items[0].Display)
}

func TestModelSelectAllAndClearAll(t *testing.T) {
	m := newStaticModel(t, picker.Options{Multiselect: true}, "a1", "a2")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	view := m.View()
	assert.Contains(t, view, "*")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.NotContains(t, m.View(), "*")
}

func TestModelQueryEditingKeys(t *testing.T) {
	m := newStaticModel(t, picker.Options{}, "apple pie", "apple")

	m, _ = update(t, m, keyRunes("apple pi"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Contains(t, m.View(), "apple ")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlU})
	view := m.View()
	assert.Contains(t, view, "apple pie")
	assert.Contains(t, view, "apple")
}

func TestModelSpaceInsertsIntoQuery(t *testing.T) {
	m := newStaticModel(t, picker.Options{}, "a b", "ab")

	m, _ = update(t, m, keyRunes("a"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m, _ = update(t, m, keyRunes("b"))

	view := m.View()
	assert.Contains(t, view, "a b")
	assert.NotContains(t, view, "ab")
}

func TestModelEmptyViewShowsNoMatches(t *testing.T) {
	m := newStaticModel(t, picker.Options{}, "apple")
	m, _ = update(t, m, keyRunes("zzz"))
	assert.Contains(t, m.View(), "No matches")
}

// --- Async source integration ---

func newAsyncModel(t *testing.T, producer source.Producer) (Model, *source.Adapter) {
	t.Helper()
	coll := item.NewCollection(nil)
	session := picker.New(coll, picker.Options{})
	adapter := source.NewAdapter(producer, source.Config{
		Timeout: time.Second,
		Gate:    source.NewGate(4),
	})
	m := NewModel(session, coll, adapter, 10*time.Millisecond)

	updated, _ := m.Update(initMsg{})
	model, ok := updated.(Model)
	require.True(t, ok)
	return model, adapter
}

func TestModelDebounceIssuesRequest(t *testing.T) {
	var calls atomic.Int32
	producer := source.ProducerFunc(func(_ context.Context, query string) ([]item.Item, error) {
		calls.Add(1)
		return []item.Item{{Identity: "r:" + query, Display: "result " + query}}, nil
	})

	m, adapter := newAsyncModel(t, producer)
	defer adapter.Close()

	// Start fires the first pending request; its debounce id is 1.
	m, _ = update(t, m, debounceMsg{id: m.debounceID})
	assert.True(t, m.loading)

	// The goroutine delivers; pull the result the way the program
	// loop would.
	msg := m.listen()()
	m, _ = update(t, m, msg)

	assert.False(t, m.loading)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, m.View(), "result")
}

func TestModelStaleDebounceIgnored(t *testing.T) {
	var calls atomic.Int32
	producer := source.ProducerFunc(func(context.Context, string) ([]item.Item, error) {
		calls.Add(1)
		return nil, nil
	})

	m, adapter := newAsyncModel(t, producer)
	defer adapter.Close()

	// Typing supersedes the initial debounce timer.
	m, _ = update(t, m, keyRunes("a"))
	stale := m.debounceID - 1

	m, _ = update(t, m, debounceMsg{id: stale})
	assert.False(t, m.loading)
	assert.Equal(t, int32(0), calls.Load(), "stale debounce must not issue a request")
}

func TestModelKeystrokeTimerCarriesCurrentDebounceID(t *testing.T) {
	m, adapter := newAsyncModel(t, source.ProducerFunc(
		func(context.Context, string) ([]item.Item, error) { return nil, nil },
	))
	defer adapter.Close()

	m, cmd := update(t, m, keyRunes("a"))
	require.NotNil(t, cmd)

	// The returned model and the timer it scheduled must agree on the
	// debounce id, or the timer's expiry would be treated as stale.
	msg := cmd()
	dm, ok := msg.(debounceMsg)
	require.True(t, ok)
	assert.Equal(t, m.debounceID, dm.id)
}

func TestModelSourceNoticeShown(t *testing.T) {
	m, adapter := newAsyncModel(t, source.ProducerFunc(
		func(context.Context, string) ([]item.Item, error) { return nil, nil },
	))
	defer adapter.Close()

	m, _ = update(t, m, sourceMsg{result: source.Result{
		Notice: &source.Notice{Kind: source.NoticeTimeout},
	}})
	assert.Contains(t, m.View(), "timed out")
}

func TestNoticeText(t *testing.T) {
	assert.Equal(t, "source timed out", noticeText(&source.Notice{Kind: source.NoticeTimeout}))
	assert.Equal(t, "", noticeText(&source.Notice{Kind: source.NoticeCancelled}))
	assert.Equal(t, "source busy, request dropped", noticeText(&source.Notice{Kind: source.NoticeDropped}))
	assert.Equal(t, "source failed", noticeText(&source.Notice{Kind: source.NoticeFailed}))
}

func TestModelWindowResizeTruncates(t *testing.T) {
	m := newStaticModel(t, picker.Options{},
		"an extremely long item display text that will not fit in a narrow terminal at all")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 24, Height: 10})
	assert.Contains(t, m.View(), "…")
}
