package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/selecta/internal/item"
)

// resultSink collects delivered results for assertions.
type resultSink struct {
	mu      sync.Mutex
	results []Result
}

func (s *resultSink) deliver(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *resultSink) all() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

func (s *resultSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// gatedProducer blocks each Produce call until the matching query is
// released, ignoring context cancellation, to simulate an
// uncooperative producer resolving out of order.
type gatedProducer struct {
	mu       sync.Mutex
	releases map[string]chan struct{}
}

func newGatedProducer() *gatedProducer {
	return &gatedProducer{releases: make(map[string]chan struct{})}
}

func (p *gatedProducer) gateFor(query string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.releases[query]
	if !ok {
		ch = make(chan struct{})
		p.releases[query] = ch
	}
	return ch
}

func (p *gatedProducer) release(query string) {
	close(p.gateFor(query))
}

func (p *gatedProducer) Produce(_ context.Context, query string) ([]item.Item, error) {
	<-p.gateFor(query)
	return []item.Item{{Identity: query, Display: query}}, nil
}

func testConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Gate:    NewGate(8),
	}
}

func TestAdapterDeliversLatestOnly(t *testing.T) {
	producer := newGatedProducer()
	sink := &resultSink{}

	a := NewAdapter(producer, testConfig())
	a.OnResult(sink.deliver)

	a.Request("a")
	a.Request("ab")
	a.Request("abc")

	// Resolve out of order: newest first, oldest last.
	producer.release("abc")
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)

	producer.release("ab")
	producer.release("a")

	// Superseded results must be silently discarded, never merged.
	assert.Never(t, func() bool { return sink.count() > 1 },
		100*time.Millisecond, 10*time.Millisecond)

	results := sink.all()
	require.Len(t, results[0].Items, 1)
	assert.Equal(t, "abc", results[0].Items[0].Display)
	assert.Nil(t, results[0].Notice)
}

func TestAdapterTimeoutIsRecoverable(t *testing.T) {
	producer := ProducerFunc(func(ctx context.Context, _ string) ([]item.Item, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	sink := &resultSink{}

	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	a := NewAdapter(producer, cfg)
	a.OnResult(sink.deliver)

	a.Request("slow")
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)

	r := sink.all()[0]
	assert.Empty(t, r.Items)
	require.NotNil(t, r.Notice)
	assert.Equal(t, NoticeTimeout, r.Notice.Kind)
}

func TestAdapterTimeoutBoundsUncooperativeProducer(t *testing.T) {
	producer := newGatedProducer()
	sink := &resultSink{}

	cfg := Config{
		Timeout: 20 * time.Millisecond,
		Gate:    NewGate(1),
	}
	a := NewAdapter(producer, cfg)
	a.OnResult(sink.deliver)

	// Produce blocks forever and never checks ctx; the timeout result
	// must arrive anyway.
	a.Request("hung")
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)
	r := sink.all()[0]
	assert.Empty(t, r.Items)
	require.NotNil(t, r.Notice)
	assert.Equal(t, NoticeTimeout, r.Notice.Kind)

	// The hung call still holds its gate slot, so the next round is
	// dropped rather than run past the concurrency cap.
	a.Request("starved")
	require.Eventually(t, func() bool { return sink.count() == 2 },
		time.Second, 5*time.Millisecond)
	require.NotNil(t, sink.all()[1].Notice)
	assert.Equal(t, NoticeDropped, sink.all()[1].Notice.Kind)

	// Once the producer finally returns, the slot frees up again.
	producer.release("hung")
	require.Eventually(t, func() bool {
		if !cfg.Gate.TryAcquire() {
			return false
		}
		cfg.Gate.Release()
		return true
	}, time.Second, 5*time.Millisecond)

	a.Request("fresh")
	producer.release("fresh")
	require.Eventually(t, func() bool { return sink.count() == 3 },
		time.Second, 5*time.Millisecond)
	last := sink.all()[2]
	assert.Nil(t, last.Notice)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "fresh", last.Items[0].Display)
}

func TestAdapterProducerInternalCancelIsQuiet(t *testing.T) {
	// A producer may surface context.Canceled from its own plumbing
	// while the round itself is still live.
	producer := ProducerFunc(func(context.Context, string) ([]item.Item, error) {
		return nil, context.Canceled
	})
	sink := &resultSink{}

	a := NewAdapter(producer, testConfig())
	a.OnResult(sink.deliver)

	a.Request("q")
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)

	r := sink.all()[0]
	assert.Empty(t, r.Items)
	require.NotNil(t, r.Notice)
	assert.Equal(t, NoticeCancelled, r.Notice.Kind)
}

func TestAdapterProducerErrorIsRecoverable(t *testing.T) {
	producer := ProducerFunc(func(context.Context, string) ([]item.Item, error) {
		return nil, errors.New("backend exploded")
	})
	sink := &resultSink{}

	a := NewAdapter(producer, testConfig())
	a.OnResult(sink.deliver)

	a.Request("q")
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)

	r := sink.all()[0]
	assert.Empty(t, r.Items)
	require.NotNil(t, r.Notice)
	assert.Equal(t, NoticeFailed, r.Notice.Kind)
}

func TestAdapterCloseDropsLateResults(t *testing.T) {
	producer := newGatedProducer()
	sink := &resultSink{}

	a := NewAdapter(producer, testConfig())
	a.OnResult(sink.deliver)

	a.Request("q")
	a.Close()
	producer.release("q")

	assert.Never(t, func() bool { return sink.count() > 0 },
		100*time.Millisecond, 10*time.Millisecond)
}

func TestAdapterRequestAfterCloseIsNoop(t *testing.T) {
	producer := newGatedProducer()
	sink := &resultSink{}

	a := NewAdapter(producer, testConfig())
	a.OnResult(sink.deliver)
	a.Close()

	a.Request("q")
	assert.Never(t, func() bool { return sink.count() > 0 },
		100*time.Millisecond, 10*time.Millisecond)
}

func TestAdapterGateDropsExcess(t *testing.T) {
	producer := newGatedProducer()
	first := &resultSink{}
	second := &resultSink{}

	cfg := testConfig()
	cfg.Gate = NewGate(1)

	// Two sessions share one gate: the second session's request finds
	// the gate full and is dropped with a notice.
	a1 := NewAdapter(producer, cfg)
	a1.OnResult(first.deliver)
	a2 := NewAdapter(producer, cfg)
	a2.OnResult(second.deliver)

	a1.Request("busy")
	a2.Request("starved")

	require.Eventually(t, func() bool { return second.count() == 1 },
		time.Second, 5*time.Millisecond)
	r := second.all()[0]
	assert.Empty(t, r.Items)
	require.NotNil(t, r.Notice)
	assert.Equal(t, NoticeDropped, r.Notice.Kind)

	// Releasing the first request lets it deliver normally.
	producer.release("busy")
	require.Eventually(t, func() bool { return first.count() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Nil(t, first.all()[0].Notice)
}

func TestGateTryAcquire(t *testing.T) {
	g := NewGate(2)
	require.True(t, g.TryAcquire())
	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())

	g.Release()
	assert.True(t, g.TryAcquire())
}

func TestGateMinimumCapacity(t *testing.T) {
	g := NewGate(0)
	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
}

func TestProcessGateFixedAtFirstUse(t *testing.T) {
	g1 := ProcessGate(3)
	g2 := ProcessGate(99)
	assert.Same(t, g1, g2)
}
