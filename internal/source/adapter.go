// Package source adapts asynchronous item producers to the picker. A
// new request supersedes any undelivered one; only the most recent
// request's result is ever delivered, so the view cannot regress to
// stale data regardless of producer cooperation.
package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/runger/selecta/internal/item"
)

// DefaultTimeout bounds one producer invocation when the host does not
// configure its own limit.
const DefaultTimeout = 1 * time.Second

// Producer yields an item batch for an effective query. Implementations
// must be cancel-safe: Produce may be invoked again before a prior call
// returns, and should honor ctx promptly.
type Producer interface {
	Produce(ctx context.Context, query string) ([]item.Item, error)
}

// ProducerFunc adapts a plain function to Producer.
type ProducerFunc func(ctx context.Context, query string) ([]item.Item, error)

// Produce implements Producer.
func (f ProducerFunc) Produce(ctx context.Context, query string) ([]item.Item, error) {
	return f(ctx, query)
}

// NoticeKind classifies recoverable production signals. None of them is
// fatal; each round that raises one delivers an empty batch.
type NoticeKind int

const (
	NoticeTimeout NoticeKind = iota
	NoticeCancelled
	NoticeFailed
	NoticeDropped
)

// Notice is the informational signal surfaced to the host for a
// production round that yielded nothing.
type Notice struct {
	Kind NoticeKind
	Err  error
}

// Result is one delivered production round. Seq identifies the request;
// stale rounds are discarded before delivery, so consumers only ever
// see the latest.
type Result struct {
	Seq    uint64
	Items  []item.Item
	Notice *Notice
}

// Config tunes one adapter.
type Config struct {
	Timeout time.Duration // 0 = DefaultTimeout
	Gate    *Gate         // nil = the process-wide gate
	Logger  *slog.Logger  // nil = slog.Default
}

// Adapter owns the async production side of one picker session.
type Adapter struct {
	producer Producer
	timeout  time.Duration
	gate     *Gate
	logger   *slog.Logger

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	deliver func(Result)
	closed  bool
}

// NewAdapter wraps a producer.
func NewAdapter(p Producer, cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Gate == nil {
		cfg.Gate = ProcessGate(defaultGateCap)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		producer: p,
		timeout:  cfg.Timeout,
		gate:     cfg.Gate,
		logger:   cfg.Logger,
	}
}

// OnResult registers the delivery callback. It runs on a producer
// goroutine; hosts that require single-threaded mutation must funnel
// the Result onto their own loop.
func (a *Adapter) OnResult(fn func(Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deliver = fn
}

// Request starts a production round for query, superseding and
// cancelling any round still in flight. When the process-wide gate is
// full the round is dropped immediately with a NoticeDropped. The wait
// is bounded by the configured timeout whether or not the producer
// honors its context.
func (a *Adapter) Request(query string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.seq++
	seq := a.seq

	if !a.gate.TryAcquire() {
		a.mu.Unlock()
		a.logger.Warn("producer gate full, dropping request", "seq", seq)
		a.finish(seq, nil, nil, &Notice{Kind: NoticeDropped})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	a.cancel = cancel
	a.mu.Unlock()

	// The outer goroutine bounds the wait with ctx; the inner one keeps
	// the gate slot until the producer actually returns, so a producer
	// that ignores cancellation costs a slot, not a hang.
	go func() {
		type produced struct {
			items []item.Item
			err   error
		}
		out := make(chan produced, 1)
		go func() {
			defer a.gate.Release()
			items, err := a.producer.Produce(ctx, query)
			out <- produced{items: items, err: err}
		}()
		select {
		case p := <-out:
			a.finish(seq, p.items, p.err, nil)
		case <-ctx.Done():
			a.finish(seq, nil, ctx.Err(), nil)
		}
	}()
}

// Close cancels any in-flight round. Results arriving afterward are
// dropped.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// finish applies the drop-on-supersede rule and classifies errors into
// recoverable notices before delivering.
func (a *Adapter) finish(seq uint64, items []item.Item, err error, notice *Notice) {
	a.mu.Lock()
	if a.closed || seq != a.seq {
		a.mu.Unlock()
		return
	}
	deliver := a.deliver
	a.mu.Unlock()

	if notice == nil && err != nil {
		items = nil
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			notice = &Notice{Kind: NoticeTimeout, Err: err}
		case errors.Is(err, context.Canceled):
			// Supersede and Close are dropped above, so this is a
			// producer surfacing its own internal cancellation.
			notice = &Notice{Kind: NoticeCancelled, Err: err}
		default:
			a.logger.Warn("producer failed", "seq", seq, "error", err)
			notice = &Notice{Kind: NoticeFailed, Err: err}
		}
	}

	if deliver != nil {
		deliver(Result{Seq: seq, Items: items, Notice: notice})
	}
}
