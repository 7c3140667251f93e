package item

import (
	"log/slog"
	"sync"
)

// Collection is the live, append-only item set for one picker
// generation. The picker session reads it through Snapshot; the async
// delivery path appends to it. Existing entries are never mutated.
type Collection struct {
	mu      sync.RWMutex
	items   []Item
	seen    map[string]bool
	version uint64
	logger  *slog.Logger
}

// NewCollection creates an empty collection. A nil logger falls back to
// slog.Default.
func NewCollection(logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection{seen: make(map[string]bool), logger: logger}
}

// Append adds a batch of items, assigning OrderIndex in arrival order.
// Malformed items are excluded with a diagnostic; the rest of the batch
// is kept. An identity already present is skipped, keeping the
// collection append-only when a producer re-delivers overlapping
// batches. Returns the number of items actually appended.
func (c *Collection) Append(batch []Item) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, it := range batch {
		if err := Validate(it); err != nil {
			c.logger.Warn("dropping malformed item",
				"display", it.Display, "error", err)
			continue
		}
		if c.seen[it.Identity] {
			continue
		}
		c.seen[it.Identity] = true
		it.OrderIndex = len(c.items)
		c.items = append(c.items, it)
		n++
	}
	if n > 0 {
		c.version++
	}
	return n
}

// Snapshot returns a stable view of the collection taken atomically.
// Later appends grow a new backing state; the returned slice never
// changes underneath the caller.
func (c *Collection) Snapshot() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[:len(c.items):len(c.items)]
}

// Len returns the current item count.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Version increments on every successful append batch. Hosts can poll
// it to detect whether a refresh is needed.
func (c *Collection) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
