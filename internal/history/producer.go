package history

import (
	"context"

	"github.com/runger/selecta/internal/item"
	"github.com/runger/selecta/internal/source"
)

// RecentsProducer serves the recents store through the async source
// adapter, so "pick from recent selections" behaves like any other
// incremental producer.
type RecentsProducer struct {
	store *Store
	limit int
}

// Compile-time check that RecentsProducer implements source.Producer.
var _ source.Producer = (*RecentsProducer)(nil)

// NewRecentsProducer wraps a store. limit caps each batch.
func NewRecentsProducer(store *Store, limit int) *RecentsProducer {
	return &RecentsProducer{store: store, limit: limit}
}

// Produce implements source.Producer.
func (p *RecentsProducer) Produce(ctx context.Context, query string) ([]item.Item, error) {
	return p.store.Recent(ctx, query, p.limit)
}
