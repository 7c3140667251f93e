// Package filter turns the live item collection plus the current query
// into an ordered filtered view. It is stateless given its inputs: the
// same snapshot and query always produce the same view.
package filter

import (
	"sort"
	"strings"

	"github.com/runger/selecta/internal/fuzzy"
	"github.com/runger/selecta/internal/item"
)

// Match pairs a surviving item with its score and matched rune
// positions. Retained marks items kept only to connect a matching
// descendant to its root in hierarchical mode; they carry no score and
// no positions.
type Match struct {
	Item      item.Item
	Score     int
	Positions []int
	Retained  bool
}

// View is the ordered result of one pipeline run.
type View []Match

// Pipeline applies the scoring function across an item snapshot and
// orders the survivors.
type Pipeline struct {
	// Hierarchical keeps ancestors of matching items visible and
	// orders strictly by OrderIndex.
	Hierarchical bool

	// PreserveOrder forces OrderIndex ordering in flat mode instead
	// of score-descending.
	PreserveOrder bool

	// Vocabulary enables the structured prefix filter. Nil disables
	// it; every query is then literal.
	Vocabulary Vocabulary
}

// EffectiveQuery returns the fuzzy portion of the query after any
// recognized sentinel prefix has been stripped. Async producers receive
// this, not the raw query.
func (p Pipeline) EffectiveQuery(query string) string {
	_, rest := splitPrefix(p.Vocabulary, query)
	return rest
}

// Run filters and orders the snapshot against the query. An empty
// snapshot yields an empty view. The caller is responsible for taking
// the snapshot atomically; Run never touches the live collection.
func (p Pipeline) Run(items []item.Item, query string) View {
	if len(items) == 0 {
		return nil
	}

	kinds, rest := splitPrefix(p.Vocabulary, query)

	view := make(View, 0, len(items))
	matched := make(map[string]bool, len(items))
	for _, it := range items {
		if kinds != nil && !kindAllowed(kinds, it.Kind) {
			continue
		}
		res, ok := fuzzy.Match(it.Text(), rest)
		if !ok {
			continue
		}
		view = append(view, Match{Item: it, Score: res.Score, Positions: res.Positions})
		matched[it.Identity] = true
	}

	if p.Hierarchical {
		view = p.retainAncestors(items, view, matched)
		// OrderIndex is the sole ordering key; retainAncestors
		// already emits in that order.
		return view
	}

	if p.PreserveOrder {
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].Item.OrderIndex < view[j].Item.OrderIndex
		})
		return view
	}

	sort.SliceStable(view, func(i, j int) bool {
		if view[i].Score != view[j].Score {
			return view[i].Score > view[j].Score
		}
		return view[i].Item.OrderIndex < view[j].Item.OrderIndex
	})
	return view
}

// retainAncestors rebuilds the view in OrderIndex order, keeping every
// item whose parent chain leads down to a match. Items are never
// reparented or reordered; a kept ancestor appears exactly where the
// original sequence put it.
func (p Pipeline) retainAncestors(items []item.Item, view View, matched map[string]bool) View {
	byID := make(map[string]item.Item, len(items))
	for _, it := range items {
		byID[it.Identity] = it
	}

	// Walk each match's parent chain and mark every ancestor.
	keep := make(map[string]bool, len(matched))
	for id := range matched {
		keep[id] = true
	}
	for id := range matched {
		it := byID[id]
		for it.ParentIdentity != "" {
			parent, ok := byID[it.ParentIdentity]
			if !ok || keep[parent.Identity] {
				break
			}
			keep[parent.Identity] = true
			it = parent
		}
	}

	scores := make(map[string]Match, len(view))
	for _, m := range view {
		scores[m.Item.Identity] = m
	}

	out := make(View, 0, len(keep))
	for _, it := range items {
		if !keep[it.Identity] {
			continue
		}
		if m, ok := scores[it.Identity]; ok && matched[it.Identity] {
			out = append(out, m)
			continue
		}
		out = append(out, Match{Item: it, Retained: true})
	}
	return out
}

func kindAllowed(kinds []string, kind string) bool {
	for _, k := range kinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}
