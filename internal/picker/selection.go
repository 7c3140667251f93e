package picker

import (
	"sort"

	"github.com/runger/selecta/internal/item"
)

// Selection tracks which item identities are marked, independent of
// filtering. Membership survives view recomputation and collection
// appends; it changes only through explicit toggle and bulk operations.
type Selection struct {
	members map[string]bool
}

// NewSelection creates an empty selection set.
func NewSelection() *Selection {
	return &Selection{members: make(map[string]bool)}
}

// Toggle flips membership for id and returns the new state.
func (s *Selection) Toggle(id string) bool {
	if s.members[id] {
		delete(s.members, id)
		return false
	}
	s.members[id] = true
	return true
}

// Set forces membership for id.
func (s *Selection) Set(id string, selected bool) {
	if selected {
		s.members[id] = true
		return
	}
	delete(s.members, id)
}

// Selected reports membership for id.
func (s *Selection) Selected(id string) bool {
	return s.members[id]
}

// Count returns the number of selected identities.
func (s *Selection) Count() int {
	return len(s.members)
}

// Clear removes every member.
func (s *Selection) Clear() {
	s.members = make(map[string]bool)
}

// Members resolves the selected identities against an item snapshot,
// ordered by OrderIndex. Identities with no item in the snapshot are
// skipped rather than invented.
func (s *Selection) Members(snapshot []item.Item) []item.Item {
	if len(s.members) == 0 {
		return nil
	}
	out := make([]item.Item, 0, len(s.members))
	for _, it := range snapshot {
		if s.members[it.Identity] {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// Identities returns the selected identity set as a slice, for the
// render callback. Order is unspecified.
func (s *Selection) Identities() []string {
	if len(s.members) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	return out
}
