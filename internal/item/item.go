// Package item defines the selectable record and the append-only
// collection shared between a picker session and its async source.
package item

import "errors"

// ErrMissingIdentity is returned by Validate for an item with no identity.
var ErrMissingIdentity = errors.New("item has no identity")

// Item is one selectable record. Items are immutable once appended to a
// Collection; OrderIndex is assigned by the collection and never changes.
type Item struct {
	// Display is the text shown to the user.
	Display string

	// MatchText is the text the scorer runs against. Empty means
	// Display is used.
	MatchText string

	// Payload is an opaque caller value returned on selection.
	Payload any

	// Identity uniquely names the item within one generation,
	// independent of text or position. Required.
	Identity string

	// ParentIdentity links to an ancestor item in hierarchical mode.
	ParentIdentity string

	// Kind is an optional category tag used by the structured
	// prefix filter.
	Kind string

	// OrderIndex is the position in the original unfiltered
	// sequence. Assigned on append, never reassigned.
	OrderIndex int
}

// Text returns the string the scorer should run against.
func (it Item) Text() string {
	if it.MatchText != "" {
		return it.MatchText
	}
	return it.Display
}

// Validate reports whether the item carries the required fields.
func Validate(it Item) error {
	if it.Identity == "" {
		return ErrMissingIdentity
	}
	return nil
}
