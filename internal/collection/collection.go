// Package collection holds the user's saved cards: the persisted store, the
// duplicate-checked save logic and the in-memory manager the surfaces share.
package collection

import (
	"github.com/hpungsan/binder/internal/card"
)

// Collection is an ordered list of saved cards, unique by card ID.
type Collection []card.Card

// Contains reports whether a card with the given ID is saved.
func (c Collection) Contains(id string) bool {
	return card.IndexByID(c, id) >= 0
}

// Get returns the saved card with the given ID.
func (c Collection) Get(id string) (card.Card, bool) {
	if i := card.IndexByID(c, id); i >= 0 {
		return c[i], true
	}
	return card.Card{}, false
}

// IDs returns the card IDs in insertion order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, cd := range c {
		ids[i] = cd.ID
	}
	return ids
}

// Clone returns a copy whose backing array is not shared with c.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// dedupe drops cards with an empty ID and any later card repeating an ID.
// Returns the cleaned collection and how many entries were dropped.
func dedupe(c Collection) (Collection, int) {
	seen := make(map[string]bool, len(c))
	out := make(Collection, 0, len(c))
	for _, cd := range c {
		if cd.ID == "" || seen[cd.ID] {
			continue
		}
		seen[cd.ID] = true
		out = append(out, cd)
	}
	return out, len(c) - len(out)
}
