package ops

import (
	"strings"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/collection"
)

// ListSavedInput contains parameters for the ListSaved operation.
type ListSavedInput struct {
	NamePrefix string // optional, matched against the normalized name
	Supertype  string // optional, exact match ignoring case
	Rarity     string // optional, exact match ignoring case
	Limit      int    // default: 20, max: 100
	Offset     int    // default: 0
}

// ListSavedOutput contains the result of the ListSaved operation.
type ListSavedOutput struct {
	Items      []CardSummary `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// ListSaved returns saved card summaries in the order they were saved.
func ListSaved(mgr *collection.Manager, input ListSavedInput) (*ListSavedOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	prefix := card.Normalize(input.NamePrefix)
	supertype := card.Normalize(input.Supertype)
	rarity := card.Normalize(input.Rarity)

	var matched []card.Card
	for _, c := range mgr.Cards() {
		if prefix != "" && !strings.HasPrefix(card.Normalize(c.Name), prefix) {
			continue
		}
		if supertype != "" && card.Normalize(c.Supertype()) != supertype {
			continue
		}
		if rarity != "" && card.Normalize(c.Rarity()) != rarity {
			continue
		}
		matched = append(matched, c)
	}

	total := len(matched)
	items := []CardSummary{}
	if offset < total {
		end := min(offset+limit, total)
		for _, c := range matched[offset:end] {
			items = append(items, Summarize(c, true))
		}
	}

	return &ListSavedOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "saved_order",
	}, nil
}
