package ops

import (
	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/collection"
	"github.com/hpungsan/binder/internal/viewer"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxSaveCodes     = 50
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// CardSummary is the compact form of a card used in lists.
type CardSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Supertype  string `json:"supertype,omitempty"`
	Rarity     string `json:"rarity,omitempty"`
	SetName    string `json:"set_name,omitempty"`
	Number     string `json:"number,omitempty"`
	ImageSmall string `json:"image_small,omitempty"`
	Saved      bool   `json:"saved"`
}

// Summarize builds a CardSummary.
func Summarize(c card.Card, saved bool) CardSummary {
	return CardSummary{
		ID:         c.ID,
		Name:       c.Name,
		Supertype:  c.Supertype(),
		Rarity:     c.Rarity(),
		SetName:    c.SetName(),
		Number:     c.Number(),
		ImageSmall: c.Images.Small,
		Saved:      saved,
	}
}

// ViewOutput is a session state as the surfaces present it. Saved tells
// whether the selected card is already in the collection.
type ViewOutput struct {
	View       viewer.View    `json:"view"`
	Query      string         `json:"query,omitempty"`
	Candidates []CardSummary  `json:"candidates,omitempty"`
	Selected   *card.Card     `json:"selected,omitempty"`
	Saved      bool           `json:"saved"`
	Notice     *viewer.Notice `json:"notice,omitempty"`
	Generation uint64         `json:"generation"`
}

func buildView(st viewer.State, mgr *collection.Manager) *ViewOutput {
	out := &ViewOutput{
		View:       st.View,
		Query:      st.Query,
		Selected:   st.Selected,
		Notice:     st.Notice,
		Generation: st.Generation,
	}
	for _, c := range st.Candidates {
		out.Candidates = append(out.Candidates, Summarize(c, mgr.Contains(c.ID)))
	}
	if st.Selected != nil {
		out.Saved = mgr.Contains(st.Selected.ID)
	}
	return out
}
