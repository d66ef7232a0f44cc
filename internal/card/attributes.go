package card

import "encoding/json"

// Attack is one attack entry from a card's "attacks" attribute.
type Attack struct {
	Name   string   `json:"name"`
	Cost   []string `json:"cost,omitempty"`
	Damage string   `json:"damage,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Set is the expansion a card was printed in.
type Set struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Series string `json:"series,omitempty"`
}

// attr decodes attribute key into T, returning the zero value when the
// attribute is absent or has an unexpected shape.
func attr[T any](c Card, key string) T {
	var v T
	raw, ok := c.Attributes[key]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

func (c Card) Supertype() string { return attr[string](c, "supertype") }
func (c Card) Subtypes() []string { return attr[[]string](c, "subtypes") }
func (c Card) HP() string { return attr[string](c, "hp") }
func (c Card) Types() []string { return attr[[]string](c, "types") }
func (c Card) Rarity() string { return attr[string](c, "rarity") }
func (c Card) Number() string { return attr[string](c, "number") }
func (c Card) Artist() string { return attr[string](c, "artist") }
func (c Card) FlavorText() string { return attr[string](c, "flavorText") }
func (c Card) Rules() []string { return attr[[]string](c, "rules") }
func (c Card) Attacks() []Attack { return attr[[]Attack](c, "attacks") }
func (c Card) Set() Set { return attr[Set](c, "set") }

// SetName is a template convenience for Set().Name.
func (c Card) SetName() string { return c.Set().Name }

// MarketPrice returns the first TCGplayer market price found across the
// card's price variants (normal, holofoil, ...), and false if there is none.
func (c Card) MarketPrice() (float64, bool) {
	type variant struct {
		Market *float64 `json:"market"`
	}
	type tcgplayer struct {
		Prices map[string]variant `json:"prices"`
	}
	tp := attr[tcgplayer](c, "tcgplayer")
	for _, name := range []string{"normal", "holofoil", "reverseHolofoil", "1stEditionHolofoil", "unlimitedHolofoil"} {
		if v, ok := tp.Prices[name]; ok && v.Market != nil {
			return *v.Market, true
		}
	}
	return 0, false
}
