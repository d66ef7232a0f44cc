package card

import (
	"encoding/json"
	"fmt"
)

// Images holds the card artwork URLs.
type Images struct {
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

// Card is a single card record from the card service.
// Identity is ID; everything beyond ID, Name and Images is kept verbatim in
// Attributes so the record round-trips through the store unchanged.
type Card struct {
	// ID is the service-assigned card code (e.g., "base1-4")
	ID string

	// Name is the display name (e.g., "Charizard")
	Name string

	// Images are the small and large artwork URLs
	Images Images

	// Attributes holds every other top-level field as raw JSON
	// (supertype, rarity, attacks, set, tcgplayer, ...)
	Attributes map[string]json.RawMessage
}

// reserved fields are decoded into struct fields, not Attributes.
var reserved = map[string]bool{"id": true, "name": true, "images": true}

// UnmarshalJSON decodes a card object, keeping unknown fields as raw JSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("card: expected object, got null")
	}

	var out Card
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("card: id: %w", err)
		}
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("card: name: %w", err)
		}
	}
	if raw, ok := fields["images"]; ok {
		if err := json.Unmarshal(raw, &out.Images); err != nil {
			return fmt.Errorf("card: images: %w", err)
		}
	}

	for k, v := range fields {
		if reserved[k] {
			continue
		}
		if out.Attributes == nil {
			out.Attributes = make(map[string]json.RawMessage, len(fields))
		}
		out.Attributes[k] = v
	}

	*c = out
	return nil
}

// MarshalJSON encodes the card back into the service's object shape.
func (c Card) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(c.Attributes)+3)
	for k, v := range c.Attributes {
		if reserved[k] {
			continue
		}
		fields[k] = v
	}
	fields["id"] = c.ID
	fields["name"] = c.Name
	if c.Images != (Images{}) {
		fields["images"] = c.Images
	}
	return json.Marshal(fields)
}

// SameCard reports whether two cards share an identity. Only IDs are compared.
func SameCard(a, b Card) bool {
	return a.ID == b.ID
}
