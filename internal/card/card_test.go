package card

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const charizardJSON = `{
  "id": "base1-4",
  "name": "Charizard",
  "supertype": "Pokémon",
  "subtypes": ["Stage 2"],
  "hp": "120",
  "types": ["Fire"],
  "rarity": "Rare Holo",
  "number": "4",
  "artist": "Mitsuhiro Arita",
  "flavorText": "Spits fire that is hot enough to melt boulders.",
  "set": {"id": "base1", "name": "Base", "series": "Base"},
  "attacks": [
    {"name": "Fire Spin", "cost": ["Fire", "Fire", "Fire", "Fire"], "damage": "100", "text": "Discard 2 Energy cards."}
  ],
  "images": {
    "small": "https://images.pokemontcg.io/base1/4.png",
    "large": "https://images.pokemontcg.io/base1/4_hires.png"
  },
  "tcgplayer": {"prices": {"holofoil": {"low": 200.0, "market": 350.25}}}
}`

func TestUnmarshalJSON(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(charizardJSON), &c))

	assert.Equal(t, "base1-4", c.ID)
	assert.Equal(t, "Charizard", c.Name)
	assert.Equal(t, "https://images.pokemontcg.io/base1/4.png", c.Images.Small)
	assert.Equal(t, "https://images.pokemontcg.io/base1/4_hires.png", c.Images.Large)

	assert.NotContains(t, c.Attributes, "id")
	assert.NotContains(t, c.Attributes, "name")
	assert.NotContains(t, c.Attributes, "images")
	assert.Contains(t, c.Attributes, "tcgplayer")
}

func TestUnmarshalJSON_Null(t *testing.T) {
	var c Card
	err := json.Unmarshal([]byte(`null`), &c)
	require.Error(t, err)
}

func TestUnmarshalJSON_WrongShape(t *testing.T) {
	var c Card
	require.Error(t, json.Unmarshal([]byte(`{"id": 42}`), &c))
	require.Error(t, json.Unmarshal([]byte(`[1, 2]`), &c))
}

func TestMarshalJSON_RoundTrip(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(charizardJSON), &c))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	// Compare as generic JSON so key order does not matter
	var want, got map[string]any
	require.NoError(t, json.Unmarshal([]byte(charizardJSON), &want))
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want, got)
}

func TestMarshalJSON_OmitsEmptyImages(t *testing.T) {
	data, err := json.Marshal(Card{ID: "x-1", Name: "X"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x-1","name":"X"}`, string(data))
}

func TestAttributeHelpers(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(charizardJSON), &c))

	assert.Equal(t, "Pokémon", c.Supertype())
	assert.Equal(t, []string{"Stage 2"}, c.Subtypes())
	assert.Equal(t, "120", c.HP())
	assert.Equal(t, []string{"Fire"}, c.Types())
	assert.Equal(t, "Rare Holo", c.Rarity())
	assert.Equal(t, "4", c.Number())
	assert.Equal(t, "Mitsuhiro Arita", c.Artist())
	assert.Equal(t, "Base", c.SetName())
	assert.Equal(t, "base1", c.Set().ID)
	assert.Contains(t, c.FlavorText(), "melt boulders")

	attacks := c.Attacks()
	require.Len(t, attacks, 1)
	assert.Equal(t, "Fire Spin", attacks[0].Name)
	assert.Equal(t, "100", attacks[0].Damage)
	assert.Len(t, attacks[0].Cost, 4)

	price, ok := c.MarketPrice()
	assert.True(t, ok)
	assert.InDelta(t, 350.25, price, 0.001)
}

func TestAttributeHelpers_Missing(t *testing.T) {
	c := Card{ID: "x-1", Name: "X"}

	assert.Empty(t, c.Supertype())
	assert.Nil(t, c.Attacks())
	assert.Empty(t, c.SetName())

	_, ok := c.MarketPrice()
	assert.False(t, ok)
}

func TestAttributeHelpers_WrongType(t *testing.T) {
	c := Card{
		ID:         "x-1",
		Attributes: map[string]json.RawMessage{"hp": json.RawMessage(`120`)},
	}
	assert.Empty(t, c.HP(), "numeric hp should decode as zero value, not panic")
}

func TestSameCard(t *testing.T) {
	a := Card{ID: "base1-4", Name: "Charizard"}
	b := Card{ID: "base1-4", Name: "Charizard (reprint)"}
	c := Card{ID: "base1-5", Name: "Charizard"}

	assert.True(t, SameCard(a, b), "same id means same card regardless of other fields")
	assert.False(t, SameCard(a, c))
}

func TestIndexByID(t *testing.T) {
	cards := []Card{{ID: "a-1"}, {ID: "b-2"}, {ID: "c-3"}}

	assert.Equal(t, 1, IndexByID(cards, "b-2"))
	assert.Equal(t, -1, IndexByID(cards, "z-9"))
	assert.Equal(t, -1, IndexByID(nil, "a-1"))
}
