package domain

import (
	"encoding/json"
	"slices"
	"sort"
	"strconv"
)

// Card is one selectable vote value. Integer cards take part in
// statistics; symbolic ones (sizes, Unknown) only count as cast.
type Card string

const (
	NoVote  Card = ""
	Unknown Card = "?"
)

// Int reports the numeric value of an integer card.
func (c Card) Int() (int, bool) {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c Card) MarshalJSON() ([]byte, error) {
	if c == NoVote {
		return []byte("null"), nil
	}
	if n, ok := c.Int(); ok {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(c))
}

func (c *Card) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = NoVote
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = Card(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = Card(s)
	return nil
}

func cards(vals ...string) []Card {
	out := make([]Card, len(vals))
	for i, v := range vals {
		out[i] = Card(v)
	}
	return out
}

var presets = map[string][]Card{
	"fibonacci":          cards("1", "2", "3", "5", "8", "13", "21", "?"),
	"modified_fibonacci": cards("0", "1", "2", "3", "5", "8", "13", "21", "34", "?"),
	"tshirt":             cards("XS", "S", "M", "L", "XL", "XXL", "?"),
	"simple":             cards("1", "2", "3", "4", "5", "?"),
	"powers_of_2":        cards("1", "2", "4", "8", "16", "32", "?"),
}

// PresetCards returns a copy of the named preset.
func PresetCards(name string) ([]Card, bool) {
	c, ok := presets[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(c), true
}

// Presets lists the preset names in a stable order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
