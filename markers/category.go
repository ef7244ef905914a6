// Package markers holds the caller-supplied map markers and their styling.
package markers

import (
	"image/color"
	"strings"
)

type Category int

const (
	CategoryOther Category = iota
	CategoryGrocery
	CategoryRestaurantBar
	CategoryTourism
	CategoryServices
	CategoryLeisure
	CategoryTransport
)

var categoryNames = [...]string{
	CategoryOther:         "other",
	CategoryGrocery:       "grocery",
	CategoryRestaurantBar: "restaurant-bar",
	CategoryTourism:       "tourism",
	CategoryServices:      "services",
	CategoryLeisure:       "leisure",
	CategoryTransport:     "transport",
}

// ParseCategory maps a category name to its Category. Unknown names map to
// CategoryOther.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if name == s {
			return Category(c)
		}
	}
	return CategoryOther
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[CategoryOther]
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	*c = ParseCategory(string(text))
	return nil
}

// Style is how a marker of some category is painted.
type Style struct {
	Color color.NRGBA
	Glyph string
}

func rgb(hex uint32) color.NRGBA {
	return color.NRGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
}

var glyphs = map[Category]string{
	CategoryGrocery:       "G",
	CategoryRestaurantBar: "R",
	CategoryTourism:       "T",
	CategoryServices:      "S",
	CategoryLeisure:       "L",
	CategoryTransport:     "P",
	CategoryOther:         "*",
}

// Saved locations only distinguish grocery and restaurant-bar.
var savedColors = map[Category]color.NRGBA{
	CategoryGrocery:       rgb(0x10B981),
	CategoryRestaurantBar: rgb(0xF59E0B),
	CategoryOther:         rgb(0x8B5CF6),
}

var poiColors = map[Category]color.NRGBA{
	CategoryRestaurantBar: rgb(0xF59E0B),
	CategoryGrocery:       rgb(0x10B981),
	CategoryTourism:       rgb(0x3B82F6),
	CategoryServices:      rgb(0xEF4444),
	CategoryLeisure:       rgb(0x8B5CF6),
	CategoryTransport:     rgb(0x6B7280),
	CategoryOther:         rgb(0x6B7280),
}

func lookup(colors map[Category]color.NRGBA, c Category) Style {
	col, ok := colors[c]
	if !ok {
		col = colors[CategoryOther]
	}
	g, ok := glyphs[c]
	if !ok {
		g = glyphs[CategoryOther]
	}
	return Style{Color: col, Glyph: g}
}

// SavedStyle is the style of a saved-location pin.
func SavedStyle(c Category) Style { return lookup(savedColors, c) }

// POIStyle is the style of a point-of-interest disc.
func POIStyle(c Category) Style { return lookup(poiColors, c) }

// Label is a display name such as "Restaurant & Bar".
func (c Category) Label() string {
	words := strings.Split(strings.Replace(c.String(), "-", " & ", 1), " ")
	for i, w := range words {
		if w != "" && w != "&" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
