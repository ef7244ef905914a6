// Package poi fetches points of interest for a viewport from an Overpass
// API endpoint.
package poi

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// DefaultCategories are the query groups requested when none are given.
var DefaultCategories = []string{"restaurant", "cafe", "shop", "tourism", "leisure", "amenity"}

// queryFilters maps a query group to its Overpass tag filter.
var queryFilters = map[string]string{
	"restaurant": `node["amenity"~"^(restaurant|fast_food|pub|bar)$"]`,
	"cafe":       `node["amenity"~"^(cafe|ice_cream)$"]`,
	"shop":       `node["shop"~"^(supermarket|convenience|bakery|butcher|greengrocer)$"]`,
	"tourism":    `node["tourism"~"^(attraction|museum|viewpoint|monument)$"]`,
	"leisure":    `node["leisure"~"^(park|playground|sports_centre|fitness_centre)$"]`,
	"amenity":    `node["amenity"~"^(hospital|pharmacy|bank|atm|fuel|parking)$"]`,
}

// bbox formats b in Overpass order: south,west,north,east.
func bbox(b orb.Bound) string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Bottom(), b.Left(), b.Top(), b.Right())
}

// BuildQuery returns the Overpass QL union of the requested groups inside b.
// Unknown groups are ignored.
func BuildQuery(b orb.Bound, categories []string) string {
	box := bbox(b)
	var sb strings.Builder
	sb.WriteString("[out:json][timeout:25];\n(\n")
	for _, c := range categories {
		filter, ok := queryFilters[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "  %s(%s);\n", filter, box)
	}
	sb.WriteString(");\nout center;\n")
	return sb.String()
}

func cacheKey(b orb.Bound, categories []string) string {
	return bbox(b) + "|" + strings.Join(categories, ",")
}
