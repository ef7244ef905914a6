package poi

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/olablt/placemap/markers"
)

type overpassResponse struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Tags   map[string]string `json:"tags"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
}

// decode parses an Overpass JSON response into POIs, dropping elements
// without tags, position or a usable name.
func decode(r io.Reader) ([]markers.POI, error) {
	var resp overpassResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding overpass response: %w", err)
	}
	pois := make([]markers.POI, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if p, ok := el.toPOI(); ok {
			pois = append(pois, p)
		}
	}
	return pois, nil
}

func (el element) toPOI() (markers.POI, bool) {
	if len(el.Tags) == 0 {
		return markers.POI{}, false
	}

	var lat, lon float64
	switch {
	case el.Lat != nil && el.Lon != nil:
		lat, lon = *el.Lat, *el.Lon
	case el.Center != nil:
		lat, lon = el.Center.Lat, el.Center.Lon
	default:
		return markers.POI{}, false
	}

	name := nameFromTags(el.Tags)
	if name == "" {
		return markers.POI{}, false
	}

	t := el.Tags
	typ := firstNonEmpty(t["amenity"], t["shop"], t["tourism"], t["leisure"], "other")
	return markers.POI{
		ID:           fmt.Sprintf("%s-%d", el.Type, el.ID),
		Name:         name,
		Type:         typ,
		Category:     Categorize(t),
		Lat:          lat,
		Lng:          lon,
		Tags:         t,
		Cuisine:      t["cuisine"],
		OpeningHours: t["opening_hours"],
		Website:      t["website"],
		Phone:        t["phone"],
		Street:       t["addr:street"],
		HouseNumber:  t["addr:housenumber"],
	}, true
}

// nameFromTags prefers name, then brand, then a title-cased amenity, shop
// or tourism value.
func nameFromTags(tags map[string]string) string {
	if n := firstNonEmpty(tags["name"], tags["brand"]); n != "" {
		return n
	}
	return titleCase(firstNonEmpty(tags["amenity"], tags["shop"], tags["tourism"]))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r, n := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[n:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Categorize assigns a marker category from OSM tags.
func Categorize(tags map[string]string) markers.Category {
	amenity, shop, tourism, leisure := tags["amenity"], tags["shop"], tags["tourism"], tags["leisure"]
	switch {
	case slices.Contains([]string{"restaurant", "fast_food", "cafe", "pub", "bar", "ice_cream"}, amenity):
		return markers.CategoryRestaurantBar
	case slices.Contains([]string{"supermarket", "convenience", "bakery", "butcher", "greengrocer"}, shop):
		return markers.CategoryGrocery
	case slices.Contains([]string{"attraction", "museum", "viewpoint", "monument"}, tourism):
		return markers.CategoryTourism
	case slices.Contains([]string{"hospital", "pharmacy", "bank", "atm"}, amenity):
		return markers.CategoryServices
	case slices.Contains([]string{"park", "playground", "sports_centre", "fitness_centre"}, leisure):
		return markers.CategoryLeisure
	case slices.Contains([]string{"fuel", "parking"}, amenity):
		return markers.CategoryTransport
	}
	return markers.CategoryOther
}
