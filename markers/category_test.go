package markers

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryGrocery, ParseCategory("grocery"))
	assert.Equal(t, CategoryRestaurantBar, ParseCategory(" Restaurant-Bar "))
	assert.Equal(t, CategoryOther, ParseCategory("spaceport"))
	assert.Equal(t, CategoryOther, ParseCategory(""))
	assert.Equal(t, "other", Category(42).String())
}

func TestStylesFallBackToOther(t *testing.T) {
	assert.Equal(t, rgb(0x10B981), SavedStyle(CategoryGrocery).Color)
	assert.Equal(t, "G", SavedStyle(CategoryGrocery).Glyph)

	// saved locations have no tourism colour but keep the tourism glyph
	tourism := SavedStyle(CategoryTourism)
	assert.Equal(t, rgb(0x8B5CF6), tourism.Color)
	assert.Equal(t, "T", tourism.Glyph)

	assert.Equal(t, rgb(0x3B82F6), POIStyle(CategoryTourism).Color)
	assert.Equal(t, POIStyle(CategoryOther), POIStyle(Category(99)))
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Restaurant & Bar", CategoryRestaurantBar.Label())
	assert.Equal(t, "Grocery", CategoryGrocery.Label())
}

func TestSavedLocationJSON(t *testing.T) {
	var locs []SavedLocation
	err := json.Unmarshal([]byte(`[
		{"id": 7, "name": "Corner shop", "latitude": 51.5, "longitude": -0.12, "category": "grocery"},
		{"id": 8, "name": "Mystery", "latitude": 51.6, "longitude": -0.11, "category": "unknown"}
	]`), &locs)
	require.NoError(t, err)
	require.Len(t, locs, 2)

	assert.Equal(t, CategoryGrocery, locs[0].Category)
	assert.Equal(t, CategoryOther, locs[1].Category)
	assert.Equal(t, "7", locs[0].Key())
	assert.InDelta(t, -0.12, locs[0].LatLng().Lng, 1e-12)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "saved", KindSaved.String())
	assert.Equal(t, "poi", KindPOI.String())
	assert.Equal(t, "user", KindUser.String())
}

func TestReadSaved(t *testing.T) {
	locs, err := ReadSaved(strings.NewReader(`[{"id": 1, "name": "Cafe", "latitude": 54.68, "longitude": 25.28, "category": "restaurant-bar"}]`))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, CategoryRestaurantBar, locs[0].Category)

	_, err = ReadSaved(strings.NewReader(`{"id": 1}`))
	assert.Error(t, err)
}
