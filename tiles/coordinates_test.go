package tiles

import (
	"image"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoPixelRoundTrip(t *testing.T) {
	for zoom := 1; zoom <= MaxZoom; zoom++ {
		for lat := -85.0; lat <= 85.0; lat += 8.5 {
			for lng := -179.5; lng < 180; lng += 22.75 {
				x, y := GeoToPixel(LatLng{lat, lng}, float64(zoom))
				got := PixelToGeo(x, y, float64(zoom))
				require.InDelta(t, lat, got.Lat, 1e-6, "lat at z%d", zoom)
				require.InDelta(t, lng, got.Lng, 1e-6, "lng at z%d", zoom)
			}
		}
	}
}

func TestGeoToPixelKnownValues(t *testing.T) {
	x, y := GeoToPixel(LatLng{0, 0}, 0)
	assert.InDelta(t, 128, x, 1e-9)
	assert.InDelta(t, 128, y, 1e-9)

	x, y = GeoToPixel(LatLng{MaxLatitude, -180}, 1)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-3)
}

func TestGeoToTileIndexMatchesOrb(t *testing.T) {
	points := []LatLng{
		{51.507222, -0.1275},
		{-33.8688, 151.2093},
		{40.7128, -74.0060},
		{0.0001, 0.0001},
	}
	for _, ll := range points {
		for zoom := 1; zoom <= MaxZoom; zoom++ {
			got := GeoToTileIndex(ll, zoom)
			want := maptile.At(orb.Point{ll.Lng, ll.Lat}, maptile.Zoom(zoom))
			assert.Equal(t, int(want.X), got.X, "x for %v z%d", ll, zoom)
			assert.Equal(t, int(want.Y), got.Y, "y for %v z%d", ll, zoom)
		}
	}
}

func TestGeoToTileIndexAlwaysValid(t *testing.T) {
	extremes := []LatLng{
		{90, 180}, {-90, -180}, {89.9, 179.999}, {-89.9, -180},
		{MaxLatitude, 180}, {0, 540}, {math.NaN(), 0},
	}
	for zoom := 1; zoom <= MaxZoom; zoom++ {
		for _, ll := range extremes {
			key := GeoToTileIndex(ll, zoom)
			assert.True(t, key.Valid(), "%v at z%d gave %s", ll, zoom, key)
		}
	}
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, 18.0, ClampZoom(25))
	assert.Equal(t, 1.0, ClampZoom(-3))
	assert.Equal(t, 12.5, ClampZoom(12.5))
	assert.Equal(t, 1.0, ClampZoom(math.NaN()))
}

func TestVisibleTilesWindow(t *testing.T) {
	visible := VisibleTiles(LatLng{0, 0}, 13, image.Pt(800, 600))

	wantX := int(math.Ceil(800.0/256)) + 2
	wantY := int(math.Ceil(600.0/256)) + 2
	require.Len(t, visible, wantX*wantY)

	xs := map[int]bool{}
	ys := map[int]bool{}
	for _, k := range visible {
		assert.Equal(t, 13, k.Zoom)
		assert.True(t, k.Valid())
		xs[k.X] = true
		ys[k.Y] = true
	}
	assert.Len(t, xs, wantX)
	assert.Len(t, ys, wantY)
}

func TestVisibleTilesSkipsOutsideWorld(t *testing.T) {
	// the world is 2x2 tiles at zoom 1, so most of the window falls outside
	visible := VisibleTiles(LatLng{0, 0}, 1, image.Pt(800, 600))
	assert.Len(t, visible, 4)
	for _, k := range visible {
		assert.True(t, k.Valid())
	}
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1, 2))
	assert.False(t, IsFinite(math.Inf(1), 2))
	assert.False(t, IsFinite(1, math.NaN()))
}

func TestTileKey(t *testing.T) {
	assert.Equal(t, "13/4096/2048", TileKey{13, 4096, 2048}.String())
	assert.True(t, TileKey{2, 3, 3}.Valid())
	assert.False(t, TileKey{2, 4, 0}.Valid())
	assert.False(t, TileKey{2, -1, 0}.Valid())
}
