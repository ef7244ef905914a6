package tiles

import (
	"fmt"
	"image"
	"math"
)

const (
	TileSize = 256

	MinZoom = 1
	MaxZoom = 18

	// MaxLatitude is the latitude at which the Web-Mercator y coordinate
	// reaches the edge of the world square.
	MaxLatitude = 85.05112878
)

// TileKey identifies one raster tile in the XYZ scheme.
type TileKey struct {
	Zoom, X, Y int
}

// String returns the z/x/y path used by tile servers.
func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Zoom, k.X, k.Y)
}

// Valid reports whether the indices lie within [0, 2^zoom).
func (k TileKey) Valid() bool {
	if k.Zoom < 0 || k.Zoom > 30 {
		return false
	}
	n := 1 << k.Zoom
	return k.X >= 0 && k.Y >= 0 && k.X < n && k.Y < n
}

// LatLng represents a geographical point
type LatLng struct {
	Lat, Lng float64
}

// ClampZoom bounds a zoom level to [MinZoom, MaxZoom].
func ClampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(zoom, MaxZoom))
}

// worldSize is the width of the world square in pixels at zoom.
func worldSize(zoom float64) float64 {
	return TileSize * math.Exp2(zoom)
}

// GeoToPixel converts geographical coordinates to world pixel coordinates at
// the given (possibly fractional) zoom level. Latitudes outside
// ±MaxLatitude produce coordinates outside the world square and ±90 produces
// non-finite values.
func GeoToPixel(ll LatLng, zoom float64) (float64, float64) {
	size := worldSize(zoom)
	latRad := ll.Lat * math.Pi / 180
	x := (ll.Lng + 180) / 360 * size
	y := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * size
	return x, y
}

// PixelToGeo converts world pixel coordinates back to geographical coordinates
func PixelToGeo(x, y, zoom float64) LatLng {
	size := worldSize(zoom)
	lng := x/size*360 - 180
	n := math.Pi * (1 - 2*y/size)
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return LatLng{Lat: lat, Lng: lng}
}

// GeoToTileIndex returns the tile containing ll at zoom. Indices are
// constrained to the valid range for the zoom level.
func GeoToTileIndex(ll LatLng, zoom int) TileKey {
	x, y := GeoToPixel(ll, float64(zoom))
	n := 1 << zoom
	return TileKey{
		Zoom: zoom,
		X:    clampIndex(x/TileSize, n),
		Y:    clampIndex(y/TileSize, n),
	}
}

func clampIndex(v float64, n int) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v >= float64(n):
		return n - 1
	}
	return int(math.Floor(v))
}

// IsFinite reports whether both screen coordinates can be drawn.
func IsFinite(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsNaN(y) && !math.IsInf(x, 0) && !math.IsInf(y, 0)
}

// VisibleTiles returns the window of tiles needed to cover a screen of the
// given size around center: ceil(size/TileSize)+2 tiles along each axis.
// Tiles outside the world are skipped rather than clamped.
func VisibleTiles(center LatLng, zoom int, screenSize image.Point) []TileKey {
	centerTile := GeoToTileIndex(center, zoom)
	tilesX := ceilDiv(screenSize.X, TileSize) + 2
	tilesY := ceilDiv(screenSize.Y, TileSize) + 2

	startX := centerTile.X - tilesX/2
	startY := centerTile.Y - tilesY/2

	visible := make([]TileKey, 0, tilesX*tilesY)
	for x := startX; x < startX+tilesX; x++ {
		for y := startY; y < startY+tilesY; y++ {
			key := TileKey{Zoom: zoom, X: x, Y: y}
			if !key.Valid() {
				continue
			}
			visible = append(visible, key)
		}
	}
	return visible
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
