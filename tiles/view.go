package tiles

import (
	"image"
	"math"

	"github.com/paulmach/orb"
)

// ViewState is the part of the world currently displayed. OffsetX/OffsetY
// hold an uncommitted drag delta in screen pixels.
type ViewState struct {
	Center  LatLng
	Zoom    float64
	OffsetX float64
	OffsetY float64
}

// NewViewState returns a view centered on center with a clamped zoom.
func NewViewState(center LatLng, zoom float64) ViewState {
	return ViewState{Center: center, Zoom: ClampZoom(zoom)}
}

// CenterPixel is the world pixel of the committed center.
func (v ViewState) CenterPixel() (float64, float64) {
	return GeoToPixel(v.Center, v.Zoom)
}

// GeoToScreen places ll on a screen of the given size.
func (v ViewState) GeoToScreen(ll LatLng, size image.Point) (float64, float64) {
	cx, cy := v.CenterPixel()
	px, py := GeoToPixel(ll, v.Zoom)
	return float64(size.X)/2 + (px - cx) + v.OffsetX,
		float64(size.Y)/2 + (py - cy) + v.OffsetY
}

// ScreenToGeo returns the geographical point under screen position (x, y).
func (v ViewState) ScreenToGeo(x, y float64, size image.Point) LatLng {
	cx, cy := v.CenterPixel()
	wx := cx + (x - float64(size.X)/2) - v.OffsetX
	wy := cy + (y - float64(size.Y)/2) - v.OffsetY
	return PixelToGeo(wx, wy, v.Zoom)
}

// Commit folds the pending offset into the center and clears it.
func (v *ViewState) Commit() {
	if v.OffsetX == 0 && v.OffsetY == 0 {
		return
	}
	cx, cy := v.CenterPixel()
	v.Center = PixelToGeo(cx-v.OffsetX, cy-v.OffsetY, v.Zoom)
	v.OffsetX, v.OffsetY = 0, 0
}

// ResetOffset drops the pending offset without moving the center.
func (v *ViewState) ResetOffset() {
	v.OffsetX, v.OffsetY = 0, 0
}

// SetZoom sets the clamped zoom level and reports whether it changed.
func (v *ViewState) SetZoom(zoom float64) bool {
	zoom = ClampZoom(zoom)
	if zoom == v.Zoom {
		return false
	}
	v.Zoom = zoom
	return true
}

// TileZoom is the integer zoom level tiles are fetched at, and Scale the
// factor they are stretched by to match a fractional view zoom.
func (v ViewState) TileZoom() int {
	return int(math.Floor(ClampZoom(v.Zoom)))
}

func (v ViewState) Scale() float64 {
	return math.Exp2(ClampZoom(v.Zoom) - float64(v.TileZoom()))
}

// Bounds returns the geographical extent of a screen of the given size,
// with Min holding the south-west corner and Max the north-east corner.
func (v ViewState) Bounds(size image.Point) orb.Bound {
	nw := v.ScreenToGeo(0, 0, size)
	se := v.ScreenToGeo(float64(size.X), float64(size.Y), size)
	return orb.Bound{
		Min: orb.Point{nw.Lng, se.Lat},
		Max: orb.Point{se.Lng, nw.Lat},
	}
}
