package scene

import (
	"image"
	"image/color"

	"gioui.org/f32"

	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/tiles"
)

var (
	DefaultBackground = color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}

	white     = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	shadow    = color.NRGBA{A: 0x4d}
	userBlue  = color.NRGBA{R: 0x42, G: 0x85, B: 0xf4, A: 0xff}
	poiAlpha  = float32(0.8)
	cullLeft  = -20.0
	cullRight = 20.0
	cullTop   = -30.0
	cullBelow = 20.0
)

// TileSource is the tile cache as seen by the compositor. GetTile must not
// block; a miss is expected to start a load that triggers a later redraw.
type TileSource interface {
	GetTile(key tiles.TileKey) (image.Image, bool)
	Retain(visible []tiles.TileKey)
}

// Frame is everything one redraw depends on. Marker positions are derived
// from View on every draw and never stored.
type Frame struct {
	View tiles.ViewState

	Saved []markers.SavedLocation
	POIs  []markers.POI
	// User is the user-location indicator; nil hides it.
	User *tiles.LatLng

	ShowPOIs   bool
	POIMinZoom float64

	// Zero and "" mean nothing is hovered or selected.
	HoveredSaved  int64
	SelectedSaved int64
	HoveredPOI    string
	SelectedPOI   string
}

// POIsVisible reports whether the POI layer is drawn and hit-tested.
func (f Frame) POIsVisible() bool {
	return f.ShowPOIs && f.View.Zoom >= f.POIMinZoom
}

// Stats summarises one draw.
type Stats struct {
	// Tiles is the visible window that was requested from the source.
	Tiles      []tiles.TileKey
	TilesDrawn int
	POIsDrawn  int
	SavedDrawn int
	UserDrawn  bool
	SkippedNaN int
}

type Compositor struct {
	Tiles      TileSource
	Background color.NRGBA
}

func NewCompositor(src TileSource) *Compositor {
	return &Compositor{Tiles: src, Background: DefaultBackground}
}

// Draw paints one frame: background, the visible tile window, then POIs,
// saved locations and the user location on top. Tiles not yet cached are
// left as background.
func (c *Compositor) Draw(cv Canvas, f Frame) Stats {
	var st Stats
	size := cv.Size()

	cv.Fill(c.Background)
	c.drawTiles(cv, f, size, &st)

	if f.POIsVisible() {
		for _, p := range f.POIs {
			x, y, ok := c.place(f, p.LatLng(), size, &st)
			if !ok {
				continue
			}
			drawPOI(cv, f32.Pt(x, y), p.Style(),
				p.ID == f.HoveredPOI, p.ID != "" && p.ID == f.SelectedPOI)
			st.POIsDrawn++
		}
	}

	for _, l := range f.Saved {
		x, y, ok := c.place(f, l.LatLng(), size, &st)
		if !ok {
			continue
		}
		drawSaved(cv, f32.Pt(x, y), l.Style(),
			l.ID != 0 && l.ID == f.HoveredSaved, l.ID != 0 && l.ID == f.SelectedSaved)
		st.SavedDrawn++
	}

	if f.User != nil {
		x, y := f.View.GeoToScreen(*f.User, size)
		if tiles.IsFinite(x, y) &&
			x >= -20 && x <= float64(size.X)+20 && y >= -20 && y <= float64(size.Y)+20 {
			drawUser(cv, f32.Pt(float32(x), float32(y)))
			st.UserDrawn = true
		}
	}
	return st
}

func (c *Compositor) drawTiles(cv Canvas, f Frame, size image.Point, st *Stats) {
	if c.Tiles == nil {
		return
	}
	zoom := f.View.TileZoom()
	scale := f.View.Scale()
	cx, cy := tiles.GeoToPixel(f.View.Center, float64(zoom))
	drawSize := float32(tiles.TileSize * scale)

	keys := tiles.VisibleTiles(f.View.Center, zoom, size)
	for _, key := range keys {
		x := float64(size.X)/2 + (float64(key.X*tiles.TileSize)-cx)*scale + f.View.OffsetX
		y := float64(size.Y)/2 + (float64(key.Y*tiles.TileSize)-cy)*scale + f.View.OffsetY
		if !tiles.IsFinite(x, y) {
			st.SkippedNaN++
			continue
		}
		st.Tiles = append(st.Tiles, key)
		img, ok := c.Tiles.GetTile(key)
		if !ok {
			continue
		}
		cv.DrawImage(img, f32.Pt(float32(x), float32(y)), drawSize)
		st.TilesDrawn++
	}
	c.Tiles.Retain(st.Tiles)
}

// place returns the screen position of ll, or false when it is off screen
// (beyond a small margin) or not finite.
func (c *Compositor) place(f Frame, ll tiles.LatLng, size image.Point, st *Stats) (float32, float32, bool) {
	x, y := f.View.GeoToScreen(ll, size)
	if !tiles.IsFinite(x, y) {
		st.SkippedNaN++
		return 0, 0, false
	}
	if x < cullLeft || x > float64(size.X)+cullRight || y < cullTop || y > float64(size.Y)+cullBelow {
		return 0, 0, false
	}
	return float32(x), float32(y), true
}

func drawPOI(cv Canvas, p f32.Point, style markers.Style, hovered, selected bool) {
	r := float32(8)
	if hovered || selected {
		r = 10
	}
	col := withAlpha(style.Color, poiAlpha)
	cv.FillCircle(p, r, col)
	cv.FillCircle(p, r-2, withAlpha(white, poiAlpha))
	cv.DrawGlyph(p, r-1, style.Glyph, col)
	if hovered || selected {
		cv.StrokeCircle(p, r+2, 2, withAlpha(white, poiAlpha))
	}
}

// drawSaved paints a pin whose tip sits on p.
func drawSaved(cv Canvas, p f32.Point, style markers.Style, hovered, selected bool) {
	s := float32(12)
	if hovered || selected {
		s = 16
	}
	head := f32.Pt(p.X, p.Y-s/2)

	cv.FillEllipse(f32.Pt(p.X+1, p.Y+s+1), s*0.8, 4, shadow)
	cv.FillCircle(head, s, style.Color)
	cv.FillCircle(head, s-3, white)
	cv.DrawGlyph(head, s-2, style.Glyph, style.Color)
	cv.FillPolygon([]f32.Point{
		p,
		f32.Pt(p.X-6, p.Y-s),
		f32.Pt(p.X+6, p.Y-s),
	}, style.Color)
	if hovered || selected {
		cv.StrokeCircle(head, s+3, 3, white)
	}
}

func drawUser(cv Canvas, p f32.Point) {
	cv.StrokeCircle(p, 20, 3, withAlpha(userBlue, 0.3))
	cv.StrokeCircle(p, 15, 2, withAlpha(userBlue, 0.5))
	cv.FillCircle(p, 12, white)
	cv.FillCircle(p, 8, userBlue)
	cv.FillCircle(p, 3, white)
}
