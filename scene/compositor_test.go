package scene

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"gioui.org/f32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/tiles"
)

type op struct {
	kind string
	at   f32.Point
	size float32
	col  color.NRGBA
}

type recorder struct {
	size image.Point
	ops  []op
}

func (r *recorder) Size() image.Point { return r.size }
func (r *recorder) Fill(col color.NRGBA) {
	r.ops = append(r.ops, op{kind: "fill", col: col})
}
func (r *recorder) DrawImage(img image.Image, at f32.Point, size float32) {
	r.ops = append(r.ops, op{kind: "image", at: at, size: size})
}
func (r *recorder) FillCircle(c f32.Point, radius float32, col color.NRGBA) {
	r.ops = append(r.ops, op{kind: "circle", at: c, size: radius, col: col})
}
func (r *recorder) StrokeCircle(c f32.Point, radius, width float32, col color.NRGBA) {
	r.ops = append(r.ops, op{kind: "ring", at: c, size: radius, col: col})
}
func (r *recorder) FillEllipse(c f32.Point, rx, ry float32, col color.NRGBA) {
	r.ops = append(r.ops, op{kind: "ellipse", at: c, size: rx, col: col})
}
func (r *recorder) FillPolygon(points []f32.Point, col color.NRGBA) {
	r.ops = append(r.ops, op{kind: "polygon", at: points[0], col: col})
}
func (r *recorder) DrawGlyph(c f32.Point, size float32, glyph string, col color.NRGBA) {
	r.ops = append(r.ops, op{kind: "glyph", at: c, size: size, col: col})
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, o := range r.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

type fakeTiles struct {
	images    map[tiles.TileKey]image.Image
	fill      image.Image
	requested []tiles.TileKey
	retained  []tiles.TileKey
}

func (f *fakeTiles) GetTile(key tiles.TileKey) (image.Image, bool) {
	f.requested = append(f.requested, key)
	if img, ok := f.images[key]; ok {
		return img, true
	}
	if f.fill != nil {
		return f.fill, true
	}
	return nil, false
}

func (f *fakeTiles) Retain(visible []tiles.TileKey) {
	f.retained = append([]tiles.TileKey(nil), visible...)
}

func solidTile(col color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, tiles.TileSize, tiles.TileSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	return img
}

var screen = image.Pt(800, 600)

func TestDrawRequestsTileWindow(t *testing.T) {
	src := &fakeTiles{}
	c := NewCompositor(src)
	rec := &recorder{size: screen}

	st := c.Draw(rec, Frame{View: tiles.NewViewState(tiles.LatLng{}, 13)})

	require.Len(t, src.requested, 30)
	assert.Equal(t, src.requested, src.retained)
	assert.Equal(t, st.Tiles, src.requested)
	assert.Equal(t, 0, st.TilesDrawn)
	for _, k := range src.requested {
		assert.Equal(t, 13, k.Zoom)
		assert.GreaterOrEqual(t, k.X, 4093)
		assert.LessOrEqual(t, k.X, 4098)
		assert.GreaterOrEqual(t, k.Y, 4094)
		assert.LessOrEqual(t, k.Y, 4098)
	}

	// nothing cached: the frame is background only
	require.Len(t, rec.ops, 1)
	assert.Equal(t, "fill", rec.ops[0].kind)
	assert.Equal(t, DefaultBackground, rec.ops[0].col)
}

func TestDrawPlacesTilesWithOffset(t *testing.T) {
	src := &fakeTiles{fill: solidTile(color.RGBA{A: 255})}
	c := NewCompositor(src)
	rec := &recorder{size: screen}

	v := tiles.NewViewState(tiles.LatLng{}, 13)
	v.OffsetX, v.OffsetY = 10, -5
	c.Draw(rec, Frame{View: v})

	var found bool
	for _, o := range rec.ops {
		if o.kind == "image" && o.at == f32.Pt(410, 295) {
			found = true
			assert.Equal(t, float32(256), o.size)
		}
	}
	assert.True(t, found, "tile 13/4096/4096 drawn at the screen center")
}

func TestDrawScalesTilesAtFractionalZoom(t *testing.T) {
	src := &fakeTiles{fill: solidTile(color.RGBA{A: 255})}
	c := NewCompositor(src)
	rec := &recorder{size: screen}

	st := c.Draw(rec, Frame{View: tiles.NewViewState(tiles.LatLng{}, 13.5)})

	require.NotEmpty(t, st.Tiles)
	assert.Equal(t, 13, st.Tiles[0].Zoom)
	for _, o := range rec.ops {
		if o.kind == "image" {
			assert.InDelta(t, 256*math.Sqrt2, float64(o.size), 1e-3)
		}
	}
}

func TestDrawZOrder(t *testing.T) {
	src := &fakeTiles{fill: solidTile(color.RGBA{A: 255})}
	c := NewCompositor(src)
	rec := &recorder{size: screen}
	user := tiles.LatLng{Lat: 51.5072, Lng: -0.1276}

	st := c.Draw(rec, Frame{
		View:       tiles.NewViewState(user, 15),
		Saved:      []markers.SavedLocation{{ID: 1, Lat: 51.5072, Lng: -0.1270, Category: markers.CategoryGrocery}},
		POIs:       []markers.POI{{ID: "node-1", Lat: 51.5070, Lng: -0.1280, Category: markers.CategoryTourism}},
		User:       &user,
		ShowPOIs:   true,
		POIMinZoom: 14,
	})
	assert.Equal(t, 1, st.POIsDrawn)
	assert.Equal(t, 1, st.SavedDrawn)
	assert.True(t, st.UserDrawn)

	poiColor := withAlpha(markers.POIStyle(markers.CategoryTourism).Color, poiAlpha)
	savedColor := markers.SavedStyle(markers.CategoryGrocery).Color

	last := func(pred func(op) bool) int {
		idx := -1
		for i, o := range rec.ops {
			if pred(o) {
				idx = i
			}
		}
		return idx
	}
	first := func(pred func(op) bool) int {
		for i, o := range rec.ops {
			if pred(o) {
				return i
			}
		}
		return -1
	}

	lastTile := last(func(o op) bool { return o.kind == "image" })
	firstPOI := first(func(o op) bool { return o.col == poiColor })
	lastPOI := last(func(o op) bool { return o.col == poiColor })
	firstSaved := first(func(o op) bool { return o.kind == "ellipse" })
	lastSaved := last(func(o op) bool { return o.col == savedColor })
	firstUser := first(func(o op) bool { return o.col == withAlpha(userBlue, 0.3) })

	require.NotEqual(t, -1, firstPOI)
	require.NotEqual(t, -1, firstSaved)
	require.NotEqual(t, -1, firstUser)
	assert.Less(t, lastTile, firstPOI)
	assert.Less(t, lastPOI, firstSaved)
	assert.Less(t, lastSaved, firstUser)
}

func TestDrawSkipsHiddenMarkers(t *testing.T) {
	c := NewCompositor(&fakeTiles{})
	rec := &recorder{size: screen}
	center := tiles.LatLng{Lat: 51.5, Lng: 0}

	st := c.Draw(rec, Frame{
		View: tiles.NewViewState(center, 13),
		Saved: []markers.SavedLocation{
			{ID: 1, Lat: 51.5, Lng: 0},
			{ID: 2, Lat: 60, Lng: 10},
			{ID: 3, Lat: 90, Lng: math.NaN()},
		},
		POIs:       []markers.POI{{ID: "node-1", Lat: 51.5, Lng: 0}},
		ShowPOIs:   true,
		POIMinZoom: 14,
	})

	assert.Equal(t, 1, st.SavedDrawn)
	assert.Equal(t, 0, st.POIsDrawn, "below the POI zoom threshold")
	assert.Equal(t, 1, st.SkippedNaN)
	assert.False(t, st.UserDrawn)
	assert.Equal(t, 1, rec.count("ellipse"))
}

func TestDrawHighlightsSelection(t *testing.T) {
	c := NewCompositor(&fakeTiles{})
	center := tiles.LatLng{Lat: 51.5, Lng: 0}
	frame := Frame{
		View:  tiles.NewViewState(center, 13),
		Saved: []markers.SavedLocation{{ID: 7, Lat: 51.5, Lng: 0}},
	}

	plain := &recorder{size: screen}
	c.Draw(plain, frame)
	assert.Equal(t, 0, plain.count("ring"))

	frame.SelectedSaved = 7
	selected := &recorder{size: screen}
	c.Draw(selected, frame)
	require.Equal(t, 1, selected.count("ring"))
	for _, o := range selected.ops {
		if o.kind == "ring" {
			assert.Equal(t, float32(19), o.size)
		}
	}
}

func TestRasterMissingTileShowsBackground(t *testing.T) {
	center := tiles.GeoToTileIndex(tiles.LatLng{}, 13)
	tileColor := color.RGBA{R: 30, G: 90, B: 200, A: 255}
	src := &fakeTiles{images: map[tiles.TileKey]image.Image{}}
	for _, k := range tiles.VisibleTiles(tiles.LatLng{}, 13, screen) {
		if k != center {
			src.images[k] = solidTile(tileColor)
		}
	}

	cv := NewRasterCanvas(screen)
	st := NewCompositor(src).Draw(cv, Frame{View: tiles.NewViewState(tiles.LatLng{}, 13)})
	assert.Equal(t, 29, st.TilesDrawn)

	img := cv.Image()
	assert.Equal(t, color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}, img.RGBAAt(500, 400))
	assert.Equal(t, tileColor, img.RGBAAt(200, 100))
}

func TestRasterMarkersPaint(t *testing.T) {
	cv := NewRasterCanvas(image.Pt(100, 100))
	user := tiles.LatLng{}
	NewCompositor(nil).Draw(cv, Frame{View: tiles.NewViewState(user, 10), User: &user})

	// blue disc under the white centre dot
	got := cv.Image().RGBAAt(55, 50)
	assert.Equal(t, userBlue.B, got.B)
	assert.Less(t, got.R, uint8(0x80))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, cv.Image().RGBAAt(50, 50))
}
