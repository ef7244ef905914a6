package mapview

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/f32"
	"gioui.org/font/gofont"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/olablt/placemap/gesture"
	"github.com/olablt/placemap/logging"
	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/poi"
	"github.com/olablt/placemap/scene"
	"github.com/olablt/placemap/tiles"
)

type Options struct {
	Center tiles.LatLng
	Zoom   float64
	// Height limits the map height in pixels; zero fills the constraints.
	Height int

	ShowPOIs         bool
	ShowUserLocation bool
	HideBadges       bool

	SelectedLocationID int64
	SelectedPOIID      string

	// CacheSize bounds the uploaded tile images; zero uses
	// tiles.DefaultCacheSize.
	CacheSize int
}

const controlInset = unit.Dp(10)

// MapView is a slippy map widget. Layout must be called from the window's
// event goroutine; tile and POI loads request a redraw through refresh.
type MapView struct {
	Tiles *tiles.TileManager
	// POI is optional; nil disables the POI layer.
	POI *poi.Loader

	Saved []markers.SavedLocation
	User  *tiles.LatLng

	ShowPOIs      bool
	ShowUser      bool
	HideBadges    bool
	Height        int
	SelectedSaved int64
	SelectedPOI   string

	OnMapClick    func(tiles.LatLng)
	OnMarkerClick func(gesture.MarkerClicked)
	OnViewChange  func(tiles.ViewState)
	OnBadgeClick  func()

	compositor *scene.Compositor
	gesture    *gesture.Controller
	images     *ImageOpCache
	theme      *material.Theme

	zoomIn  widget.Clickable
	zoomOut widget.Clickable
	badge   widget.Clickable

	// screen bounds of the buttons drawn last frame
	controls []image.Rectangle

	size    image.Point
	refresh chan<- struct{}
}

func New(refresh chan<- struct{}, tm *tiles.TileManager, loader *poi.Loader, opts Options) *MapView {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = tiles.DefaultCacheSize
	}

	mv := &MapView{
		Tiles:         tm,
		POI:           loader,
		ShowPOIs:      opts.ShowPOIs,
		ShowUser:      opts.ShowUserLocation,
		HideBadges:    opts.HideBadges,
		Height:        opts.Height,
		SelectedSaved: opts.SelectedLocationID,
		SelectedPOI:   opts.SelectedPOIID,
		compositor:    scene.NewCompositor(tm),
		gesture:       gesture.NewController(tiles.NewViewState(opts.Center, opts.Zoom)),
		images:        NewImageOpCache(cacheSize),
		theme:         th,
		refresh:       refresh,
	}
	mv.gesture.OnDiscreteZoom = func() {
		tm.Clear()
		mv.images.Clear()
	}
	tm.SetOnLoadCallback(mv.invalidate)
	if loader != nil {
		loader.SetOnUpdate(mv.invalidate)
	}
	return mv
}

// View returns the current view state.
func (mv *MapView) View() tiles.ViewState { return mv.gesture.View }

// SetView moves the map, for example to center on a selected location.
func (mv *MapView) SetView(v tiles.ViewState) {
	discrete := v.TileZoom() != mv.gesture.View.TileZoom()
	mv.gesture.View = tiles.NewViewState(v.Center, v.Zoom)
	if discrete {
		mv.gesture.OnDiscreteZoom()
	}
	mv.requestPOIs()
	mv.invalidate()
}

func (mv *MapView) invalidate() {
	select {
	case mv.refresh <- struct{}{}:
	default:
	}
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	size := gtx.Constraints.Max
	if mv.Height > 0 && mv.Height < size.Y {
		size.Y = mv.Height
	}
	g := mv.gesture
	if size != mv.size {
		mv.size = size
		g.Size = size
		mv.requestPOIs()
	}

	frame := mv.frame()
	g.Saved = mv.Saved
	g.POIs = nil
	if frame.POIsVisible() {
		g.POIs = frame.POIs
	}

	mv.processPointer(gtx)
	for mv.zoomIn.Clicked(gtx) {
		g.ZoomBy(1)
	}
	for mv.zoomOut.Clicked(gtx) {
		g.ZoomBy(-1)
	}
	for mv.badge.Clicked(gtx) {
		if mv.OnBadgeClick != nil {
			mv.OnBadgeClick()
		}
	}
	mv.dispatch()

	frame = mv.frame()
	gtx.Constraints = layout.Exact(size)
	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, mv)

	cv := &gioCanvas{gtx: gtx, size: size, shaper: mv.theme.Shaper, images: mv.images}
	mv.compositor.Draw(cv, frame)

	mv.controls = mv.controls[:0]
	mv.layoutControls(gtx)
	if !mv.HideBadges && len(mv.Saved) > 0 {
		mv.layoutBadge(gtx)
	}
	return layout.Dimensions{Size: size}
}

func (mv *MapView) frame() scene.Frame {
	g := mv.gesture
	f := scene.Frame{
		View:          g.View,
		Saved:         mv.Saved,
		ShowPOIs:      mv.ShowPOIs && mv.POI != nil,
		POIMinZoom:    poi.DefaultMinZoom,
		HoveredSaved:  g.HoveredSaved,
		SelectedSaved: mv.SelectedSaved,
		HoveredPOI:    g.HoveredPOI,
		SelectedPOI:   mv.SelectedPOI,
	}
	if mv.POI != nil {
		f.POIs = mv.POI.POIs()
		f.POIMinZoom = mv.POI.MinZoom()
	}
	if mv.ShowUser {
		f.User = mv.User
	}
	return f
}

func (mv *MapView) processPointer(gtx layout.Context) {
	g := mv.gesture
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  mv,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel | pointer.Move | pointer.Scroll | pointer.Leave,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		x, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch x.Kind {
		case pointer.Press:
			// buttons sit inside the map area; their presses are not map gestures
			if !mv.overControl(x.Position) {
				g.Press(x.PointerID, x.Position, x.Source)
			}
		case pointer.Drag, pointer.Move:
			g.Move(x.PointerID, x.Position, x.Source)
			mv.invalidate()
		case pointer.Release:
			g.Release(x.PointerID, x.Position)
		case pointer.Cancel:
			g.Cancel()
		case pointer.Leave:
			if g.State() == gesture.Idle && (g.HoveredSaved != 0 || g.HoveredPOI != "") {
				g.HoveredSaved, g.HoveredPOI = 0, ""
			}
		case pointer.Scroll:
			g.Scroll(x.Position, x.Scroll.Y)
		}
	}
}

func (mv *MapView) overControl(pos f32.Point) bool {
	pt := image.Pt(int(pos.X), int(pos.Y))
	for _, r := range mv.controls {
		if pt.In(r) {
			return true
		}
	}
	return false
}

func (mv *MapView) dispatch() {
	for _, e := range mv.gesture.Events() {
		switch e := e.(type) {
		case gesture.MapClicked:
			logging.Debug().Float64("lat", e.At.Lat).Float64("lng", e.At.Lng).Msg("map clicked")
			if mv.OnMapClick != nil {
				mv.OnMapClick(e.At)
			}
		case gesture.MarkerClicked:
			logging.Debug().Stringer("kind", e.Kind).Int64("saved_id", e.SavedID).Str("poi_id", e.POIID).Msg("marker clicked")
			if mv.OnMarkerClick != nil {
				mv.OnMarkerClick(e)
			}
		case gesture.ViewChanged:
			mv.requestPOIs()
			if mv.OnViewChange != nil {
				mv.OnViewChange(e.View)
			}
		}
	}
}

func (mv *MapView) requestPOIs() {
	if mv.POI == nil || mv.size.X == 0 || mv.size.Y == 0 {
		return
	}
	if !mv.ShowPOIs {
		mv.POI.Clear()
		return
	}
	v := mv.gesture.View
	mv.POI.Request(v.Bounds(mv.size), v.Zoom)
}

func (mv *MapView) layoutControls(gtx layout.Context) layout.Dimensions {
	var d layout.Dimensions
	dims := layout.NE.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.UniformInset(controlInset).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			d = layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(mv.button(&mv.zoomIn, "+")),
				layout.Rigid(layout.Spacer{Height: unit.Dp(4)}.Layout),
				layout.Rigid(mv.button(&mv.zoomOut, "−")),
			)
			return d
		})
	})
	in := gtx.Dp(controlInset)
	right := gtx.Constraints.Max.X - in
	mv.controls = append(mv.controls, image.Rect(right-d.Size.X, in, right, in+d.Size.Y))
	return dims
}

func (mv *MapView) button(c *widget.Clickable, label string) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		btn := material.Button(mv.theme, c, label)
		btn.Background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xf0}
		btn.Color = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
		btn.TextSize = unit.Sp(18)
		btn.Inset = layout.UniformInset(unit.Dp(8))
		gtx.Constraints.Min = image.Pt(gtx.Dp(36), gtx.Dp(36))
		return btn.Layout(gtx)
	}
}

func (mv *MapView) layoutBadge(gtx layout.Context) layout.Dimensions {
	var d layout.Dimensions
	dims := layout.NW.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.UniformInset(controlInset).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			btn := material.Button(mv.theme, &mv.badge, badgeText(len(mv.Saved)))
			btn.Background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xf0}
			btn.Color = color.NRGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff}
			btn.TextSize = unit.Sp(13)
			d = btn.Layout(gtx)
			return d
		})
	})
	in := gtx.Dp(controlInset)
	mv.controls = append(mv.controls, image.Rect(in, in, in+d.Size.X, in+d.Size.Y))
	return dims
}

func badgeText(n int) string {
	if n == 1 {
		return "1 saved location"
	}
	return fmt.Sprintf("%d saved locations", n)
}
