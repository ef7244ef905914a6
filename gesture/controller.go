// Package gesture turns pointer and touch input into pans, zooms and taps
// against a map view.
package gesture

import (
	"image"
	"math"

	"gioui.org/f32"
	"gioui.org/io/pointer"

	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/tiles"
)

type State int

const (
	Idle State = iota
	Dragging
	Pinching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Pinching:
		return "pinching"
	}
	return "unknown"
}

const (
	// DragThreshold is how far a pointer must travel before a press counts
	// as a drag rather than a tap.
	DragThreshold = 5

	PinchSensitivity = 0.8
	pinchMinStep     = 0.1

	TouchHitRadius = 35
	MouseHitRadius = 20

	// saved pins are hit around their head, which sits above the tip
	savedHitLift = 6
)

// Event is emitted by the controller for the surrounding application.
type Event interface {
	ImplementsEvent()
}

// MapClicked is a tap that hit no marker.
type MapClicked struct {
	At tiles.LatLng
}

// MarkerClicked is a tap on a saved location or POI marker.
type MarkerClicked struct {
	Kind    markers.Kind
	SavedID int64
	POIID   string
}

// ViewChanged reports a committed pan or zoom. Discrete is set for button
// and wheel zooms, after which previously cached tiles are stale.
type ViewChanged struct {
	View     tiles.ViewState
	Discrete bool
}

func (MapClicked) ImplementsEvent()    {}
func (MarkerClicked) ImplementsEvent() {}
func (ViewChanged) ImplementsEvent()   {}

// Hit is the result of a marker hit-test.
type Hit struct {
	Kind     markers.Kind
	SavedID  int64
	POIID    string
	Distance float64
}

// Controller owns the view state while gestures are in progress. It is not
// safe for concurrent use; feed it from the UI goroutine.
type Controller struct {
	View tiles.ViewState
	Size image.Point

	// Hit-test targets. POIs should be nil while the layer is hidden.
	Saved []markers.SavedLocation
	POIs  []markers.POI

	HoveredSaved int64
	HoveredPOI   string

	// OnDiscreteZoom runs after a button or wheel zoom changed the level.
	OnDiscreteZoom func()

	state   State
	touches map[pointer.ID]f32.Point
	order   []pointer.ID

	dragID pointer.ID
	source pointer.Source
	start  f32.Point
	moved  bool

	pinchDist float64
	pinchZoom float64

	events []Event
}

func NewController(view tiles.ViewState) *Controller {
	return &Controller{
		View:    view,
		touches: make(map[pointer.ID]f32.Point),
	}
}

func (c *Controller) State() State { return c.state }

// Events returns and clears the pending events.
func (c *Controller) Events() []Event {
	evs := c.events
	c.events = nil
	return evs
}

func (c *Controller) emit(e Event) {
	c.events = append(c.events, e)
}

// Press handles a pointer going down. A second touch starts a pinch and
// abandons any drag in progress.
func (c *Controller) Press(id pointer.ID, pos f32.Point, src pointer.Source) {
	if _, ok := c.touches[id]; !ok {
		c.order = append(c.order, id)
	}
	c.touches[id] = pos

	if src == pointer.Touch && len(c.order) >= 2 {
		c.startPinch()
		return
	}
	if c.state != Idle {
		return
	}
	c.state = Dragging
	c.dragID = id
	c.source = src
	c.start = pos
	c.moved = false
}

// Move handles pointer motion. Motion of an untracked mouse pointer updates
// the hover state.
func (c *Controller) Move(id pointer.ID, pos f32.Point, src pointer.Source) {
	if _, ok := c.touches[id]; !ok {
		if src == pointer.Mouse && c.state == Idle {
			c.Hover(pos)
		}
		return
	}
	c.touches[id] = pos

	switch c.state {
	case Dragging:
		if id != c.dragID {
			return
		}
		d := pos.Sub(c.start)
		c.View.OffsetX, c.View.OffsetY = float64(d.X), float64(d.Y)
		if !c.moved && math.Hypot(float64(d.X), float64(d.Y)) > DragThreshold {
			c.moved = true
		}
	case Pinching:
		d := c.touchDistance()
		if c.pinchDist <= 0 || d <= 0 {
			return
		}
		zoom := tiles.ClampZoom(c.pinchZoom + math.Log2(d/c.pinchDist)*PinchSensitivity)
		if math.Abs(zoom-c.View.Zoom) > pinchMinStep {
			c.View.Zoom = zoom
			c.emit(ViewChanged{View: c.View})
		}
	}
}

// Release handles a pointer going up. Ending a drag either commits the pan
// or, when the pointer barely moved, resolves a tap.
func (c *Controller) Release(id pointer.ID, pos f32.Point) {
	if _, ok := c.touches[id]; !ok {
		return
	}
	c.remove(id)

	switch c.state {
	case Dragging:
		if id != c.dragID {
			return
		}
		c.state = Idle
		if c.moved {
			d := pos.Sub(c.start)
			c.View.OffsetX, c.View.OffsetY = float64(d.X), float64(d.Y)
			c.View.Commit()
			c.emit(ViewChanged{View: c.View})
			return
		}
		c.View.ResetOffset()
		c.tap(c.start, c.source)
	case Pinching:
		if len(c.order) < 2 {
			c.state = Idle
			c.pinchDist, c.pinchZoom = 0, 0
		}
	}
}

// Cancel abandons all gestures, for example when the window loses focus.
func (c *Controller) Cancel() {
	c.touches = make(map[pointer.ID]f32.Point)
	c.order = nil
	c.state = Idle
	c.moved = false
	c.pinchDist, c.pinchZoom = 0, 0
	c.View.ResetOffset()
}

// ZoomBy changes the zoom by step levels around the screen center.
func (c *Controller) ZoomBy(step float64) {
	c.zoom(step, nil)
}

// Scroll zooms one level per wheel event, keeping the point under the
// cursor fixed. Negative dy zooms in.
func (c *Controller) Scroll(pos f32.Point, dy float32) {
	switch {
	case dy < 0:
		c.zoom(1, &pos)
	case dy > 0:
		c.zoom(-1, &pos)
	}
}

func (c *Controller) zoom(step float64, anchor *f32.Point) {
	// keep the distance already dragged; later moves continue from here
	c.View.Commit()
	if c.state == Dragging {
		c.start = c.touches[c.dragID]
	}

	var fixed tiles.LatLng
	if anchor != nil {
		fixed = c.View.ScreenToGeo(float64(anchor.X), float64(anchor.Y), c.Size)
	}
	if !c.View.SetZoom(c.View.Zoom + step) {
		return
	}
	if anchor != nil {
		px, py := tiles.GeoToPixel(fixed, c.View.Zoom)
		cx := px - (float64(anchor.X) - float64(c.Size.X)/2)
		cy := py - (float64(anchor.Y) - float64(c.Size.Y)/2)
		if center := tiles.PixelToGeo(cx, cy, c.View.Zoom); tiles.IsFinite(center.Lat, center.Lng) {
			c.View.Center = center
		}
	}

	if c.OnDiscreteZoom != nil {
		c.OnDiscreteZoom()
	}
	c.emit(ViewChanged{View: c.View, Discrete: true})
}

// Hover updates the hovered marker ids for a mouse at pos and reports
// whether they changed. At most one marker is hovered at a time.
func (c *Controller) Hover(pos f32.Point) bool {
	var saved int64
	var poi string
	if hit, ok := c.HitTest(pos, pointer.Mouse); ok {
		saved, poi = hit.SavedID, hit.POIID
	}
	if saved == c.HoveredSaved && poi == c.HoveredPOI {
		return false
	}
	c.HoveredSaved, c.HoveredPOI = saved, poi
	return true
}

// HitTest finds the marker under pos. Saved locations take priority over
// POIs; within a layer the nearest marker inside the tolerance wins, ties
// going to the earlier one.
func (c *Controller) HitTest(pos f32.Point, src pointer.Source) (Hit, bool) {
	radius := float64(MouseHitRadius)
	if src == pointer.Touch {
		radius = TouchHitRadius
	}

	best := Hit{Distance: math.Inf(1)}
	for _, l := range c.Saved {
		d, ok := c.distance(pos, l.LatLng(), savedHitLift)
		if ok && d <= radius && d < best.Distance {
			best = Hit{Kind: markers.KindSaved, SavedID: l.ID, Distance: d}
		}
	}
	if !math.IsInf(best.Distance, 1) {
		return best, true
	}

	for _, p := range c.POIs {
		d, ok := c.distance(pos, p.LatLng(), 0)
		if ok && d <= radius && d < best.Distance {
			best = Hit{Kind: markers.KindPOI, POIID: p.ID, Distance: d}
		}
	}
	return best, !math.IsInf(best.Distance, 1)
}

func (c *Controller) distance(pos f32.Point, ll tiles.LatLng, lift float64) (float64, bool) {
	x, y := c.View.GeoToScreen(ll, c.Size)
	if !tiles.IsFinite(x, y) {
		return 0, false
	}
	return math.Hypot(float64(pos.X)-x, float64(pos.Y)-(y-lift)), true
}

func (c *Controller) tap(pos f32.Point, src pointer.Source) {
	hit, ok := c.HitTest(pos, src)
	if !ok {
		c.emit(MapClicked{At: c.View.ScreenToGeo(float64(pos.X), float64(pos.Y), c.Size)})
		return
	}
	c.emit(MarkerClicked{Kind: hit.Kind, SavedID: hit.SavedID, POIID: hit.POIID})
}

func (c *Controller) startPinch() {
	if c.state == Dragging {
		c.View.ResetOffset()
	}
	c.state = Pinching
	c.moved = false
	c.pinchDist = c.touchDistance()
	c.pinchZoom = c.View.Zoom
}

func (c *Controller) touchDistance() float64 {
	if len(c.order) < 2 {
		return 0
	}
	d := c.touches[c.order[1]].Sub(c.touches[c.order[0]])
	return math.Hypot(float64(d.X), float64(d.Y))
}

func (c *Controller) remove(id pointer.ID) {
	delete(c.touches, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
