package mapview

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
)

// gioCanvas records compositor drawing into Gio ops.
type gioCanvas struct {
	gtx    layout.Context
	size   image.Point
	shaper *text.Shaper
	images *ImageOpCache
}

func (c *gioCanvas) Size() image.Point { return c.size }

func (c *gioCanvas) Fill(col color.NRGBA) {
	paint.FillShape(c.gtx.Ops, col, clip.Rect{Max: c.size}.Op())
}

func (c *gioCanvas) DrawImage(img image.Image, at f32.Point, size float32) {
	b := img.Bounds()
	if b.Dx() == 0 {
		return
	}
	s := size / float32(b.Dx())
	tr := f32.Affine2D{}.Scale(f32.Point{}, f32.Pt(s, s)).Offset(at)
	defer op.Affine(tr).Push(c.gtx.Ops).Pop()

	c.images.Get(img).Add(c.gtx.Ops)
	paint.PaintOp{}.Add(c.gtx.Ops)
}

func (c *gioCanvas) FillCircle(center f32.Point, radius float32, col color.NRGBA) {
	c.FillEllipse(center, radius, radius, col)
}

func (c *gioCanvas) FillEllipse(center f32.Point, rx, ry float32, col color.NRGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	paint.FillShape(c.gtx.Ops, col, clip.Outline{Path: c.ellipse(center, rx, ry)}.Op())
}

func (c *gioCanvas) StrokeCircle(center f32.Point, radius, width float32, col color.NRGBA) {
	if radius <= 0 {
		return
	}
	paint.FillShape(c.gtx.Ops, col, clip.Stroke{Path: c.ellipse(center, radius, radius), Width: width}.Op())
}

func (c *gioCanvas) FillPolygon(points []f32.Point, col color.NRGBA) {
	if len(points) < 3 {
		return
	}
	var p clip.Path
	p.Begin(c.gtx.Ops)
	p.MoveTo(points[0])
	for _, pt := range points[1:] {
		p.LineTo(pt)
	}
	p.Close()
	paint.FillShape(c.gtx.Ops, col, clip.Outline{Path: p.End()}.Op())
}

func (c *gioCanvas) DrawGlyph(center f32.Point, size float32, glyph string, col color.NRGBA) {
	if glyph == "" || size < 4 || c.shaper == nil {
		return
	}
	gtx := c.gtx
	gtx.Constraints = layout.Constraints{Max: image.Pt(int(size*4), int(size*4))}
	// one sp per pixel so size is in screen pixels
	gtx.Metric = unit.Metric{PxPerDp: 1, PxPerSp: 1}

	m := op.Record(gtx.Ops)
	paint.ColorOp{Color: col}.Add(gtx.Ops)
	material := m.Stop()

	m = op.Record(gtx.Ops)
	dims := widget.Label{MaxLines: 1}.Layout(gtx, c.shaper, font.Font{Weight: font.Bold}, unit.Sp(size), glyph, material)
	call := m.Stop()

	at := image.Pt(
		int(math.Round(float64(center.X)))-dims.Size.X/2,
		int(math.Round(float64(center.Y)))-dims.Size.Y/2,
	)
	defer op.Offset(at).Push(gtx.Ops).Pop()
	call.Add(gtx.Ops)
}

// ellipse builds a closed elliptical path. Arc takes the foci relative to
// the pen, which starts at the rightmost point.
func (c *gioCanvas) ellipse(center f32.Point, rx, ry float32) clip.PathSpec {
	var f1, f2 f32.Point
	if rx >= ry {
		d := float32(math.Sqrt(float64(rx*rx - ry*ry)))
		f1, f2 = f32.Pt(-rx-d, 0), f32.Pt(-rx+d, 0)
	} else {
		d := float32(math.Sqrt(float64(ry*ry - rx*rx)))
		f1, f2 = f32.Pt(-rx, -d), f32.Pt(-rx, d)
	}
	var p clip.Path
	p.Begin(c.gtx.Ops)
	p.MoveTo(f32.Pt(center.X+rx, center.Y))
	p.Arc(f1, f2, 2*math.Pi)
	p.Close()
	return p.End()
}
