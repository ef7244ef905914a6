package scene

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const circleSegments = 48

// RasterCanvas draws into an in-memory RGBA image. It backs headless
// snapshots and tests.
type RasterCanvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func NewRasterCanvas(size image.Point) *RasterCanvas {
	return &RasterCanvas{
		img: image.NewRGBA(image.Rectangle{Max: size}),
		z:   vector.NewRasterizer(size.X, size.Y),
	}
}

func (c *RasterCanvas) Image() *image.RGBA { return c.img }

func (c *RasterCanvas) Size() image.Point { return c.img.Bounds().Size() }

func (c *RasterCanvas) Fill(col color.NRGBA) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *RasterCanvas) DrawImage(img image.Image, at f32.Point, size float32) {
	r := image.Rect(
		int(math.Round(float64(at.X))),
		int(math.Round(float64(at.Y))),
		int(math.Round(float64(at.X+size))),
		int(math.Round(float64(at.Y+size))),
	)
	if !r.Overlaps(c.img.Bounds()) {
		return
	}
	if r.Dx() == img.Bounds().Dx() && r.Dy() == img.Bounds().Dy() {
		draw.Draw(c.img, r, img, img.Bounds().Min, draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(c.img, r, img, img.Bounds(), draw.Over, nil)
}

func (c *RasterCanvas) FillCircle(center f32.Point, radius float32, col color.NRGBA) {
	c.FillEllipse(center, radius, radius, col)
}

func (c *RasterCanvas) FillEllipse(center f32.Point, rx, ry float32, col color.NRGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	c.begin()
	c.ellipse(center, rx, ry, false)
	c.paint(col)
}

// StrokeCircle fills the annulus between radius±width/2. The inner circle
// is wound the other way so it cancels out.
func (c *RasterCanvas) StrokeCircle(center f32.Point, radius, width float32, col color.NRGBA) {
	outer := radius + width/2
	inner := radius - width/2
	if outer <= 0 {
		return
	}
	c.begin()
	c.ellipse(center, outer, outer, false)
	if inner > 0 {
		c.ellipse(center, inner, inner, true)
	}
	c.paint(col)
}

func (c *RasterCanvas) FillPolygon(points []f32.Point, col color.NRGBA) {
	if len(points) < 3 {
		return
	}
	c.begin()
	c.z.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		c.z.LineTo(p.X, p.Y)
	}
	c.z.ClosePath()
	c.paint(col)
}

func (c *RasterCanvas) DrawGlyph(center f32.Point, size float32, glyph string, col color.NRGBA) {
	if glyph == "" || size < 4 {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(glyph)
	m := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: fixed.I(int(math.Round(float64(center.X)))) - w/2,
		Y: fixed.I(int(math.Round(float64(center.Y)))) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(glyph)
}

func (c *RasterCanvas) begin() {
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = draw.Over
}

func (c *RasterCanvas) paint(col color.NRGBA) {
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *RasterCanvas) ellipse(center f32.Point, rx, ry float32, reverse bool) {
	step := 2 * math.Pi / circleSegments
	if reverse {
		step = -step
	}
	for i := 0; i <= circleSegments; i++ {
		a := float64(i) * step
		x := center.X + rx*float32(math.Cos(a))
		y := center.Y + ry*float32(math.Sin(a))
		if i == 0 {
			c.z.MoveTo(x, y)
			continue
		}
		c.z.LineTo(x, y)
	}
	c.z.ClosePath()
}
