// Package scene composes map frames: tiles first, then markers in a fixed
// z-order, onto any Canvas.
package scene

import (
	"image"
	"image/color"

	"gioui.org/f32"
)

// Canvas is the drawing surface a frame is composed onto. Coordinates are
// screen pixels with the origin at the top-left corner.
type Canvas interface {
	Size() image.Point
	Fill(col color.NRGBA)
	// DrawImage draws img scaled to a size×size square at top-left at.
	DrawImage(img image.Image, at f32.Point, size float32)
	FillCircle(center f32.Point, radius float32, col color.NRGBA)
	StrokeCircle(center f32.Point, radius, width float32, col color.NRGBA)
	FillEllipse(center f32.Point, rx, ry float32, col color.NRGBA)
	FillPolygon(points []f32.Point, col color.NRGBA)
	// DrawGlyph draws a short label centred on center.
	DrawGlyph(center f32.Point, size float32, glyph string, col color.NRGBA)
}

// withAlpha scales the alpha of col by a in [0,1].
func withAlpha(col color.NRGBA, a float32) color.NRGBA {
	col.A = uint8(float32(col.A) * a)
	return col
}
