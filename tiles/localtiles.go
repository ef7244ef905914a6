package tiles

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LocalTileServer selects LocalTileProvider instead of a network server.
const LocalTileServer = "local"

// LocalTileProvider renders labelled placeholder tiles without network
// access, for offline development and screenshots.
type LocalTileProvider struct{}

func NewLocalTileProvider() *LocalTileProvider {
	return &LocalTileProvider{}
}

func (p *LocalTileProvider) GetTile(ctx context.Context, tile TileKey) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !tile.Valid() {
		return nil, ErrInvalidTile
	}

	return renderPlaceholder(tile), nil
}

var (
	placeholderEdge  = color.RGBA{100, 100, 100, 255}
	placeholderLight = color.RGBA{200, 220, 255, 255}
	placeholderDark  = color.RGBA{185, 208, 250, 255}
	placeholderLabel = color.RGBA{255, 255, 255, 220}
)

// renderPlaceholder draws a one pixel frame around a checkerboard cell, so
// seams are visible while panning, with the tile key on a label in the
// middle.
func renderPlaceholder(tile TileKey) *image.RGBA {
	r := image.Rect(0, 0, TileSize, TileSize)
	img := image.NewRGBA(r)
	fill := placeholderLight
	if (tile.X+tile.Y)%2 == 1 {
		fill = placeholderDark
	}
	draw.Draw(img, r, image.NewUniform(placeholderEdge), image.Point{}, draw.Src)
	draw.Draw(img, r.Inset(1), image.NewUniform(fill), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	text := tile.String()
	bounds, _ := font.BoundString(face, text)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()

	// the label's top-left corner, placing the text's ink box at the center
	origin := image.Pt((TileSize-w)/2, (TileSize-h)/2)
	draw.Draw(img, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}.Inset(-8),
		image.NewUniform(placeholderLabel), image.Point{}, draw.Over)

	d := font.Drawer{Dst: img, Src: image.Black, Face: face}
	d.Dot = fixed.P(origin.X, origin.Y).Sub(bounds.Min)
	d.DrawString(text)
	return img
}
