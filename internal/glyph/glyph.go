// Package glyph renders text with the built-in bitmap face. It is shared by
// the template recognizer, the overlay renderer and synthetic test frames.
package glyph

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Face is the bitmap face used for all rendering.
var Face font.Face = basicfont.Face7x13

// Width returns the advance width of s in pixels.
func Width(s string) int {
	return font.MeasureString(Face, s).Ceil()
}

// Height returns the line height in pixels.
func Height() int {
	return Face.Metrics().Height.Ceil()
}

// DrawCentered draws s centred on c.
func DrawCentered(dst draw.Image, s string, col color.Color, c image.Point) {
	m := Face.Metrics()
	asc, desc := m.Ascent.Ceil(), m.Descent.Ceil()
	x := c.X - Width(s)/2
	y := c.Y + (asc-desc)/2
	DrawAt(dst, s, col, image.Pt(x, y))
}

// DrawAt draws s with its baseline origin at p.
func DrawAt(dst draw.Image, s string, col color.Color, p image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: Face,
		Dot:  fixed.P(p.X, p.Y),
	}
	d.DrawString(s)
}

// Mask renders s as a binary mask (ink 0 on paper 255) cropped to its ink
// bounding box. It returns nil when s has no visible ink.
func Mask(s string) *image.Gray {
	m := Face.Metrics()
	w := Width(s) + 2
	h := m.Height.Ceil() + 2
	canvas := image.NewAlpha(image.Rect(0, 0, w, h))
	DrawAt(canvas, s, color.Opaque, image.Pt(1, 1+m.Ascent.Ceil()))

	box := image.Rectangle{}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.AlphaAt(x, y).A >= 128 {
				box = box.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	if box.Empty() {
		return nil
	}

	out := image.NewGray(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			v := uint8(255)
			if canvas.AlphaAt(x, y).A >= 128 {
				v = 0
			}
			out.SetGray(x-box.Min.X, y-box.Min.Y, color.Gray{Y: v})
		}
	}
	return out
}
