// Package testframe draws synthetic reward screens for tests and the scan
// tool's self-check.
package testframe

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/raine/relic-reward-prices/internal/glyph"
	"github.com/raine/relic-reward-prices/internal/layout"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/theme"
)

// CapturedAt is the fixed capture time of synthetic frames.
var CapturedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Blank returns a black w×h frame.
func Blank(w, h int) *reward.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return reward.NewFrame(img, CapturedAt)
}

// Reward draws a reward screen with one name per slot in the theme's primary
// colour, laid out like the default layout. len(names) must be 1 to 4.
func Reward(w, h int, t *theme.Theme, names []string) *reward.Frame {
	frame := Blank(w, h)
	line := layout.Default.Line(w, h)
	r, g, b := t.Primary.RGB()
	ink := color.RGBA{R: r, G: g, B: b, A: 255}
	for i, slot := range layout.Slots(line, len(names)) {
		c := image.Pt((slot.Min.X+slot.Max.X)/2, (slot.Min.Y+slot.Max.Y)/2)
		glyph.DrawCentered(frame.Image, names[i], ink, c)
	}
	return frame
}

// Fill paints r of frame with the theme's primary colour.
func Fill(frame *reward.Frame, r image.Rectangle, t *theme.Theme) {
	cr, cg, cb := t.Primary.RGB()
	draw.Draw(frame.Image, r, image.NewUniform(color.RGBA{R: cr, G: cg, B: cb, A: 255}), image.Point{}, draw.Src)
}
