package recognize

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/glyph"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/theme"
)

type template struct {
	text string
	mask *image.Gray
}

// Glyph recognizes slot text by comparing its ink shape against every
// catalog alias rendered with the bitmap face. The vocabulary is closed: the
// result is always one of the aliases, scored in [0,1]. It only reads text
// drawn in that face, such as frames from testframe; game screens need the
// tesseract or gemini engine.
type Glyph struct {
	templates []template
}

// NewGlyph renders templates for every alias in c.
func NewGlyph(c *catalog.Catalog) *Glyph {
	g := &Glyph{}
	for _, it := range c.Items() {
		for _, a := range it.Aliases {
			m := glyph.Mask(a)
			if m == nil {
				continue
			}
			g.templates = append(g.templates, template{text: a, mask: m})
		}
	}
	return g
}

func (g *Glyph) Recognize(ctx context.Context, crop Crop) (reward.Hypothesis, error) {
	h := reward.Hypothesis{Slot: crop.Slot}
	if err := ctx.Err(); err != nil {
		return h, err
	}
	box := InkBounds(crop.Mask)
	if box.Empty() {
		return h, nil
	}
	observed := crop.Mask.SubImage(box).(*image.Gray)
	obsAspect := aspect(box)

	resized := make(map[image.Point][]bool)
	for _, t := range g.templates {
		size := t.mask.Bounds().Size()
		obs, ok := resized[size]
		if !ok {
			obs = inkAt(observed, size)
			resized[size] = obs
		}
		score := iou(obs, t.mask) * ratio(obsAspect, aspect(t.mask.Bounds()))
		if score > h.Confidence {
			h.Text = t.text
			h.Confidence = score
		}
	}
	return h, nil
}

// inkAt scales the observed mask to size and returns its ink flags.
func inkAt(observed *image.Gray, size image.Point) []bool {
	var src image.Image = observed
	if observed.Bounds().Size() != size {
		src = imaging.Resize(observed, size.X, size.Y, imaging.NearestNeighbor)
	}
	b := src.Bounds()
	out := make([]bool, size.X*size.Y)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			gray := color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			out[y*size.X+x] = gray.Y < 128
		}
	}
	return out
}

func iou(obs []bool, tmpl *image.Gray) float64 {
	w := tmpl.Bounds().Dx()
	inter, union := 0, 0
	for i, o := range obs {
		t := tmpl.Pix[(i/w)*tmpl.Stride+i%w] == theme.Ink
		if o && t {
			inter++
		}
		if o || t {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func aspect(r image.Rectangle) float64 {
	return float64(r.Dx()) / float64(r.Dy())
}

func ratio(a, b float64) float64 {
	if a > b {
		return b / a
	}
	return a / b
}
