package theme

import (
	"image"
	"image/color"
)

const (
	// Ink is the mask value of a pixel matching the theme.
	Ink uint8 = 0
	// Paper is the mask value of every other pixel.
	Paper uint8 = 255
)

// Filter binarizes the r region of img against t: matching pixels become Ink,
// the rest Paper. The mask's origin is r.Min.
func Filter(img *image.RGBA, r image.Rectangle, t *Theme) *image.Gray {
	r = r.Intersect(img.Bounds())
	mask := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			v := Paper
			if t.MatchRGB(c.R, c.G, c.B) {
				v = Ink
			}
			mask.SetGray(x-r.Min.X, y-r.Min.Y, color.Gray{Y: v})
		}
	}
	return mask
}

// Detection is the outcome of Detect.
type Detection struct {
	Theme   *Theme
	Matches int
	Samples int
}

// Fraction is the share of sampled pixels matching the winning theme.
func (d Detection) Fraction() float64 {
	if d.Samples == 0 {
		return 0
	}
	return float64(d.Matches) / float64(d.Samples)
}

// Detect samples every step-th pixel of r and returns the theme matching the
// most pixels. Earlier themes win ties. Theme is nil when nothing matched.
func Detect(img *image.RGBA, r image.Rectangle, ts Themes, step int) Detection {
	if step < 1 {
		step = 1
	}
	r = r.Intersect(img.Bounds())
	counts := make([]int, len(ts))
	samples := 0
	for y := r.Min.Y; y < r.Max.Y; y += step {
		for x := r.Min.X; x < r.Max.X; x += step {
			samples++
			c := img.RGBAAt(x, y)
			p := FromRGB(c.R, c.G, c.B)
			for i := range ts {
				if ts[i].Match(p) {
					counts[i]++
				}
			}
		}
	}

	d := Detection{Samples: samples}
	for i, n := range counts {
		if n > d.Matches {
			d.Theme = &ts[i]
			d.Matches = n
		}
	}
	return d
}

// Count samples r like Detect but against a single theme.
func Count(img *image.RGBA, r image.Rectangle, t *Theme, step int) Detection {
	return Detect(img, r, Themes{*t}, step).withTheme(t)
}

func (d Detection) withTheme(t *Theme) Detection {
	d.Theme = t
	return d
}
