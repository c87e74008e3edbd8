package recognize

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/theme"
)

// DefaultMinConfidence is the gate below which hypotheses are dropped.
const DefaultMinConfidence = 0.6

// Crop is the input of a recognition engine for one slot.
type Crop struct {
	Slot int
	// Image is the colour crop of the slot.
	Image *image.NRGBA
	// Mask is the theme-filtered crop (ink 0 on paper 255) reduced to the
	// dominant text band.
	Mask *image.Gray
}

// Engine extracts text from a slot crop.
type Engine interface {
	Recognize(ctx context.Context, crop Crop) (reward.Hypothesis, error)
}

// Prepare cuts the slot out of frame and builds its text mask.
func Prepare(frame *reward.Frame, slot reward.SlotRegion, t *theme.Theme) Crop {
	return Crop{
		Slot:  slot.Index,
		Image: imaging.Crop(frame.Image, slot.Bounds),
		Mask:  KeepTextBand(theme.Filter(frame.Image, slot.Bounds, t)),
	}
}

// KeepTextBand keeps the horizontal band of rows with the most ink and, inside
// it, the widest run of columns whose gaps are no wider than the band is
// tall. Everything else is painted over with paper. Stray pixels and pulsing
// icons next to the name are removed this way.
func KeepTextBand(mask *image.Gray) *image.Gray {
	b := mask.Bounds()
	rows := make([]int, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y == theme.Ink {
				rows[y]++
			}
		}
	}
	y0, y1 := densestRun(rows, 2)
	if y0 == y1 {
		return blank(b)
	}

	cols := make([]int, b.Dx())
	for y := y0; y < y1; y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y == theme.Ink {
				cols[x]++
			}
		}
	}
	gap := y1 - y0
	if gap < 4 {
		gap = 4
	}
	x0, x1 := densestRun(cols, gap)

	out := blank(b)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y == theme.Ink {
				out.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: theme.Ink})
			}
		}
	}
	return out
}

// densestRun groups non-zero entries separated by at most maxGap zero entries
// and returns the [start, end) span of the group with the largest sum.
func densestRun(v []int, maxGap int) (int, int) {
	bestStart, bestEnd, bestSum := 0, 0, 0
	start, end, sum, gap := -1, -1, 0, 0
	flush := func() {
		if start >= 0 && sum > bestSum {
			bestStart, bestEnd, bestSum = start, end, sum
		}
	}
	for i, n := range v {
		if n == 0 {
			gap++
			if start >= 0 && gap > maxGap {
				flush()
				start, sum = -1, 0
			}
			continue
		}
		if start < 0 {
			start = i
		}
		end = i + 1
		sum += n
		gap = 0
	}
	flush()
	return bestStart, bestEnd
}

func blank(r image.Rectangle) *image.Gray {
	out := image.NewGray(r)
	for i := range out.Pix {
		out.Pix[i] = theme.Paper
	}
	return out
}

// InkBounds returns the bounding box of ink in mask, empty when there is none.
func InkBounds(mask *image.Gray) image.Rectangle {
	b := mask.Bounds()
	box := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y == theme.Ink {
				box = box.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return box
}

// Gate drops hypotheses below a confidence threshold so they are reported
// as unrecognized rather than guessed.
type Gate struct {
	Inner         Engine
	MinConfidence float64
}

// NewGate wraps inner with the given threshold.
func NewGate(inner Engine, minConfidence float64) *Gate {
	return &Gate{Inner: inner, MinConfidence: minConfidence}
}

func (g *Gate) Recognize(ctx context.Context, crop Crop) (reward.Hypothesis, error) {
	h, err := g.Inner.Recognize(ctx, crop)
	if err != nil {
		return reward.Hypothesis{Slot: crop.Slot}, err
	}
	h.Slot = crop.Slot
	if h.Text == "" || h.Confidence < g.MinConfidence {
		return reward.Hypothesis{Slot: crop.Slot}, nil
	}
	if h.Confidence > 1 {
		h.Confidence = 1
	}
	return h, nil
}
