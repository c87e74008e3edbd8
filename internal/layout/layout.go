package layout

import (
	"image"
	"math"
)

// MaxSlots is the largest number of rewards a panel can show.
const MaxSlots = 4

// Layout is a reward panel template defined at a reference frame height and
// centred horizontally. All lengths are in reference pixels.
type Layout struct {
	Name        string
	RefHeight   float64
	RewardWidth float64
	PanelTop    float64
	PanelHeight float64
	LineHeight  float64
	MinAspect   float64
	MaxAspect   float64
	// SlotCounts lists the slot counts this layout can show.
	SlotCounts []int
}

// Default is the relic reward screen as laid out at 2160p.
var Default = Layout{
	Name:        "relic-reward",
	RefHeight:   2160,
	RewardWidth: 1920,
	PanelTop:    440,
	PanelHeight: 480,
	LineHeight:  96,
	MinAspect:   1.2,
	MaxAspect:   3.6,
	SlotCounts:  []int{1, 2, 3, 4},
}

// Scale returns the frame height relative to the reference height.
func (l Layout) Scale(h int) float64 {
	return float64(h) / l.RefHeight
}

// Fits reports whether a frame of the given size has an accepted aspect ratio.
func (l Layout) Fits(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	return aspect >= l.MinAspect && aspect <= l.MaxAspect
}

// Allows reports whether n slots is a valid count for this layout.
func (l Layout) Allows(n int) bool {
	for _, c := range l.SlotCounts {
		if c == n {
			return true
		}
	}
	return false
}

// Panel returns the panel box for a w×h frame.
func (l Layout) Panel(w, h int) image.Rectangle {
	s := l.Scale(h)
	pw := round(l.RewardWidth * s)
	x0 := (w - pw) / 2
	y0 := round(l.PanelTop * s)
	return image.Rect(x0, y0, x0+pw, y0+round(l.PanelHeight*s))
}

// Line returns the reward-name line box, the bottom strip of the panel.
func (l Layout) Line(w, h int) image.Rectangle {
	p := l.Panel(w, h)
	lh := round(l.LineHeight * l.Scale(h))
	return image.Rect(p.Min.X, p.Max.Y-lh, p.Max.X, p.Max.Y)
}

// Slots cuts n slot boxes out of line. Slot width is always a quarter of the
// line; counts 3 and 1 are offset by half a slot so they stay centred. Slots
// are returned left to right and never overlap.
func Slots(line image.Rectangle, n int) []image.Rectangle {
	sw := line.Dx() / MaxSlots
	var starts []int
	switch n {
	case 4:
		starts = []int{0, 1, 2, 3}
	case 3:
		starts = []int{0, 1, 2}
	case 2:
		starts = []int{1, 2}
	case 1:
		starts = []int{1}
	default:
		return nil
	}
	offset := 0
	if n%2 == 1 {
		offset = sw / 2
	}
	out := make([]image.Rectangle, len(starts))
	for i, s := range starts {
		x := line.Min.X + offset + s*sw
		out[i] = image.Rect(x, line.Min.Y, x+sw, line.Max.Y)
	}
	return out
}

func round(v float64) int {
	return int(math.Round(v))
}
