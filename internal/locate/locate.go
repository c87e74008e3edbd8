package locate

import (
	"image"
	"math"

	"github.com/raine/relic-reward-prices/internal/layout"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/theme"
	"github.com/rs/zerolog/log"
)

// Options tune panel detection.
type Options struct {
	Layouts []layout.Layout
	Themes  theme.Themes
	// Theme, when set, skips detection and filters with this theme only.
	Theme *theme.Theme
	// Foreground fraction of the name line accepted as a panel.
	MinForeground float64
	MaxForeground float64
	// Below MinConfidence the slot subdivision is flagged LowConfidence.
	MinConfidence float64
	MinHeight     int
	// MinSlotInk is the ink fraction of a slot box that marks it occupied.
	MinSlotInk float64
	// SampleStep is the pixel stride used for theme detection.
	SampleStep int
}

// DefaultOptions returns the tuning used by the daemon.
func DefaultOptions() Options {
	return Options{
		Layouts:       []layout.Layout{layout.Default},
		Themes:        theme.Default(),
		MinForeground: 0.002,
		MaxForeground: 0.45,
		MinConfidence: 0.2,
		MinHeight:     480,
		MinSlotInk:    0.001,
		SampleStep:    2,
	}
}

// Locator finds the reward panel in a frame. It holds no mutable state and
// is safe for concurrent use.
type Locator struct {
	opts Options
}

func New(opts Options) *Locator {
	return &Locator{opts: opts}
}

// Locate returns the reward panel of frame, or false when the frame does not
// show one.
func (l *Locator) Locate(frame *reward.Frame) (*reward.PanelRegion, bool) {
	if frame == nil || frame.Image == nil {
		return nil, false
	}
	w, h := frame.Width(), frame.Height()
	if h < l.opts.MinHeight {
		return nil, false
	}
	for _, lay := range l.opts.Layouts {
		if !lay.Fits(w, h) {
			continue
		}
		if region, ok := l.locateLayout(frame.Image, lay); ok {
			return region, true
		}
	}
	return nil, false
}

func (l *Locator) locateLayout(img *image.RGBA, lay layout.Layout) (*reward.PanelRegion, bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	line := lay.Line(w, h).Add(img.Bounds().Min)
	panel := lay.Panel(w, h).Add(img.Bounds().Min)
	if !line.In(img.Bounds()) || line.Dx() < layout.MaxSlots {
		return nil, false
	}

	var det theme.Detection
	if l.opts.Theme != nil {
		det = theme.Count(img, line, l.opts.Theme, l.opts.SampleStep)
	} else {
		det = theme.Detect(img, line, l.opts.Themes, l.opts.SampleStep)
	}
	frac := det.Fraction()
	if det.Theme == nil || frac < l.opts.MinForeground || frac > l.opts.MaxForeground {
		log.Trace().Float64("foreground", frac).Str("layout", lay.Name).Msg("no reward panel")
		return nil, false
	}

	mask := theme.Filter(img, line, det.Theme)
	cols := columnInk(mask)

	n, confidence, ok := subdivide(cols, mask.Bounds().Dy())
	if !ok {
		return nil, false
	}
	n = l.trimEmptyOuter(line, cols, n, mask.Bounds().Dy())
	if !lay.Allows(n) {
		return nil, false
	}

	rects := layout.Slots(line, n)
	slots := make([]reward.SlotRegion, len(rects))
	for i, r := range rects {
		slots[i] = reward.SlotRegion{Index: i, Bounds: r}
	}

	return &reward.PanelRegion{
		Bounds:        panel,
		Line:          line,
		Slots:         slots,
		Theme:         det.Theme,
		Scale:         lay.Scale(h),
		Confidence:    confidence,
		LowConfidence: confidence < l.opts.MinConfidence,
	}, true
}

// columnInk counts ink pixels per mask column.
func columnInk(mask *image.Gray) []int {
	b := mask.Bounds()
	cols := make([]int, b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[(y-b.Min.Y)*mask.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x] == theme.Ink {
				cols[x]++
			}
		}
	}
	return cols
}

// subdivide picks between the 4-slot and 3-slot family. Column ink is
// weighted with cos³(8πx/W), which peaks at the slot gaps of a 4-slot panel
// and at the slot centres of a 3-slot one. Text sitting in the negative lobes
// favours 4 slots, text in the positive lobes favours 3.
func subdivide(cols []int, height int) (n int, confidence float64, ok bool) {
	width := float64(len(cols))
	limit := height / 3
	if limit < 1 {
		limit = 1
	}
	var even, odd float64
	for x, c := range cols {
		if c == 0 {
			continue
		}
		if c > limit {
			c = limit
		}
		k := math.Cos(8 * math.Pi * float64(x) / width)
		v := k * k * k * float64(c)
		if v < 0 {
			even -= v
		} else {
			odd += v
		}
	}
	total := even + odd
	if total == 0 {
		return 0, 0, false
	}
	confidence = math.Abs(even-odd) / total
	if odd > even {
		return 3, confidence, true
	}
	return 4, confidence, true
}

// trimEmptyOuter drops the outer pair of slots when both are empty, which
// turns a 4-slot family into 2 slots and a 3-slot family into 1.
func (l *Locator) trimEmptyOuter(line image.Rectangle, cols []int, n, height int) int {
	rects := layout.Slots(line, n)
	occupied := func(r image.Rectangle) bool {
		ink := 0
		for x := r.Min.X - line.Min.X; x < r.Max.X-line.Min.X && x < len(cols); x++ {
			ink += cols[x]
		}
		threshold := l.opts.MinSlotInk * float64(r.Dx()*height)
		return ink > 0 && float64(ink) >= threshold
	}
	first, last := rects[0], rects[len(rects)-1]
	if occupied(first) || occupied(last) {
		return n
	}
	inner := false
	for _, r := range rects[1 : len(rects)-1] {
		if occupied(r) {
			inner = true
		}
	}
	if !inner {
		return n
	}
	return n - 2
}
