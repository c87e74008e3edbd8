package reward

import (
	"image"
	"time"

	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/theme"
)

// Frame is a captured screen image. It is never modified after capture.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
}

// NewFrame wraps img as a frame captured at the given time.
func NewFrame(img *image.RGBA, capturedAt time.Time) *Frame {
	return &Frame{Image: img, CapturedAt: capturedAt}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Image.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// SlotRegion is one reward slot inside the panel, in frame coordinates.
type SlotRegion struct {
	Index  int
	Bounds image.Rectangle
}

// PanelRegion describes a detected reward panel.
type PanelRegion struct {
	Bounds image.Rectangle
	// Line is the strip holding the reward names. Slot bounds are cut from it.
	Line  image.Rectangle
	Slots []SlotRegion
	Theme *theme.Theme
	// Scale is frame height relative to the 2160p reference layout.
	Scale float64
	// Confidence of the slot subdivision in [0,1].
	Confidence    float64
	LowConfidence bool
}

// Hypothesis is a recognizer's guess for one slot.
type Hypothesis struct {
	Slot       int
	Text       string
	Confidence float64
}

// Recognized reports whether the hypothesis carries usable text.
func (h Hypothesis) Recognized() bool {
	return h.Text != "" && h.Confidence > 0
}

// PriceEntry is the market data for one catalog item.
type PriceEntry struct {
	Key         string
	Name        string
	Platinum    float64
	Ducats      int
	HasDucats   bool
	Volume      int
	RefreshedAt time.Time
}

// SlotResult pairs a slot with its resolved item and price. Item and Price
// are nil when unresolved or unpriced.
type SlotResult struct {
	Slot       SlotRegion
	Hypothesis Hypothesis
	Item       *catalog.Item
	Price      *PriceEntry
}

// Resolved reports whether the slot was matched to a catalog item.
func (s SlotResult) Resolved() bool { return s.Item != nil }

// Result is emitted once per successful detection cycle.
type Result struct {
	CycleID    string
	CapturedAt time.Time
	Panel      PanelRegion
	Slots      []SlotResult
	// BestSlot is the index of the highest platinum slot, -1 if none is priced.
	BestSlot int
}
