package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/raine/relic-reward-prices/internal/glyph"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
)

const (
	overlayPadding = 6
	overlayLines   = 5
)

var (
	overlayBackground = color.RGBA{A: 200}
	fallbackPrimary   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	fallbackSecondary = color.RGBA{R: 255, G: 215, B: 0, A: 255}
)

// Overlay draws the per-slot prices into a PNG laid out over the reward
// panel's slot columns. An overlay window or stream scene can display it.
type Overlay struct {
	Path string
}

// NewOverlay writes overlay snapshots to path.
func NewOverlay(path string) *Overlay {
	return &Overlay{Path: path}
}

func (o *Overlay) Render(ctx context.Context, result *reward.Result) error {
	img := DrawOverlay(result)
	if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	tmp := strings.TrimSuffix(o.Path, filepath.Ext(o.Path)) + ".tmp.png"
	if err := imaging.Save(img, tmp); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	if err := os.Rename(tmp, o.Path); err != nil {
		return fmt.Errorf("failed to replace overlay: %w", err)
	}
	log.Debug().Str("path", o.Path).Str("cycle", result.CycleID).Msg("overlay written")
	return nil
}

func (o *Overlay) Clear(ctx context.Context) error {
	if err := os.Remove(o.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove overlay: %w", err)
	}
	return nil
}

// SlotLines returns the text shown for one slot.
func SlotLines(s reward.SlotResult) []string {
	if s.Item == nil {
		return []string{"Unknown item", "Platinum: -", "Ducats: -", "Ducats/Platinum: -", "Vaulted: -"}
	}
	lines := []string{s.Item.Name}
	if s.Price == nil {
		lines = append(lines, "Platinum: -")
	} else {
		lines = append(lines, "Platinum: "+formatPlatinum(s.Price.Platinum))
	}
	lines = append(lines, fmt.Sprintf("Ducats: %d", ducats(s)))
	if r := ducatRatio(s); r > 0 {
		lines = append(lines, fmt.Sprintf("Ducats/Platinum: %.2f", r))
	} else {
		lines = append(lines, "Ducats/Platinum: -")
	}
	vaulted := "no"
	if s.Item.Vaulted {
		vaulted = "yes"
	}
	return append(lines, "Vaulted: "+vaulted)
}

// DrawOverlay renders result as an image the width of the panel. Each slot's
// column lines up with the slot below it; the best slot uses the theme's
// secondary colour.
func DrawOverlay(result *reward.Result) *image.NRGBA {
	panel := result.Panel.Bounds
	lineHeight := glyph.Height() + 2
	h := overlayLines*lineHeight + 2*overlayPadding
	w := panel.Dx()
	if w <= 0 {
		w = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(overlayBackground), image.Point{}, draw.Src)

	primary, secondary := color.Color(fallbackPrimary), color.Color(fallbackSecondary)
	if t := result.Panel.Theme; t != nil {
		r, g, b := t.Primary.RGB()
		primary = color.RGBA{R: r, G: g, B: b, A: 255}
		r, g, b = t.Secondary.RGB()
		secondary = color.RGBA{R: r, G: g, B: b, A: 255}
	}

	for i, s := range result.Slots {
		col := primary
		if i == result.BestSlot {
			col = secondary
		}
		bounds := s.Slot.Bounds
		cx := (bounds.Min.X+bounds.Max.X)/2 - panel.Min.X
		maxChars := bounds.Dx() / glyph.Width("M")
		for j, line := range SlotLines(s) {
			if maxChars > 0 && len(line) > maxChars {
				line = line[:maxChars]
			}
			cy := overlayPadding + j*lineHeight + lineHeight/2
			glyph.DrawCentered(img, line, col, image.Pt(cx, cy))
		}
	}
	return img
}
