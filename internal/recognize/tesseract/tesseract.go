// Package tesseract recognizes slot text with the Tesseract OCR engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/raine/relic-reward-prices/internal/recognize"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
)

// upscale is the target mask height; Tesseract reads small text poorly.
const upscale = 64

// Engine wraps a single Tesseract client. Calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an engine restricted to the characters in whitelist.
func New(language, whitelist string) (*Engine, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set tesseract language: %w", err)
	}
	if whitelist != "" {
		if err := client.SetWhitelist(whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tesseract whitelist: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return &Engine{client: client}, nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	return e.client.Close()
}

func (e *Engine) Recognize(ctx context.Context, crop recognize.Crop) (reward.Hypothesis, error) {
	h := reward.Hypothesis{Slot: crop.Slot}
	if err := ctx.Err(); err != nil {
		return h, err
	}
	box := recognize.InkBounds(crop.Mask)
	if box.Empty() {
		return h, nil
	}

	// Pad the text and scale it up; Tesseract wants dark text on light paper
	// with a margin.
	text := imaging.Crop(crop.Mask, box.Inset(-4).Intersect(crop.Mask.Bounds()))
	text = imaging.Resize(text, 0, upscale, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, text); err != nil {
		return h, fmt.Errorf("failed to encode crop: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return h, fmt.Errorf("failed to set image: %w", err)
	}
	out, err := e.client.Text()
	if err != nil {
		return h, fmt.Errorf("tesseract failed: %w", err)
	}
	h.Text = strings.TrimSpace(out)

	words, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		log.Warn().Err(err).Int("slot", crop.Slot).Msg("failed to read tesseract confidences")
		return h, nil
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	if len(words) > 0 {
		h.Confidence = sum / float64(len(words)) / 100
	}
	log.Debug().Int("slot", crop.Slot).Str("text", h.Text).Float64("confidence", h.Confidence).Msg("tesseract result")
	return h, nil
}
