// Package screen captures frames from a physical display.
package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/kbinani/screenshot"
	"github.com/raine/relic-reward-prices/internal/capture"
	"github.com/raine/relic-reward-prices/internal/reward"
)

// Capturer grabs the whole of one display.
type Capturer struct {
	display int
}

// New returns a capturer for the given display index.
func New(display int) (*Capturer, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active displays", capture.ErrCaptureUnavailable)
	}
	if display < 0 || display >= n {
		return nil, fmt.Errorf("display %d out of range (%d active)", display, n)
	}
	return &Capturer{display: display}, nil
}

func (c *Capturer) Capture(ctx context.Context) (*reward.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(c.display))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrCaptureUnavailable, err)
	}
	return reward.NewFrame(capture.ToRGBA(img), time.Now()), nil
}
