package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/disintegration/imaging"
	"github.com/raine/relic-reward-prices/internal/reward"
)

// ErrCaptureUnavailable is returned when no frame can be produced.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Capturer produces frames on demand.
type Capturer interface {
	Capture(ctx context.Context) (*reward.Frame, error)
}

// Func adapts a function to Capturer.
type Func func(ctx context.Context) (*reward.Frame, error)

func (f Func) Capture(ctx context.Context) (*reward.Frame, error) { return f(ctx) }

type timeoutCapturer struct {
	inner   Capturer
	timeout time.Duration
}

// WithTimeout bounds every capture of inner. A capture that does not finish
// in time fails with ErrCaptureUnavailable.
func WithTimeout(inner Capturer, timeout time.Duration) Capturer {
	if timeout <= 0 {
		return inner
	}
	return &timeoutCapturer{inner: inner, timeout: timeout}
}

func (c *timeoutCapturer) Capture(ctx context.Context) (*reward.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		frame *reward.Frame
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := c.inner.Capture(ctx)
		ch <- result{f, err}
	}()

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, ctx.Err())
	}
}

// File captures frames from an image on disk. The image is decoded on every
// capture so a screenshot replaced in place is picked up.
type File struct {
	Path string
	now  func() time.Time
}

// NewFile creates a capturer reading path.
func NewFile(path string) *File {
	return &File{Path: path, now: time.Now}
}

func (f *File) Capture(ctx context.Context) (*reward.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	return reward.NewFrame(ToRGBA(img), f.now()), nil
}

// ToRGBA returns img as an RGBA image with its origin at (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
