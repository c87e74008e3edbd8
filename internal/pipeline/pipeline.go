package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/raine/relic-reward-prices/internal/capture"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/layout"
	"github.com/raine/relic-reward-prices/internal/recognize"
	"github.com/raine/relic-reward-prices/internal/render"
	"github.com/raine/relic-reward-prices/internal/resolve"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrPanelNotFound is returned by RunCycle when the frame shows no reward
// panel. It is the normal outcome of most cycles.
var ErrPanelNotFound = errors.New("no reward panel in frame")

// State is the stage a cycle is in.
type State int32

const (
	Idle State = iota
	Capturing
	Locating
	Recognizing
	Resolving
	Pricing
	Emitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Locating:
		return "locating"
	case Recognizing:
		return "recognizing"
	case Resolving:
		return "resolving"
	case Pricing:
		return "pricing"
	case Emitting:
		return "emitting"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Locator finds the reward panel in a frame.
type Locator interface {
	Locate(frame *reward.Frame) (*reward.PanelRegion, bool)
}

// Resolver maps recognized text to a catalog item.
type Resolver interface {
	Resolve(h reward.Hypothesis) (*catalog.Item, resolve.Outcome)
}

// PriceLookup reads the current price table.
type PriceLookup interface {
	Lookup(key string) (reward.PriceEntry, bool)
}

// Deps are the collaborators of a pipeline. All are required.
type Deps struct {
	Capturer   capture.Capturer
	Locator    Locator
	Recognizer recognize.Engine
	Resolver   Resolver
	Prices     PriceLookup
	Renderer   render.Renderer
}

// Pipeline turns frames into priced reward results.
type Pipeline struct {
	deps  Deps
	state atomic.Int32
	newID func() string
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, newID: uuid.NewString}
}

// State returns the stage of the running cycle, or Idle.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) enter(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.state.Store(int32(s))
	return nil
}

// RunCycle captures one frame and, if it shows a reward panel, emits a result
// with one entry per slot. Failures of single slots leave that slot
// unresolved. Nothing is emitted when ctx is cancelled before the result is
// complete.
func (p *Pipeline) RunCycle(ctx context.Context) (*reward.Result, error) {
	defer p.state.Store(int32(Idle))

	if err := p.enter(ctx, Capturing); err != nil {
		return nil, err
	}
	frame, err := p.deps.Capturer.Capture(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrCaptureUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", capture.ErrCaptureUnavailable, err)
	}
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("%w: empty frame", capture.ErrCaptureUnavailable)
	}

	if err := p.enter(ctx, Locating); err != nil {
		return nil, err
	}
	panel, ok := p.deps.Locator.Locate(frame)
	if !ok {
		return nil, ErrPanelNotFound
	}

	if err := p.enter(ctx, Recognizing); err != nil {
		return nil, err
	}
	hyps := p.recognize(ctx, frame, panel)

	if err := p.enter(ctx, Resolving); err != nil {
		return nil, err
	}
	slots := make([]reward.SlotResult, len(panel.Slots))
	for i, slot := range panel.Slots {
		item, outcome := p.deps.Resolver.Resolve(hyps[i])
		log.Debug().
			Int("slot", slot.Index).
			Str("text", hyps[i].Text).
			Float64("confidence", hyps[i].Confidence).
			Str("outcome", string(outcome)).
			Msg("slot resolved")
		slots[i] = reward.SlotResult{Slot: slot, Hypothesis: hyps[i], Item: item}
	}

	if err := p.enter(ctx, Pricing); err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].Item == nil {
			continue
		}
		if entry, ok := p.deps.Prices.Lookup(slots[i].Item.Key); ok {
			slots[i].Price = &entry
		}
	}

	if err := p.enter(ctx, Emitting); err != nil {
		return nil, err
	}
	result := &reward.Result{
		CycleID:    p.newID(),
		CapturedAt: frame.CapturedAt,
		Panel:      *panel,
		Slots:      slots,
		BestSlot:   BestSlot(slots),
	}
	if err := p.deps.Renderer.Render(ctx, result); err != nil {
		return result, fmt.Errorf("failed to render result: %w", err)
	}
	return result, nil
}

// recognize runs the engine on every slot concurrently. Engine errors are
// logged and leave the slot with an empty hypothesis.
func (p *Pipeline) recognize(ctx context.Context, frame *reward.Frame, panel *reward.PanelRegion) []reward.Hypothesis {
	hyps := make([]reward.Hypothesis, len(panel.Slots))
	var g errgroup.Group
	g.SetLimit(layout.MaxSlots)
	for i, slot := range panel.Slots {
		g.Go(func() error {
			crop := recognize.Prepare(frame, slot, panel.Theme)
			h, err := p.deps.Recognizer.Recognize(ctx, crop)
			if err != nil {
				log.Warn().Err(err).Int("slot", slot.Index).Msg("recognition failed")
				h = reward.Hypothesis{}
			}
			h.Slot = slot.Index
			hyps[i] = h
			return nil
		})
	}
	_ = g.Wait()
	return hyps
}

// BestSlot is the index of the priced slot with the highest platinum value,
// or -1. Ties keep the leftmost slot.
func BestSlot(slots []reward.SlotResult) int {
	best := -1
	for i, s := range slots {
		if s.Item == nil || s.Price == nil {
			continue
		}
		if best < 0 || s.Price.Platinum > slots[best].Price.Platinum {
			best = i
		}
	}
	return best
}
