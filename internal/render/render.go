package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
)

// Renderer consumes detection results. Slots arrive in on-screen left to
// right order.
type Renderer interface {
	Render(ctx context.Context, result *reward.Result) error
}

// Clearer is implemented by renderers that show something until the reward
// screen closes.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, result *reward.Result) error

func (f Func) Render(ctx context.Context, result *reward.Result) error { return f(ctx, result) }

// Multi fans a result out to several renderers. Every renderer runs even if
// an earlier one fails.
type Multi []Renderer

func (m Multi) Render(ctx context.Context, result *reward.Result) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Clear(ctx context.Context) error {
	var errs []error
	for _, r := range m {
		if c, ok := r.(Clearer); ok {
			if err := c.Clear(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Log writes each result to the global logger.
type Log struct{}

func (Log) Render(ctx context.Context, result *reward.Result) error {
	log.Info().
		Str("cycle", result.CycleID).
		Int("slots", len(result.Slots)).
		Str("theme", themeName(result)).
		Bool("low_confidence", result.Panel.LowConfidence).
		Int("best_slot", result.BestSlot).
		Msg("reward screen detected")

	for _, s := range result.Slots {
		ev := log.Info().Str("cycle", result.CycleID).Int("slot", s.Slot.Index)
		switch {
		case s.Item == nil:
			ev.Str("text", s.Hypothesis.Text).Msg("unresolved slot")
		case s.Price == nil:
			ev.Str("item", s.Item.Name).Msg("no price for item")
		default:
			ev.Str("item", s.Item.Name).
				Float64("platinum", s.Price.Platinum).
				Int("ducats", ducats(s)).
				Bool("vaulted", s.Item.Vaulted).
				Msg("slot price")
		}
	}
	return nil
}

// Latest keeps the most recent result for status queries.
type Latest struct {
	p atomic.Pointer[reward.Result]
}

func (l *Latest) Render(ctx context.Context, result *reward.Result) error {
	l.p.Store(result)
	return nil
}

func (l *Latest) Clear(ctx context.Context) error {
	l.p.Store(nil)
	return nil
}

// Get returns the latest result or nil.
func (l *Latest) Get() *reward.Result {
	return l.p.Load()
}

func themeName(result *reward.Result) string {
	if result.Panel.Theme == nil {
		return ""
	}
	return result.Panel.Theme.Name
}

// ducatRatio is ducats per platinum, 0 when either is unknown.
func ducatRatio(s reward.SlotResult) float64 {
	if s.Item == nil || s.Price == nil || s.Price.Platinum <= 0 {
		return 0
	}
	return float64(ducats(s)) / s.Price.Platinum
}

// ducats prefers the price source's ducat value over the catalog's.
func ducats(s reward.SlotResult) int {
	if s.Price != nil && s.Price.HasDucats {
		return s.Price.Ducats
	}
	if s.Item != nil {
		return s.Item.Ducats
	}
	return 0
}

func formatPlatinum(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
