package pipeline

import (
	"context"
	"errors"

	"github.com/raine/relic-reward-prices/internal/capture"
	"github.com/raine/relic-reward-prices/internal/render"
	"github.com/raine/relic-reward-prices/internal/trigger"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Run handles events from src until ctx is cancelled or src closes. Activate
// events run a cycle, Dismiss events clear renderers that support it.
// Events arriving while a cycle runs are coalesced: only the latest one is
// kept.
func (p *Pipeline) Run(ctx context.Context, src trigger.Source) error {
	log.Info().Msg("starting reward pipeline")

	events := src.Triggers(ctx)
	pending := make(chan trigger.Event, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(pending)
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				offer(pending, ev)
			}
		}
	})
	g.Go(func() error {
		for ev := range pending {
			if ctx.Err() != nil {
				continue
			}
			p.handle(ctx, ev)
		}
		return nil
	})

	err := g.Wait()
	log.Info().Msg("reward pipeline stopped")
	return err
}

// offer queues ev, replacing an event that has not been picked up yet.
// There is a single sender, so the send after draining cannot block.
func offer(pending chan trigger.Event, ev trigger.Event) {
	select {
	case old := <-pending:
		log.Debug().Str("dropped", old.Kind.String()).Str("source", old.Source).Msg("trigger coalesced")
	default:
	}
	pending <- ev
}

func (p *Pipeline) handle(ctx context.Context, ev trigger.Event) {
	switch ev.Kind {
	case trigger.Dismiss:
		c, ok := p.deps.Renderer.(render.Clearer)
		if !ok {
			return
		}
		if err := c.Clear(ctx); err != nil {
			log.Error().Err(err).Msg("failed to clear renderers")
		}
		return
	}

	result, err := p.RunCycle(ctx)
	switch {
	case err == nil:
		log.Debug().Str("cycle", result.CycleID).Str("source", ev.Source).Int("slots", len(result.Slots)).Msg("cycle complete")
	case errors.Is(err, ErrPanelNotFound):
		log.Debug().Str("source", ev.Source).Msg("no reward panel")
	case ctx.Err() != nil:
	case errors.Is(err, capture.ErrCaptureUnavailable):
		log.Warn().Err(err).Str("source", ev.Source).Msg("capture failed")
	default:
		log.Error().Err(err).Str("source", ev.Source).Msg("cycle failed")
	}
}
