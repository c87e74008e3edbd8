package prices

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source provides raw price and ducat data.
type Source interface {
	FetchPrices(ctx context.Context) (PriceTable, error)
	FetchDucatValues(ctx context.Context) (DucatTable, error)
}

// Cache holds the latest price table. Lookups never touch the network and
// always see one complete table.
type Cache struct {
	source  Source
	timeout time.Duration
	table   atomic.Pointer[Table]
	now     func() time.Time
}

// NewCache creates an empty cache. timeout bounds each fetch; zero disables it.
func NewCache(source Source, timeout time.Duration) *Cache {
	return &Cache{source: source, timeout: timeout, now: time.Now}
}

// Refresh fetches both tables, joins and validates them, then swaps the
// current table. On any failure the previous table stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	var (
		pt PriceTable
		dt DucatTable
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fctx, cancel := c.fetchContext(gctx)
		defer cancel()
		var err error
		pt, err = c.source.FetchPrices(fctx)
		if err != nil {
			return fmt.Errorf("%w: prices: %w", ErrFetchFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		fctx, cancel := c.fetchContext(gctx)
		defer cancel()
		var err error
		dt, err = c.source.FetchDucatValues(fctx)
		if err != nil {
			return fmt.Errorf("%w: ducats: %w", ErrFetchFailed, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	t, err := Build(pt, dt, c.now())
	if err != nil {
		return err
	}
	c.table.Store(t)
	log.Info().Int("items", t.Len()).Int("ducat_items", len(dt)).Msg("price table refreshed")
	return nil
}

func (c *Cache) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Lookup returns the price entry for a catalog key from the current table.
func (c *Cache) Lookup(key string) (reward.PriceEntry, bool) {
	return c.table.Load().Lookup(key)
}

// Table returns the current table, nil before the first successful refresh.
func (c *Cache) Table() *Table {
	return c.table.Load()
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("starting price refresher")

	c.refreshAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("price refresher stopped")
			return
		case <-ticker.C:
			c.refreshAndLog(ctx)
		}
	}
}

func (c *Cache) refreshAndLog(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("failed to refresh prices")
	}
}
