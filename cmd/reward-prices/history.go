package main

import (
	"context"
	"time"

	"github.com/raine/relic-reward-prices/internal/storage"
	"github.com/rs/zerolog/log"
)

// PruneInterval is how often old reward history is pruned.
const PruneInterval = 24 * time.Hour

// runHistoryPruner deletes cycles older than maxAge once at startup and then
// every PruneInterval until ctx is cancelled.
func runHistoryPruner(ctx context.Context, store storage.HistoryStore, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	pruneHistory(store, maxAge)

	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneHistory(store, maxAge)
		}
	}
}

func pruneHistory(store storage.HistoryStore, maxAge time.Duration) {
	deleted, err := store.PruneOlderThan(maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune reward history")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("pruned old reward history")
	}
}
