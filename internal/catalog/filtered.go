package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxAge is how long a downloaded catalog resource stays fresh.
const DefaultMaxAge = 48 * time.Hour

type ducatPart struct {
	Ducats int `json:"ducats"`
}

type equipment struct {
	Type    string               `json:"type"`
	Vaulted bool                 `json:"vaulted"`
	Parts   map[string]ducatPart `json:"parts"`
}

type filteredItems struct {
	Eqmt         map[string]equipment `json:"eqmt"`
	IgnoredItems map[string]ducatPart `json:"ignored_items"`
}

// DecodeFilteredItems parses the warframestat filtered_items document. Every
// equipment part becomes a relic reward carrying its ducat value and the
// vaulted flag of its parent. Ignored items (Forma, Riven Sliver, ...) still
// drop from relics, so they are kept too.
func DecodeFilteredItems(r io.Reader) ([]Item, error) {
	var doc filteredItems
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse filtered items: %w", err)
	}

	var items []Item
	for _, eq := range doc.Eqmt {
		for name, part := range eq.Parts {
			items = append(items, Item{
				Name:     name,
				Category: CategoryRelicReward,
				Ducats:   part.Ducats,
				Vaulted:  eq.Vaulted,
			})
		}
	}
	for name, part := range doc.IgnoredItems {
		cat := CategoryMisc
		if part.Ducats > 0 {
			cat = CategoryDucatItem
		}
		items = append(items, Item{Name: name, Category: cat, Ducats: part.Ducats})
	}
	return items, nil
}

// Fetcher downloads a catalog resource.
type Fetcher func(ctx context.Context) ([]byte, error)

// EnsureFile makes sure path holds a catalog no older than maxAge, fetching
// a fresh copy when it is missing or stale. A failed fetch is not an error if
// a stale copy exists; the stale copy is used.
func EnsureFile(ctx context.Context, path string, maxAge time.Duration, fetch Fetcher) error {
	info, err := os.Stat(path)
	if err == nil && time.Since(info.ModTime()) < maxAge {
		log.Debug().Str("path", path).Time("modified", info.ModTime()).Msg("catalog is fresh")
		return nil
	}
	haveStale := err == nil

	data, err := fetch(ctx)
	if err == nil {
		_, err = Load(bytes.NewReader(data))
	}
	if err != nil {
		if haveStale {
			log.Warn().Err(err).Str("path", path).Msg("failed to refresh catalog, using stale copy")
			return nil
		}
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("catalog downloaded")
	return nil
}
