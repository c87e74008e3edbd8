// Package app builds the components shared by the binaries from a Config.
package app

import (
	"context"
	"fmt"

	"github.com/raine/relic-reward-prices/internal/capture"
	"github.com/raine/relic-reward-prices/internal/capture/screen"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/config"
	"github.com/raine/relic-reward-prices/internal/locate"
	"github.com/raine/relic-reward-prices/internal/prices"
	"github.com/raine/relic-reward-prices/internal/recognize"
	"github.com/raine/relic-reward-prices/internal/recognize/gemini"
	"github.com/raine/relic-reward-prices/internal/recognize/tesseract"
	"github.com/rs/zerolog/log"
)

// NewPriceClient returns the HTTP client for the configured price API.
func NewPriceClient(cfg *config.Config) *prices.Client {
	return prices.NewClient(prices.ClientOpts{BaseURL: cfg.PriceAPIURL})
}

// LoadCatalog refreshes the catalog file if it is stale and loads it.
func LoadCatalog(ctx context.Context, cfg *config.Config, client *prices.Client) (*catalog.Catalog, error) {
	if err := catalog.EnsureFile(ctx, cfg.CatalogPath, cfg.CatalogMaxAge, client.FetchFilteredItems); err != nil {
		return nil, err
	}
	c, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.CatalogPath).Int("items", c.Len()).Msg("catalog loaded")
	return c, nil
}

// NewLocator returns a locator, fixed to the configured theme if one is set.
func NewLocator(cfg *config.Config) (*locate.Locator, error) {
	opts := locate.DefaultOptions()
	if cfg.Theme != "" {
		t, err := opts.Themes.ByName(cfg.Theme)
		if err != nil {
			return nil, err
		}
		opts.Theme = t
	}
	return locate.New(opts), nil
}

// NewRecognizer builds the configured engine, wrapped in a result cache and
// the confidence gate. The returned function releases the engine.
func NewRecognizer(ctx context.Context, cfg *config.Config, c *catalog.Catalog) (recognize.Engine, func() error, error) {
	var engine recognize.Engine
	closeEngine := func() error { return nil }

	switch cfg.Recognizer {
	case config.RecognizerGlyph:
		engine = recognize.NewGlyph(c)
	case config.RecognizerTesseract:
		t, err := tesseract.New("eng", c.Alphabet())
		if err != nil {
			return nil, nil, err
		}
		engine, closeEngine = t, t.Close
	case config.RecognizerGemini:
		g, err := gemini.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		engine = g
	default:
		return nil, nil, fmt.Errorf("unknown recognizer %q", cfg.Recognizer)
	}
	log.Info().Str("recognizer", cfg.Recognizer).Float64("minConfidence", cfg.MinConfidence).Msg("recognizer initialized")

	cached := recognize.NewCached(engine, recognize.DefaultCacheSize)
	return recognize.NewGate(cached, cfg.MinConfidence), closeEngine, nil
}

// NewCapturer returns the configured frame source with the capture timeout
// applied.
func NewCapturer(cfg *config.Config) (capture.Capturer, error) {
	var c capture.Capturer
	switch cfg.CaptureSource {
	case config.CaptureFile:
		c = capture.NewFile(cfg.CaptureImage)
	case config.CaptureScreen:
		s, err := screen.New(cfg.CaptureDisplay)
		if err != nil {
			return nil, err
		}
		c = s
	default:
		return nil, fmt.Errorf("unknown capture source %q", cfg.CaptureSource)
	}
	return capture.WithTimeout(c, cfg.CaptureTimeout), nil
}
