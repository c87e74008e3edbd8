package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/raine/relic-reward-prices/internal/app"
	"github.com/raine/relic-reward-prices/internal/capture"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/config"
	"github.com/raine/relic-reward-prices/internal/logging"
	"github.com/raine/relic-reward-prices/internal/pipeline"
	"github.com/raine/relic-reward-prices/internal/prices"
	"github.com/raine/relic-reward-prices/internal/render"
	"github.com/raine/relic-reward-prices/internal/resolve"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/testframe"
	"github.com/raine/relic-reward-prices/internal/theme"
	"github.com/rs/zerolog/log"
)

func main() {
	imagePath := flag.String("image", "", "screenshot of a reward screen")
	overlayPath := flag.String("overlay", "", "write the overlay snapshot to this PNG")
	noPrices := flag.Bool("no-prices", false, "skip fetching prices")
	selfCheck := flag.Bool("selfcheck", false, "scan a synthetic reward screen drawn from the catalog")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -image <path> [-overlay out.png] [-no-prices]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -selfcheck\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *imagePath == "" && !*selfCheck {
		flag.Usage()
		os.Exit(1)
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	closeLog, err := logging.Setup(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx := context.Background()
	client := app.NewPriceClient(cfg)
	cat, err := app.LoadCatalog(ctx, cfg, client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	locator, err := app.NewLocator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid theme")
	}
	if *selfCheck {
		// Synthetic frames use the bitmap face the glyph engine matches.
		cfg.Recognizer = config.RecognizerGlyph
	}
	recognizer, closeRecognizer, err := app.NewRecognizer(ctx, cfg, cat)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize recognizer")
	}
	defer closeRecognizer()

	cache := prices.NewCache(client, cfg.FetchTimeout)
	if !*noPrices {
		if err := cache.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("continuing without prices")
		}
	}

	var capturer capture.Capturer = capture.NewFile(*imagePath)
	var want []string
	if *selfCheck {
		capturer, want, err = syntheticCapturer(cfg, cat)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to draw synthetic frame")
		}
	}

	renderers := render.Multi{render.Log{}}
	if *overlayPath != "" {
		renderers = append(renderers, render.NewOverlay(*overlayPath))
	}

	p := pipeline.New(pipeline.Deps{
		Capturer:   capturer,
		Locator:    locator,
		Recognizer: recognizer,
		Resolver:   resolve.New(cat),
		Prices:     cache,
		Renderer:   renderers,
	})

	result, err := p.RunCycle(ctx)
	if errors.Is(err, pipeline.ErrPanelNotFound) {
		fmt.Println("No reward screen found.")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("scan failed")
	}

	printResult(result)

	if *selfCheck && !matches(result, want) {
		fmt.Println("\nSelf-check FAILED")
		os.Exit(3)
	}
}

// syntheticCapturer draws up to four catalog items in the configured theme,
// or Grineer when none is set.
func syntheticCapturer(cfg *config.Config, cat *catalog.Catalog) (capture.Capturer, []string, error) {
	name := cfg.Theme
	if name == "" {
		name = "Grineer"
	}
	t, err := theme.Default().ByName(name)
	if err != nil {
		return nil, nil, err
	}

	var names []string
	for _, it := range cat.Items() {
		// Longer names do not fit a slot at 1080p.
		if it.Category == catalog.CategoryRelicReward && len(it.Name) <= 30 {
			names = append(names, it.Name)
		}
		if len(names) == 4 {
			break
		}
	}
	if len(names) == 0 {
		return nil, nil, errors.New("catalog has no relic rewards")
	}

	frame := testframe.Reward(1920, 1080, t, names)
	return capture.Func(func(ctx context.Context) (*reward.Frame, error) {
		return frame, nil
	}), names, nil
}

func matches(result *reward.Result, want []string) bool {
	if len(result.Slots) != len(want) {
		return false
	}
	for i, s := range result.Slots {
		if s.Item == nil || s.Item.Name != want[i] {
			return false
		}
	}
	return true
}

func printResult(result *reward.Result) {
	themeName := "-"
	if result.Panel.Theme != nil {
		themeName = result.Panel.Theme.Name
	}
	fmt.Printf("Reward screen: %d slots, theme %s", len(result.Slots), themeName)
	if result.Panel.LowConfidence {
		fmt.Print(" (low confidence)")
	}
	fmt.Println()
	for i, s := range result.Slots {
		marker := " "
		if i == result.BestSlot {
			marker = "*"
		}
		fmt.Printf("%s %d  %s\n", marker, s.Slot.Index+1, strings.Join(render.SlotLines(s), ", "))
	}
}
