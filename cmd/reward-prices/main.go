package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/relic-reward-prices/internal/app"
	"github.com/raine/relic-reward-prices/internal/config"
	"github.com/raine/relic-reward-prices/internal/httpapi"
	"github.com/raine/relic-reward-prices/internal/logging"
	"github.com/raine/relic-reward-prices/internal/pipeline"
	"github.com/raine/relic-reward-prices/internal/prices"
	"github.com/raine/relic-reward-prices/internal/render"
	"github.com/raine/relic-reward-prices/internal/resolve"
	"github.com/raine/relic-reward-prices/internal/storage"
	"github.com/raine/relic-reward-prices/internal/trigger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	setup := flag.Bool("setup", false, "run the setup wizard and exit")
	flag.Parse()

	config.LoadEnvFile()

	if *setup || (!config.EnvFileExists() && config.IsInteractiveTerminal()) {
		if !config.RunSetupWizard() {
			config.WaitOnWindows()
			os.Exit(1)
		}
		if *setup {
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("%v", err)
	}

	closeLog, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		config.FatalWithWait("failed to open log file: %v", err)
	}
	defer closeLog()

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := app.NewPriceClient(cfg)
	cat, err := app.LoadCatalog(ctx, cfg, client)
	if err != nil {
		config.FatalWithWait("failed to load catalog: %v", err)
	}

	locator, err := app.NewLocator(cfg)
	if err != nil {
		config.FatalWithWait("invalid THEME: %v", err)
	}

	recognizer, closeRecognizer, err := app.NewRecognizer(ctx, cfg, cat)
	if err != nil {
		config.FatalWithWait("failed to initialize recognizer: %v", err)
	}
	defer closeRecognizer()

	capturer, err := app.NewCapturer(cfg)
	if err != nil {
		config.FatalWithWait("failed to initialize capture: %v", err)
	}
	log.Info().Str("source", cfg.CaptureSource).Msg("capture initialized")

	latest := &render.Latest{}
	renderers := render.Multi{render.Log{}, latest}

	if cfg.OverlayOutput != "" {
		renderers = append(renderers, render.NewOverlay(cfg.OverlayOutput))
		log.Info().Str("path", cfg.OverlayOutput).Msg("overlay snapshots enabled")
	}

	var store *storage.SQLiteStore
	if cfg.HistoryDBPath != "" {
		store, err = storage.NewSQLiteStore(cfg.HistoryDBPath)
		if err != nil {
			config.FatalWithWait("failed to initialize history store: %v", err)
		}
		defer store.Close()
		renderers = append(renderers, render.NewHistory(store))
		log.Info().Str("dbPath", cfg.HistoryDBPath).Msg("history store initialized")
	}

	if cfg.TelegramEnabled() {
		tg, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			config.FatalWithWait("failed to initialize telegram bot: %v", err)
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")
		notifier := render.NewTelegram(tg, cfg.TelegramChatID)
		notifier.MinPlatinum = cfg.TelegramMinPlatinum
		renderers = append(renderers, notifier)
	}

	cache := prices.NewCache(client, cfg.FetchTimeout)
	p := pipeline.New(pipeline.Deps{
		Capturer:   capturer,
		Locator:    locator,
		Recognizer: recognizer,
		Resolver:   resolve.New(cat),
		Prices:     cache,
		Renderer:   renderers,
	})

	manual := trigger.NewManual()
	sources := []trigger.Source{manual}
	if len(scanSignals) > 0 {
		sources = append(sources, trigger.Signal{Signals: scanSignals})
	}
	if cfg.PollInterval > 0 {
		sources = append(sources, trigger.Ticker{Interval: cfg.PollInterval})
	}
	if cfg.EELogPath != "" {
		sources = append(sources, trigger.NewLogWatcher(cfg.EELogPath, cfg.EELogDelay))
		log.Info().Str("path", cfg.EELogPath).Msg("watching game log")
	}

	g, ctx := errgroup.WithContext(ctx)

	// Price refresher
	g.Go(func() error {
		cache.Run(ctx, cfg.PriceRefreshInterval)
		return nil
	})

	// Detection loop
	g.Go(func() error {
		return p.Run(ctx, trigger.Merge(sources...))
	})

	if store != nil {
		g.Go(func() error {
			runHistoryPruner(ctx, store, cfg.HistoryMaxAge)
			return nil
		})
	}

	if cfg.HTTPAddr != "" {
		if cfg.LogLevel > zerolog.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}
		deps := httpapi.Deps{Prices: cache, Latest: latest, Scanner: manual}
		if store != nil {
			deps.History = store
		}
		server := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(deps))
		if err := server.Listen(); err != nil {
			config.FatalWithWait("failed to start status api: %v", err)
		}
		// Status API errors stay out of the group so detection keeps running.
		g.Go(func() error {
			if err := server.Run(ctx); err != nil {
				log.Error().Err(err).Msg("status api stopped")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
