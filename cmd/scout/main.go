package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"guild-scout/internal/config"
	"guild-scout/internal/discord"
	"guild-scout/internal/enrichment"
	"guild-scout/internal/gemini"
	"guild-scout/internal/novelty"
	"guild-scout/internal/observability"
	"guild-scout/internal/raiderio"
	"guild-scout/internal/scan"
	"guild-scout/internal/storage"
	"guild-scout/internal/storage/memory"
	"guild-scout/internal/storage/migrations"
	pgstore "guild-scout/internal/storage/postgres"
	"guild-scout/internal/warcraftlogs"
	"guild-scout/internal/wowprogress"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("build logger", zap.Error(err))
	}
	defer logger.Sync()

	metrics := observability.NewMetrics("")

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info("starting metrics server", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.Stringer("signal", sig))
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger, metrics)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("scout failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return zapCfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) error {
	var seenStore storage.SeenStore = memory.NewSeenStore()
	var blacklistStore storage.BlacklistStore = memory.NewBlacklistStore()

	if !cfg.UseMemory {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}

		seenStore = pgstore.NewSeenStore(pool)
		blacklistStore = pgstore.NewBlacklistStore(pool)
		logger.Info("using postgres storage")
	} else {
		logger.Warn("using in-memory storage, seen state is lost on restart")
	}

	var fetcher wowprogress.PageFetcher
	if cfg.WoWProgress.FlareSolverrURL != "" {
		fetcher = wowprogress.NewFlareSolverrFetcher(cfg.WoWProgress.FlareSolverrURL)
		logger.Info("fetching listing pages via flaresolverr", zap.String("url", cfg.WoWProgress.FlareSolverrURL))
	} else {
		fetcher = wowprogress.NewHTTPFetcher()
	}

	collector, err := wowprogress.NewCollector(wowprogress.CollectorOptions{
		Fetcher: fetcher,
		BaseURL: cfg.WoWProgress.BaseURL,
		Region:  cfg.Region,
		Logger:  logger.Named("wowprogress"),
	})
	if err != nil {
		return err
	}

	raidProfiles := raiderio.NewClient(
		raiderio.WithAPIKey(cfg.RaiderIO.APIKey),
		raiderio.WithTiers(cfg.Eligibility.Tiers),
	)

	var rankings enrichment.RankingsClient
	if cfg.WarcraftLogs.ClientID != "" {
		rankings = warcraftlogs.NewClient(cfg.WarcraftLogs.ClientID, cfg.WarcraftLogs.ClientSecret)
	} else {
		logger.Info("warcraftlogs credentials not set, rankings source disabled")
	}

	evaluator := enrichment.NewAggregator(enrichment.Options{
		RaidProfiles:       raidProfiles,
		Rankings:           rankings,
		Details:            collector,
		Region:             cfg.Region,
		Tiers:              cfg.Eligibility.Tiers,
		RequireCuttingEdge: cfg.Eligibility.RequireCuttingEdge,
		RequiredLanguage:   cfg.Eligibility.RequiredLanguage,
		Logger:             logger.Named("enrichment"),
	})

	notifier := discord.NewNotifier(discord.NotifierOptions{
		WebhookURL: cfg.Discord.WebhookURL,
		Region:     cfg.Region,
		Logger:     logger.Named("discord"),
	})

	var summarizer scan.Summarizer
	if cfg.Gemini.APIKey != "" {
		summarizer = gemini.NewSummarizer(gemini.SummarizerOptions{
			URL:    cfg.Gemini.URL,
			APIKey: cfg.Gemini.APIKey,
			Logger: logger.Named("gemini"),
		})
	}

	runner, err := scan.NewRunner(scan.RunnerOptions{
		Collector:       collector,
		Filter:          novelty.NewFilter(seenStore, blacklistStore, logger.Named("novelty")),
		Evaluator:       evaluator,
		Notifier:        notifier,
		Summarizer:      summarizer,
		SeenStore:       seenStore,
		PollInterval:    cfg.PollInterval,
		DispatchDelay:   cfg.DispatchDelay,
		RetentionWindow: cfg.RetentionWindow,
		Logger:          logger.Named("scan"),
		Metrics:         metrics,
	})
	if err != nil {
		return err
	}

	logger.Info("starting scan loop", zap.String("region", cfg.Region))
	return runner.Run(ctx)
}
