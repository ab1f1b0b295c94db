package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/i474232898/agro-insight/internal/agro/providers"
	httpapi "github.com/i474232898/agro-insight/internal/api/http"
	"github.com/i474232898/agro-insight/internal/auth"
	"github.com/i474232898/agro-insight/internal/cache"
	"github.com/i474232898/agro-insight/internal/config"
	"github.com/i474232898/agro-insight/internal/engine"
	"github.com/i474232898/agro-insight/internal/logging"
	"github.com/i474232898/agro-insight/internal/scheduler"
	"github.com/i474232898/agro-insight/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := logging.New(cfg)
	slog.SetDefault(log)

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.UpstreamTimeout,
	}

	opts := providers.Options{
		Client:          httpClient,
		UpstreamTimeout: cfg.UpstreamTimeout,
		AdapterTimeout:  cfg.AdapterTimeout,
		Logger:          log,
		BRLRate:         cfg.BRLRate,
	}

	// Adapters, each trying its upstreams in order before simulating.
	weather := providers.NewWeatherProvider(opts,
		providers.NewOpenMeteoProvider(opts),
		providers.NewWeatherAPIProvider(opts, cfg.WeatherAPIKey),
		providers.NewOpenWeatherProvider(opts, cfg.OpenWeatherAPIKey),
	)
	vegetation := providers.NewVegetationProvider(opts,
		providers.NewNASAImageryProvider(opts, cfg.NASAAPIKey),
		providers.NewSentinelHubProvider(opts, cfg.SentinelHubKey),
	)
	market := providers.NewMarketProvider(opts,
		providers.NewAlphaVantageProvider(opts, cfg.AlphaVantageKey),
		providers.NewYahooFinanceProvider(opts),
	)

	c := cache.New(cache.WithMaxEntries(cfg.CacheMaxEntries))

	deps := service.Deps{
		Weather:    weather,
		Vegetation: vegetation,
		Market:     market,
		Engine:     engine.New(nil),
		Cache:      c,
		Logger:     log,
	}
	// Place names need a Google key; without one the overview omits them.
	if cfg.GeocoderAPIKey != "" {
		deps.Places = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}
	svc := service.New(deps, service.Config{
		WeatherTTL:     cfg.WeatherTTL,
		VegetationTTL:  cfg.VegetationTTL,
		MarketTTL:      cfg.MarketTTL,
		AdapterTimeout: cfg.AdapterTimeout,
		Slack:          cfg.OrchestratorSlack,
	})

	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)

	sched := scheduler.New(svc, cfg.Warm, scheduler.Intervals{
		Warm:    cfg.WarmInterval,
		Probe:   cfg.HealthProbeInterval,
		Cleanup: cfg.CleanupInterval,
	}, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Deps{
		Service:      svc,
		Auth:         authSvc,
		AuthRequired: cfg.AuthRequired,
		Logger:       log,
	})

	go func() {
		log.Info("listening", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
	}
}
