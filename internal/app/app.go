package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valutatrade/internal/adapters"
	"valutatrade/internal/api"
	"valutatrade/internal/api/handler"
	"valutatrade/internal/config"
	"valutatrade/internal/domain"
	"valutatrade/internal/exchange"
	"valutatrade/internal/metrics"
	httpserver "valutatrade/internal/platform/http"
	"valutatrade/internal/portfolio"
	"valutatrade/internal/provider"
	"valutatrade/internal/storage"
	"valutatrade/internal/update"
	"valutatrade/internal/user"

	"github.com/sirupsen/logrus"
)

// Components bundles every wired instance of the system. Everything is
// constructed once at process start and passed by reference; there is
// no global mutable state.
type Components struct {
	Cfg         *config.AppConfig
	Registry    *domain.Registry
	Cache       *storage.Cache
	History     *storage.History
	Coordinator *update.Coordinator
	Scheduler   *update.Scheduler
	Exchange    *exchange.Service
	Users       *user.Manager
	Portfolios  *portfolio.Manager
}

// Build wires the application components from config. withMetrics
// controls registration with the process-wide prometheus registry (the
// shell runs without it).
func Build(withMetrics bool) (*Components, error) {
	cfg, err := config.Init()
	if err != nil {
		return nil, err
	}

	logrus.SetOutput(os.Stdout)
	if lvl, parseErr := logrus.ParseLevel(cfg.Logging.Level); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(lvl)
	}
	logrus.Info("Config initialization successful")

	registry, err := buildRegistry(cfg.Currencies)
	if err != nil {
		return nil, err
	}

	httpTimeout := time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	client := provider.NewClient(&http.Client{Timeout: httpTimeout}, provider.RetryConfig{
		MaxRetries:    cfg.HTTPClient.MaxRetries,
		BackoffBase:   time.Duration(cfg.HTTPClient.BackoffBaseMS) * time.Millisecond,
		RateLimitBase: time.Duration(cfg.HTTPClient.RateLimitBaseMS) * time.Millisecond,
	})

	gecko := provider.NewCoinGecko(client, cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.Currencies.Base, cfg.Currencies.Crypto, registry)
	fx := provider.NewExchangeRate(client, cfg.ExchangeRateAPI.BaseURL, cfg.ExchangeRateAPI.APIKey, cfg.Currencies.Base, cfg.Currencies.Fiat, registry)

	cache := storage.NewCache(cfg.Data.RatesPath())
	history := storage.NewHistory(cfg.Data.HistoryPath())

	var m *metrics.Metrics
	if withMetrics {
		m = metrics.New()
	}

	coordinator := update.NewCoordinator(cache, history, []adapters.RateProvider{gecko, fx}, cfg.Currencies.Crypto, m)
	scheduler := update.NewScheduler(coordinator, cfg.Scheduler.Interval(), cfg.Scheduler.StopTimeout())

	rates, err := exchange.NewService(cache, coordinator, registry, cfg.Currencies.Base, cfg.Cache.TTL(), cfg.Cache.HotCacheSize)
	if err != nil {
		return nil, err
	}

	users := user.NewManager(cfg.Data.UsersPath())
	portfolios := portfolio.NewManager(cfg.Data.PortfoliosPath(), cfg.Currencies.Base, rates)

	return &Components{
		Cfg:         cfg,
		Registry:    registry,
		Cache:       cache,
		History:     history,
		Coordinator: coordinator,
		Scheduler:   scheduler,
		Exchange:    rates,
		Users:       users,
		Portfolios:  portfolios,
	}, nil
}

// RunServer wires the components, starts the scheduler and serves the
// HTTP API until an OS signal arrives.
func RunServer() error {
	c, err := Build(true)
	if err != nil {
		return err
	}
	defer c.Exchange.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Scheduler.Start(); err != nil {
		logrus.WithError(err).Error("Failed to start scheduler")
		return err
	}
	defer func() {
		if stopErr := c.Scheduler.Stop(); stopErr != nil {
			logrus.Errorf("Scheduler stop error: %v", stopErr)
		}
	}()
	logrus.Info("Scheduler activation successful")

	router := api.NewRouter(handler.NewHandler(c.Exchange, c.History, c.Coordinator, c.Scheduler))

	logrus.Info("Starting http server")
	if serverErr := httpserver.Start(ctx, c.Cfg.HTTPServer, router); serverErr != nil {
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}
