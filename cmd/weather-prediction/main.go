package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-prediction/internal/api/http"
	"github.com/i474232898/weather-prediction/internal/config"
	"github.com/i474232898/weather-prediction/internal/logger"
	"github.com/i474232898/weather-prediction/internal/scheduler"
	"github.com/i474232898/weather-prediction/internal/store"
	"github.com/i474232898/weather-prediction/internal/weather"
	"github.com/i474232898/weather-prediction/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "development").Fatalf("failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	if !cfg.EnvFileLoaded {
		log.Debugf("no .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider, err := providers.New(cfg.DataProvider, providers.Options{
		HTTPClient:       httpClient,
		OpenMeteoBaseURL: cfg.OpenMeteoBaseURL,
		OpenMeteoAPIKey:  cfg.OpenMeteoAPIKey,
		NASAPowerBaseURL: cfg.NASAPowerBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to create provider: %v", err)
	}

	cache, closer, err := store.Open(ctx, store.Options{
		Backend:       cfg.CacheBackend,
		Dir:           cfg.CacheDir,
		Namespace:     cfg.CacheNamespace,
		TTL:           cfg.CacheTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		MySQLDSN:      cfg.MySQLDSN,
	})
	if err != nil {
		log.Fatalf("failed to open %s cache: %v", cfg.CacheBackend, err)
	}
	defer closer.Close()

	fetcher := weather.NewFetcher(provider, cache, cfg.Fetch, log)
	service := weather.NewService(fetcher, cfg.Thresholds, log)

	log.WithFields(map[string]interface{}{
		"provider":   provider.Name(),
		"cache":      cfg.CacheBackend,
		"namespace":  cfg.CacheNamespace,
		"years_back": fetcher.YearsBack(),
	}).Info("prediction service configured")

	// Housekeeping for backends that support pruning.
	pruner, _ := cache.(weather.Pruner)
	sched := scheduler.New(pruner, cfg.CacheMaxAge, cfg.CachePruneInterval, log)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Requests can wait for a whole history batch.
	writeTimeout := cfg.Fetch.Timeout + 10*time.Second

	app := fiber.New(fiber.Config{
		AppName:               "weather-prediction",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          writeTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "weather-prediction",
			"provider": service.Provider(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}
