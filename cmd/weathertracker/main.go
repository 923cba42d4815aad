package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "weathertracker/internal/api/http"
	"weathertracker/internal/auth"
	"weathertracker/internal/bot"
	"weathertracker/internal/config"
	"weathertracker/internal/notify"
	"weathertracker/internal/scheduler"
	"weathertracker/internal/store"
	"weathertracker/internal/weather"
	"weathertracker/internal/weather/providers"
	"weathertracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		logger.Get().Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()
	log := logger.Get()

	// SQLite-backed history and user stores.
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logins := store.NewMemoryLoginStore(cfg.PendingLoginTTL)
	authSvc := auth.NewService(db, logins, cfg.ServiceSecret)
	hub := notify.NewHub()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// The provider chain. Caching sits outermost so a cache hit never
	// triggers a duplicate write or broadcast; persistence sits directly
	// over the raw provider so every real fetch is recorded exactly once.
	chain := weather.NewCachingProvider(
		weather.NewBroadcastingProvider(
			weather.NewPersistingProvider(
				providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey),
				db,
			),
			hub,
		),
		cfg.CacheTTL,
	)

	// Scheduler keeping configured cities warm.
	sched := scheduler.New(cfg.Cities, cfg.FetchInterval, chain)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telegram login bot, if configured.
	if cfg.BotToken != "" {
		loginBot, err := bot.New(cfg.BotToken, authSvc, cfg.ServiceSecret)
		if err != nil {
			log.Fatalf("failed to start telegram bot: %v", err)
		}
		go loginBot.Run(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:               "weathertracker",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weathertracker",
		})
	})

	httpapi.RegisterRoutes(app, chain, db, authSvc, hub)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}
