package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/audit"
	"github.com/sxk/signal-link/internal/config"
	"github.com/sxk/signal-link/internal/database"
	"github.com/sxk/signal-link/internal/handler"
	"github.com/sxk/signal-link/internal/jobs"
	"github.com/sxk/signal-link/internal/metrics"
	"github.com/sxk/signal-link/internal/middleware"
	"github.com/sxk/signal-link/internal/redis"
	"github.com/sxk/signal-link/internal/repository"
	"github.com/sxk/signal-link/internal/service"
	"github.com/sxk/signal-link/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	auditPublisher := audit.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit.SetPublisher(auditPublisher)
	log.Info().Str("mode", audit.PublisherMode(auditPublisher)).Msg("audit publisher ready")

	pairingRepo := repository.NewPairingRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	pairingService := service.NewPairingService(pairingRepo, broker)
	telegramService := service.NewTelegramService(cfg.TelegramAPIBaseURL, cfg.TelegramBotToken, cfg.TelegramChatID)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	pairingRateLimit := middleware.NewIPRateLimitMiddleware(rateLimiter, config.PairingRateLimitPerMin, time.Minute, "pairing")
	notifyRateLimit := middleware.NewIPRateLimitMiddleware(rateLimiter, cfg.NotifyRateLimitPerMin, config.NotifyWindow, "notify")

	pairingHandler := handler.NewPairingHandler(pairingService, broker)
	notifyHandler := handler.NewNotifyHandler(telegramService)
	entryHandler := handler.NewEntryHandler(cfg.EntryCode)
	webAppHandler := handler.NewWebAppHandler(cfg.StaticDir)
	healthHandler := handler.NewHealthHandler(map[string]handler.Check{
		"database": db.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1/pairings", func(r chi.Router) {
		r.Use(pairingRateLimit.Handler)
		r.Mount("/", pairingHandler.Routes())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.With(notifyRateLimit.Handler).Post("/notify", notifyHandler.ServeHTTP)
	})

	r.Get("/entry/{code}", entryHandler.ServeHTTP)

	r.NotFound(webAppHandler.ServeHTTP)

	statsJob := jobs.NewStatsJob(pairingRepo, config.StatsJobInterval, config.ActiveSessionWindow)
	statsJob.Start()
	defer statsJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Event streams never go idle; end them before draining.
	broker.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
