package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"authgate/api/internal/admission"
	"authgate/api/internal/audit"
	"authgate/api/internal/cache"
	"authgate/api/internal/config"
	"authgate/api/internal/database"
	"authgate/api/internal/handlers"
	"authgate/api/internal/jobs"
	"authgate/api/internal/log"
	"authgate/api/internal/metrics"
	"authgate/api/internal/repository"
	"authgate/api/internal/security"
	"authgate/api/internal/server"
	"authgate/api/internal/service"
	"authgate/api/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)
	if cfg.UsesDefaultSecret() {
		logger.Warn().Msg("using the built-in jwt secret; set AUTHGATE_SECURITY_JWTSECRET before deploying")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	m := metrics.New()
	users := repository.NewUserRepository(dbPool)
	authService := service.NewAuthService(users, security.NewPasswordHasher(cfg.Security.BcryptCost), logger)

	engine := admission.NewEngine(
		admission.NewBotDetector(cfg.Admission.AllowedBots),
		admission.NewShield(),
		admission.NewSlidingWindow(redisClient),
		admission.Mode(cfg.Admission.Mode),
		cfg.Admission.KeyPrefix,
	)
	denials := audit.NewStreamSink(redisClient, cfg.Audit.Stream, cfg.Audit.MaxLen)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		DB:          dbPool,
		Cache:       redisClient,
		AuthService: authService,
		Tokens:      security.NewTokenService(cfg.Security.JWTSecret, cfg.Security.TokenTTL),
		Transport:   session.NewTransport(cfg.Security.CookieName, cfg.SecureCookies()),
		Admission:   engine,
		Audit:       denials,
		Metrics:     m,
	})
	httpServer, err := server.NewHTTPServer(cfg, logger, handlerSet, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	scheduler := jobs.NewScheduler(denials, cfg.Audit.TrimSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("admission_mode", cfg.Admission.Mode).
		Msg("authgate api ready")

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
