package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/note-service/internal/api/http"
	"github.com/spec-kit/note-service/internal/api/http/handlers"
	"github.com/spec-kit/note-service/internal/auth"
	"github.com/spec-kit/note-service/internal/config"
	"github.com/spec-kit/note-service/internal/events"
	"github.com/spec-kit/note-service/internal/observability"
	"github.com/spec-kit/note-service/internal/persistence"
	"github.com/spec-kit/note-service/internal/repository"
	"github.com/spec-kit/note-service/internal/service"
	"github.com/spec-kit/note-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	sessionRepo := repository.NewSessionRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher(logger)
	auditService := service.NewAuditService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	codec := auth.NewSessionHandleCodec(cfg.Auth.SessionSecret)
	sessionResolver := auth.NewSessionResolver(
		codec, sessionRepo, userRepo,
		cfg.Auth.SessionTTL(), cfg.Auth.SessionSliding,
	)

	tokenService := service.NewTokenService(service.TokenDependencies{
		TokenRepo:  tokenRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	}, cfg.Auth.BcryptCost)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Codec:       codec,
		Dispatcher:  dispatcher,
	}, cfg.Auth.BcryptCost, cfg.Auth.SessionTTL())

	accessGuard := auth.NewAccessGuard(sessionResolver, tokenService)

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(),
		Auth:        handlers.NewAuthHandler(authService, cfg.Auth.SessionTTL()),
		Tokens:      handlers.NewTokensHandler(tokenService),
		AccessGuard: accessGuard,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
