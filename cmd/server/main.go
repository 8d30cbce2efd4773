package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-seat-locking/internal/config"
	"github.com/iliyamo/ticket-seat-locking/internal/database"
	"github.com/iliyamo/ticket-seat-locking/internal/handler"
	"github.com/iliyamo/ticket-seat-locking/internal/middleware"
	"github.com/iliyamo/ticket-seat-locking/internal/pkg/logger"
	"github.com/iliyamo/ticket-seat-locking/internal/pkg/metrics"
	"github.com/iliyamo/ticket-seat-locking/internal/queue"
	"github.com/iliyamo/ticket-seat-locking/internal/repository"
	"github.com/iliyamo/ticket-seat-locking/internal/router"
	"github.com/iliyamo/ticket-seat-locking/internal/service"
	"github.com/iliyamo/ticket-seat-locking/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional outside local development

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
	}

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	m := metrics.New()
	publisher := queue.NewPublisher(cfg.AMQPURL)
	defer publisher.Close()

	sessions := repository.NewSessionRepo(db)
	ticketTypes := repository.NewTicketTypeRepo(db)
	seats := repository.NewSeatRepo(db)

	locks := service.NewLockService(cfg.Lock, store.NewLockStore(rdb), sessions, seats, ticketTypes,
		service.WithMetrics(m),
		service.WithPublisher(publisher),
	)
	inventory := service.NewInventoryService(store.NewInventoryStore(rdb), m)
	availability := service.NewAvailabilityService(sessions, ticketTypes)

	health := handler.NewHealthHandler(map[string]handler.Check{
		"mysql": db.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Prometheus(m))

	router.RegisterRoutes(e, health, prometheus.DefaultGatherer)
	router.RegisterPublic(e, handler.NewAvailabilityHandler(availability), middleware.NewRedisCache(cfg.Cache, rdb))
	router.RegisterLocks(e, handler.NewLockHandler(locks), cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit, rdb))
	router.RegisterStock(e, handler.NewStockHandler(inventory), cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(cfg.AMQPURL, queue.DefaultAuditLog)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("seat lock consumer stopped", zap.Error(err))
		}
	}()

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
