package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/router"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("env", cfg.Env).Logger()
	log.Logger = logger

	dsn, err := database.DSN(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid database configuration")
	}
	db, err := database.Open(dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(dsn, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	qcfg := config.LoadQueueConfig()
	var (
		publisher service.EventPublisher
		consumer  *queue.Consumer
	)
	if qcfg.Enabled {
		publisher = queue.NewPublisher(qcfg, logger)
		consumer = queue.NewConsumer(qcfg, logger, nil)
	}

	st := repository.NewStore(db)
	locks := service.NewLockManager(st, config.LoadBooking, service.SystemClock, logger)
	coupons := service.NewCouponValidator(service.SystemClock)
	pricing := service.NewPricingEngine(st, coupons, config.LoadBooking)
	bookings := service.NewBookingOrchestrator(st, locks, pricing, coupons, publisher, service.SystemClock, logger)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, logger)
	e := router.New(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		Cache:     cache,
		Logger:    logger,
		DB:        db,
		Auth:      handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)),
		Events:    handler.NewEventHandler(repository.NewEventRepo(db), repository.NewSeatRepo(db), service.SystemClock),
		Bookings:  handler.NewBookingHandler(locks, pricing, bookings, repository.NewBookingRepo(db)),
		Admin:     handler.NewAdminHandler(db, cache, logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if consumer != nil {
		g.Go(func() error { return consumer.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
