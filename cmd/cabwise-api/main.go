// cabwise-api is the dispatch service binary: HTTP API, timeout sweep and
// all backing infrastructure wired from environment config.
package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cabwise/internal/config"
	"cabwise/internal/events"
	"cabwise/internal/http"
	"cabwise/internal/infra"
	"cabwise/internal/logging"
	"cabwise/internal/maps"
	"cabwise/internal/modules/booking"
	"cabwise/internal/modules/driver"
	"cabwise/internal/modules/fare"
	"cabwise/internal/modules/offer"
	"cabwise/internal/modules/operator"
	"cabwise/internal/modules/sequence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	rdb := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = rdb.Close() }()

	var planner maps.Planner
	switch {
	case cfg.Maps.APIKey != "":
		planner, err = maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			logger.Fatal("init route service", zap.Error(err))
		}
	case cfg.Maps.HaversineFallback:
		planner = maps.HaversinePlanner{}
		logger.Warn("routing with straight-line estimates")
	default:
		logger.Fatal("no routing backend: set CABWISE_MAPS_API_KEY or enable the haversine fallback")
	}

	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer func() { _ = producer.Close() }()

	allocator := sequence.NewAllocator(db)
	operatorStore := operator.NewStore(db)
	fareService := fare.NewService(fare.NewStore(db), planner, cfg.Tariff)
	driverStore := driver.NewStore(db)
	driverService := driver.NewService(driverStore, allocator, operatorStore)

	bookingStore := booking.NewStore(db)
	notifier := booking.NewRedisNotifier(rdb)
	dispatchLog := booking.NewRedisDispatchLog(rdb)
	bookingService := booking.NewService(
		bookingStore, driverStore, offer.NewStore(db), fareService,
		allocator, operatorStore, notifier, dispatchLog,
		producer, cfg.Dispatch, logger,
	)
	watcher := booking.NewWatcher(bookingStore, notifier, cfg.Dispatch.WatchTimeout)

	go bookingService.RunTimeoutSweep(ctx)

	router := http.NewRouter(bookingService, watcher, driverService, fareService, logger)
	server := http.NewServer(cfg.HTTP.Addr, router)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
