// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-booking/cmd"
	"ticket-booking/internal/data/cache"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"
	"ticket-booking/internal/wire"
	"ticket-booking/internal/worker"
	"ticket-booking/pkg/broker"
	redisclient "ticket-booking/pkg/cache"
	"ticket-booking/pkg/database"
	"ticket-booking/pkg/telemetry"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.Init(ctx, config.Telemetry)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected successfully")

	rdb, err := redisclient.NewRedisClient(config.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	logger.Info("Redis connected successfully")

	mq, err := broker.NewRabbitMQ(config.RabbitMQ)
	if err != nil {
		logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
	}
	defer mq.Close()
	logger.Info("RabbitMQ connected successfully")

	repos := repository.NewRepository(db, logger)
	clock := utils.SystemClock{}

	app := wire.Wiring(wire.Deps{
		Repo:    repos,
		Pending: cache.NewPendingPaymentCache(rdb, config.Reservation.CacheOpTimeout, logger),
		Gateway: gateway.NewHTTPClient(config.Gateway, logger),
		Clock:   clock,
	}, config, logger)

	workers := []cmd.Worker{
		worker.NewOutboxRelay(repos, mq, config.Reservation.OutboxInterval, clock, logger),
		worker.NewHoldReaper(app.Service.Reservation, config.Reservation.ReaperInterval, logger),
		worker.NewConfirmationListener(mq, app.Service.Reservation, config.RabbitMQ.Queue, logger),
	}

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, workers, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}
