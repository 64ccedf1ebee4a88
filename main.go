package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"library-service/cmd"
	"library-service/internal/data/repository"
	"library-service/internal/wire"
	"library-service/pkg/cache"
	"library-service/pkg/checkout"
	"library-service/pkg/database"
	"library-service/pkg/notifier"
	"library-service/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	db, err := database.InitDB(context.Background(), config.App.Name, config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(config.Redis, logger)
	if err != nil {
		// caching is optional, run straight against Postgres
		logger.Error("Failed to connect to Redis, session caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if config.Checkout.APIKey == "" {
		logger.Warn("PROVIDER_API_KEY is not set, checkout sessions will fail")
	}

	repos := repository.NewRepository(db, logger)
	clients := wire.Clients{
		Provider: checkout.NewStripe(config.Checkout, logger),
		Notifier: notifier.New(config.Telegram, logger),
		Sessions: cache.NewSessionCache(redisClient, time.Duration(config.Redis.CacheTTLMinutes)*time.Minute, logger),
	}

	app := wire.Wiring(repos, clients, config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := cmd.NewScheduler(ctx, app.Service, config.Scheduler, logger)
	if err != nil {
		logger.Fatal("Failed to set up scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop(30 * time.Second)

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}

	logger.Info("Server stopped")
}
