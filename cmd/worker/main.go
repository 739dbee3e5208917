package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/cache"
	"github.com/funlynk/funlynk/internal/conversion"
	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/mail"
	"github.com/funlynk/funlynk/internal/notify"
	"github.com/funlynk/funlynk/internal/queue"
	"github.com/funlynk/funlynk/internal/worker"
	"github.com/funlynk/funlynk/pkg/config"
	"github.com/funlynk/funlynk/pkg/logging"
	"github.com/funlynk/funlynk/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting FunLynk Eligibility Worker")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Connect to Redis
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	// Wire the event bus and its subscribers
	bus := events.NewBus()
	notify.NewPromptNotifier(database).Register(bus)
	notify.NewInterestedNotifier(database, mail.NewQueueMailer(redisCache)).Register(bus)
	notify.NewInvitationMigrator(database, bus).Register(bus)

	posts := db.NewPostRepository(db.NewRepository(database.DB))
	evaluator := conversion.NewEvaluator(&cfg.Conversion, posts, bus)
	checker := worker.NewChecker(&cfg.Worker, database, queue.NewEligibilityQueue(redisCache), evaluator, bus)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := checker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Eligibility checker stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := checker.RunExpirySweeper(ctx); err != nil && err != context.Canceled {
			logger.Error("Expiry sweeper stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
	wg.Wait()

	logger.Info("Worker exited")
}
