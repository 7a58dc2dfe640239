package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/config"
	"github.com/fixturefox/fixturefox/internal/database"
	"github.com/fixturefox/fixturefox/internal/redis"
	"github.com/fixturefox/fixturefox/internal/scheduler"
	"github.com/fixturefox/fixturefox/internal/server"
	"github.com/fixturefox/fixturefox/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	logger := setupLogging(cfg.Log.Level)

	logger.Info("Starting FixtureFox...")

	// Initialize database
	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis when enabled; the release cache falls back to the
	// in-process store otherwise
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.Initialize(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Initialize services
	serviceContainer := services.NewContainer(db.DB, rawRedisClient(redisClient), cfg, logger)

	// Initialize HTTP server
	httpServer := server.NewHTTPServer(cfg, serviceContainer)

	// Initialize the sweep scheduler
	sched := scheduler.New(
		serviceContainer.Engine(),
		serviceContainer.SourceRepository(),
		serviceContainer.ProfileRepository(),
		scheduler.NewHTTPQuerier(logger),
		time.Duration(cfg.Scheduler.FeedSweepMinutes)*time.Minute,
		time.Duration(cfg.Scheduler.HealthSweepMinutes)*time.Minute,
		cfg.Scheduler.RequestsPerMinute,
		logger,
	)

	// Start services
	logger.Info("Starting background services...")
	serviceContainer.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	// Start HTTP server
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down FixtureFox...")

	// Graceful shutdown
	if err := httpServer.Shutdown(); err != nil {
		logger.Errorf("Error during HTTP server shutdown: %v", err)
	}

	cancel()
	sched.Stop()
	serviceContainer.Stop()
	logger.Info("FixtureFox stopped")
}

// rawRedisClient unwraps the optional Redis wrapper for the container
func rawRedisClient(c *redis.Client) *goredis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}

func setupLogging(level string) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.Info("Logging initialized")
	return logger
}
