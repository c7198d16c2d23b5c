package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bakery-storefront/internal/config"
	"bakery-storefront/internal/database"
	"bakery-storefront/internal/events"
	"bakery-storefront/internal/logger"
	"bakery-storefront/internal/remote"
	"bakery-storefront/internal/server"
	"bakery-storefront/internal/storage"
	"bakery-storefront/migrations"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, stopBackground context.CancelFunc, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown
	stopBackground()

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting bakery storefront",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("api", cfg.API.BaseURL),
	)
	if cfg.JWT.Secret == "" {
		log.Warn("JWT_SECRET not set, token claims are not trusted and admin routes are closed")
	}

	infra := server.Infrastructure{
		API:       remote.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log),
		Publisher: events.NoopPublisher{},
	}

	// Session store
	if cfg.Store.Driver == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		infra.Redis = client
		infra.Store = storage.NewRedisStore(client, "storefront:session", cfg.Store.TTL)
		log.Info("Using redis session store", zap.String("addr", cfg.Redis.Addr()))
	} else {
		infra.Store = storage.NewMemoryStore(cfg.Store.TTL)
		log.Info("Using in-memory session store, rate limiting disabled")
	}

	// Order attempt log
	if cfg.Database.Enabled() {
		dbService, err := database.New(context.Background(), cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		log.Info("Database health check", zap.Any("health", dbService.Health(context.Background())))

		if err := database.RunMigrations(dbService.DB(), migrations.FS, log); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		log.Info("Database migrations completed successfully")
		infra.DB = dbService
	} else {
		log.Info("DB_DATABASE not set, order attempts are kept in memory")
	}

	// Order events
	if cfg.RabbitMQ.URL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		infra.Publisher = publisher
	}

	// Create server
	srv := server.NewServer(cfg, log, infra)

	background, stopBackground := context.WithCancel(context.Background())
	go srv.RunBackground(background)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, stopBackground, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
