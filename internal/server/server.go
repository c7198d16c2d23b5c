package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"bakery-storefront/internal/cart"
	"bakery-storefront/internal/catalog"
	"bakery-storefront/internal/config"
	"bakery-storefront/internal/database"
	"bakery-storefront/internal/metrics"
	custommiddleware "bakery-storefront/internal/middleware"
	"bakery-storefront/internal/order"
	"bakery-storefront/internal/remote"
	"bakery-storefront/internal/repository"
	"bakery-storefront/internal/storage"
	"bakery-storefront/internal/transport"
	"bakery-storefront/internal/user"
)

// OrderPublisher announces checkout outcomes and owns its connection
type OrderPublisher interface {
	order.Publisher
	io.Closer
}

// Infrastructure is what main connects before the server is built. DB and
// Redis may be nil.
type Infrastructure struct {
	API       *remote.Client
	Store     storage.Store
	DB        database.Service
	Redis     *redis.Client
	Publisher OrderPublisher
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	infra  Infrastructure

	catalog *catalog.Cache
	carts   *cart.Registry
}

func NewServer(cfg *config.Config, logger *zap.Logger, infra Infrastructure) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(metrics.PrometheusMiddleware)
	router.Use(custommiddleware.SessionMiddleware(cfg.JWT.Secret, logger))

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var limiter redis.Cmdable
	if infra.Redis != nil {
		limiter = infra.Redis
	}
	router.Use(custommiddleware.RateLimitMiddleware(limiter, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "storefront:ratelimit",
	}, logger))

	s := &Server{
		config: cfg,
		logger: logger,
		infra:  infra,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.Handler())

	// Initialize services
	s.catalog = catalog.NewCache(infra.API, logger)
	s.carts = cart.NewRegistry(infra.API, infra.Store, s.catalog, logger)

	var attempts repository.OrderAttemptRepository
	if infra.DB != nil {
		attempts = repository.NewOrderAttemptRepository(infra.DB.DB())
	} else {
		attempts = repository.NewMemoryOrderAttemptRepository()
	}
	controller := order.NewController(infra.API, infra.Store, attempts, infra.Publisher, logger)
	history := order.NewHistory(infra.API, logger)
	directory := user.NewDirectory(infra.API, logger)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(s.catalog, cfg.Server.AssetBaseURL, logger)
	cartHandler := transport.NewCartHandler(s.carts, s.catalog, logger)
	orderHandler := transport.NewOrderHandler(controller, s.carts, history, attempts, logger)
	userHandler := transport.NewUserHandler(directory, logger)

	adminMiddleware := custommiddleware.RequireAdmin(logger)

	// Register routes
	catalogHandler.RegisterRoutes(router, adminMiddleware)
	cartHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router, adminMiddleware)
	userHandler.RegisterRoutes(router, adminMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "bakery-storefront"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// RunBackground loads the remote catalog, then keeps it fresh and drops idle
// cart engines until ctx ends
func (s *Server) RunBackground(ctx context.Context) {
	if err := s.catalog.Reload(ctx); err != nil {
		s.logger.Warn("Serving the built-in catalog", zap.Error(err))
	}

	reload := time.NewTicker(positive(s.config.API.CatalogReload, 5*time.Minute))
	defer reload.Stop()
	idle := positive(s.config.Store.SessionIdle, 30*time.Minute)
	sweep := time.NewTicker(idle)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reload.C:
			_ = s.catalog.Reload(ctx)
		case <-sweep.C:
			if n := s.carts.Sweep(idle); n > 0 {
				s.logger.Debug("Dropped idle carts", zap.Int("count", n), zap.Int("active", s.carts.Len()))
			}
		}
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}
	code := http.StatusOK

	if s.infra.DB != nil {
		db := s.infra.DB.Health(r.Context())
		status["database"] = db
		if db["status"] != "up" {
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if s.infra.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.infra.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "up"
		}
	}

	custommiddleware.RespondWithJSON(w, code, status)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.catalog.Close()

	if err := s.infra.Publisher.Close(); err != nil {
		s.logger.Error("Failed to close order publisher", zap.Error(err))
	}
	if s.infra.Redis != nil {
		if err := s.infra.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	if s.infra.DB != nil {
		if err := s.infra.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
