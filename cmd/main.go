package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Johngardev/Emeraldia/internal/cache"
	"github.com/Johngardev/Emeraldia/internal/domain"
	h "github.com/Johngardev/Emeraldia/internal/http"
	"github.com/Johngardev/Emeraldia/internal/repository"
	"github.com/Johngardev/Emeraldia/internal/service"
	"github.com/Johngardev/Emeraldia/internal/store"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	SeedCatalog     bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "emeraldia"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		SeedCatalog:     getEnv("SEED_CATALOG", "false") == "true",
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := loadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoDB.Client().Disconnect(ctx)
	logger.Info("connected to MongoDB", zap.String("uri", cfg.MongoURI))

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	orderRepo := repository.NewMongoOrderRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	inventory := store.NewMongoStore(mongoDB)

	if err := repository.EnsureIndexes(ctx, cartRepo); err != nil {
		logger.Fatal("failed to create indexes", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	cartCache := cache.NewRedisCache(redisClient)

	if cfg.SeedCatalog {
		if err := seedCatalog(ctx, productRepo, logger); err != nil {
			logger.Fatal("failed to seed catalog", zap.Error(err))
		}
	}

	// Cart mutations and checkout share the per-user lock so they serialize
	// against each other.
	locks := service.NewKeyedMutex()

	cartService := service.NewCartService(cartRepo, cartCache, inventory, locks, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderRepo, inventory, cartCache, locks, logger)
	orderService := service.NewOrderService(orderRepo, inventory, logger)

	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout)
	ordersHandler := h.NewOrdersHandler(orderService, cfg.RequestTimeout)
	productHandler := h.NewProductHandler(productRepo, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestLogger(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.MockAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.With(h.RequireAdmin).Patch("/{order_id}/status", ordersHandler.UpdateStatus)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{product_id}", productHandler.Get)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "emeraldia"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// seedCatalog loads a small demo inventory on first boot. Products already
// present are left alone so restarts never reset live stock counts.
func seedCatalog(ctx context.Context, repo repository.ProductRepository, logger *zap.Logger) error {
	existing, err := repo.ListProducts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("catalog already seeded", zap.Int("products", len(existing)))
		return nil
	}

	products := []*domain.Product{
		{
			ID:            "emerald-muzo-21",
			Name:          "Colombian Emerald 2.1ct",
			Description:   "Vivid green Muzo emerald, minor oil",
			Price:         decimal.RequireFromString("1499.00"),
			StockQuantity: 3,
			ProductType:   "SINGLE_EMERALD",
			GemType:       "EMERALD",
			Origin:        "Muzo, Colombia",
			CaratWeight:   decimal.RequireFromString("2.1"),
			Color:         "Vivid Green",
			Cut:           "Emerald Cut",
			Clarity:       "VS",
			Treatment:     "Minor Oil",
			Certification: "GRS",
		},
		{
			ID:            "emerald-chivor-08",
			Name:          "Chivor Emerald 0.8ct",
			Description:   "Bluish green Chivor emerald",
			Price:         decimal.RequireFromString("420.00"),
			StockQuantity: 7,
			ProductType:   "SINGLE_EMERALD",
			GemType:       "EMERALD",
			Origin:        "Chivor, Colombia",
			CaratWeight:   decimal.RequireFromString("0.8"),
			Color:         "Bluish Green",
			Cut:           "Oval",
			Clarity:       "SI",
			Treatment:     "Minor Oil",
		},
		{
			ID:            "lot-rough-muzo",
			Name:          "Rough Emerald Lot 25ct",
			Description:   "Mixed rough lot for cutters",
			Price:         decimal.RequireFromString("2600.00"),
			StockQuantity: 2,
			ProductType:   "GEMSTONE_LOT",
			GemType:       "EMERALD",
			Origin:        "Muzo, Colombia",
			CaratWeight:   decimal.RequireFromString("25"),
		},
	}

	for _, p := range products {
		if err := repo.InsertProduct(ctx, p); err != nil {
			return err
		}
	}
	logger.Info("catalog seeded", zap.Int("products", len(products)))
	return nil
}
