package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/catalog"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/checkout"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/fulfillment"
	h "github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/http"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/reservation"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/stock"
)

type Config struct {
	HTTPPort        string
	DBPath          string
	MigrationsPath  string
	RedisAddr       string
	KafkaBrokers    []string
	ReservationTTL  time.Duration
	SweepInterval   time.Duration
	CacheTTL        time.Duration
	MaxBatch        int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "storefront.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "internal/catalog/migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		ReservationTTL:  getEnvDuration("RESERVATION_TTL", reservation.DefaultTTL),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", reservation.DefaultSweepInterval),
		CacheTTL:        getEnvDuration("CACHE_TTL", 15*time.Minute),
		MaxBatch:        getEnvInt("MAX_BATCH", stock.DefaultMaxBatch),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	// Durable catalog (actual stock lives here)
	repo, err := catalog.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var cat catalog.Catalog = repo
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		cat = catalog.NewCachedRepository(repo, catalog.NewRedisCache(redisClient, cfg.CacheTTL))
		log.Printf("Catalog cache enabled via redis at %s", cfg.RedisAddr)
	}

	// Reservation engine: store + sweep, lifecycle manager, query facade
	holdStore := reservation.NewMemoryStore(cfg.SweepInterval)
	manager := reservation.NewManager(holdStore, cfg.ReservationTTL)
	facade := stock.NewService(cat, holdStore, cfg.MaxBatch)
	checkoutService := checkout.NewService(facade, cat, manager)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Order-completion consumer (durable decrement + hold release)
	if len(cfg.KafkaBrokers) > 0 {
		consumer := fulfillment.NewConsumer(checkoutService, cfg.KafkaBrokers...)
		defer consumer.Close()
		go consumer.Run(ctx)
		log.Printf("Fulfillment consumer started on brokers %v", cfg.KafkaBrokers)
	}

	stockHandler := h.NewStockHandler(facade, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/stock", stockHandler.GetStock)
	r.Post("/cart/validate", stockHandler.ValidateCart)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "stock-engine"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Stock engine starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := holdStore.Close(); err != nil {
		log.Printf("failed to stop reservation store: %v", err)
	}

	log.Println("server exited")
}
