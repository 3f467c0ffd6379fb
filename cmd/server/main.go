package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
	"github.com/mmynk/splitledger/pkg/logging"
)

const (
	lruCacheSize    = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()

	inner, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer inner.Close()
	balanceCache := cache.NewVersioned(inner)

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize events: %w", err)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	groups := models.SeedGroups()
	viewer := defaultViewer(cfg.DefaultViewerID)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	expenseSvc := service.NewExpenseService(store, groups, service.ExpenseOptions{
		DefaultViewerID: viewer.ID,
		DateLayout:      cfg.DateLayout,
		StrictSplits:    cfg.StrictSplits,
		Cache:           balanceCache,
		Publisher:       publisher,
	})
	groupSvc := service.NewGroupService(store, groups, balanceCache)
	sessionSvc := service.NewSessionService(auth.NewMockAuthenticator(viewer), jwtManager, viewer)

	// Auth runs first so the logger and metrics see the viewer.
	interceptors := connect.WithInterceptors(
		middleware.OptionalAuth(jwtManager),
		middleware.LoggingInterceptor(logger),
		metrics.Interceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewExpenseServiceHandler(expenseSvc, interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(groupSvc, interceptors))
	mux.Handle(apiconnect.NewSessionServiceHandler(sessionSvc, interceptors))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting",
			"address", server.Addr,
			"storage", cfg.StorageBackend,
			"cache", cfg.CacheBackend,
			"strict_splits", cfg.StrictSplits,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (storage.ExpenseStore, error) {
	var seed []models.Expense
	if cfg.SeedData {
		seed = models.SeedExpenses(time.Now())
	}

	switch cfg.StorageBackend {
	case "sqlite":
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		seeded, err := store.SeedIfEmpty(ctx, seed)
		if err != nil {
			store.Close()
			return nil, err
		}
		slog.Info("Storage initialized", "backend", "sqlite", "database", cfg.DBPath, "seeded", seeded)
		return store, nil
	default:
		store, err := memory.New(seed)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", "memory", "expenses", len(seed))
		return store, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.BalanceCache, error) {
	switch cfg.CacheBackend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	case "none":
		return cache.Noop{}, nil
	default:
		return cache.NewMemoryCache(lruCacheSize, cfg.CacheTTL), nil
	}
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.NewLogPublisher(logger), nil
	}
	slog.Info("Publishing events over AMQP", "exchange", cfg.AMQPExchange)
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// defaultViewer names the configured viewer from the seed data when possible.
func defaultViewer(id string) models.User {
	for _, u := range models.SeedUsers() {
		if u.ID == id {
			return u
		}
	}
	return models.User{ID: id}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, X-Invalid-Field")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
