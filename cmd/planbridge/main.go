package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	pbhttp "github.com/bridgelabs/planbridge/internal/adapter/http"
	"github.com/bridgelabs/planbridge/internal/adapter/identity"
	pbnats "github.com/bridgelabs/planbridge/internal/adapter/nats"
	otelx "github.com/bridgelabs/planbridge/internal/adapter/otel"
	"github.com/bridgelabs/planbridge/internal/adapter/postgres"
	"github.com/bridgelabs/planbridge/internal/adapter/ristretto"
	"github.com/bridgelabs/planbridge/internal/config"
	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/logger"
	"github.com/bridgelabs/planbridge/internal/middleware"
	"github.com/bridgelabs/planbridge/internal/resilience"
	"github.com/bridgelabs/planbridge/internal/secrets"
	"github.com/bridgelabs/planbridge/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)
	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"api_base_url", cfg.Planner.BaseURL,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otelx.Init(ctx, cfg.Logging.Service, cfg.Otel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			log.Error("otel shutdown", "error", err)
		}
	}()

	metrics, err := otelx.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	// NATS
	queue, err := pbnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	// Directory cache
	dirCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer dirCache.Close()

	// Secret vault: refs resolve to environment variables. The shared
	// application secret plus any tenant-specific refs listed in
	// PLANBRIDGE_SECRET_REFS are loaded at startup.
	vault, err := secrets.NewVault(secrets.EnvLoader(secretKeys(cfg)...))
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}

	// --- Services ---

	resolver := identity.NewResolver(cfg.Planner.Authority, cfg.Planner.Scope, vault, cfg.Planner.Timeout)

	// Domain outcomes (conflicts, missing resources, rejected input,
	// denied scopes) are expected answers, not remote-service failures,
	// so they never open the circuit.
	breaker := resilience.NewBreakerWithTrip(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout, func(err error) bool {
		switch {
		case errors.Is(err, domain.ErrConflict),
			errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrValidation),
			errors.Is(err, domain.ErrPermissionDenied):
			return false
		}
		return true
	})

	store := postgres.NewStore(pool)
	factory := service.NewClientFactory(cfg.Planner, resolver, store, breaker)
	provider := service.NewSyncProvider(factory, dirCache, cfg.Cache.DirectoryTTL)

	// --- HTTP ---

	handlers := &pbhttp.Handlers{
		Provider: provider,
		Store:    store,
		Queue:    queue,
		Metrics:  metrics,
	}

	r := chi.NewRouter()

	r.Use(pbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(middleware.TenantID)
	r.Use(pbhttp.Logger)
	r.Use(otelx.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(pool, queue))

	pbhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// secretKeys lists the environment variables the vault loads: the shared
// application's secret ref plus any comma-separated refs in
// PLANBRIDGE_SECRET_REFS (one per tenant-owned registration).
func secretKeys(cfg *config.Config) []string {
	var keys []string
	if cfg.Planner.SharedSecretRef != "" {
		keys = append(keys, cfg.Planner.SharedSecretRef)
	}
	for _, k := range strings.Split(os.Getenv("PLANBRIDGE_SECRET_REFS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// readyHandler reports readiness: the state of the backing services.
func readyHandler(pool *pgxpool.Pool, queue *pbnats.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", NATS: "ok"}
		code := http.StatusOK

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			status.Status = "degraded"
			status.Postgres = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if !queue.IsConnected() {
			status.Status = "degraded"
			status.NATS = "disconnected"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
