package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	sqlassets "github.com/toke-hq/toke-backend/database"
	tenantshandler "github.com/toke-hq/toke-backend/domains/tenants/be/handler"
	tenantsrepo "github.com/toke-hq/toke-backend/domains/tenants/be/repo"
	tenantsservice "github.com/toke-hq/toke-backend/domains/tenants/be/service"
	platformlogging "github.com/toke-hq/toke-backend/platform/go/logging"
	"github.com/toke-hq/toke-backend/platform/go/metrics"
	platformmiddleware "github.com/toke-hq/toke-backend/platform/go/middleware"
	"github.com/toke-hq/toke-backend/platform/go/persistence"
	"github.com/toke-hq/toke-backend/platform/go/signing"
)

// master-api owns the tenant directory. It is the only service talking to
// the master database; everything else resolves tenants through it.

type config struct {
	Port            string        `env:"PORT" envDefault:"3001"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"MASTER_DATABASE_URL,required"`
	S2SSecret       string        `env:"S2S_SECRET,required"`
	S2SAPIKeys      []string      `env:"S2S_API_KEYS,required" envSeparator:","`
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "master-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init master pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if _, err := pool.Exec(ctx, sqlassets.TenantsSQL); err != nil {
		logger.Fatal("bootstrap tenants schema", zap.Error(err))
	}

	registerer := prometheus.NewRegistry()
	registerer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	signMetrics := metrics.NewSigningMetrics(registerer)

	tenantRepo := tenantsrepo.NewPostgresRepository(pool)
	tenantService := tenantsservice.New(tenantRepo)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	verifier := signing.NewVerifier(signing.VerifierConfig{})
	secrets := signing.StaticSecret(cfg.S2SSecret, cfg.S2SAPIKeys...)

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	apiRouter := chi.NewRouter()
	apiRouter.Use(signing.Middleware(verifier, secrets, signMetrics))
	apiRouter.Group(tenantHTTPHandler.Routes)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting master api", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
