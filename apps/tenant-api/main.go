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

	attendancehandler "github.com/toke-hq/toke-backend/domains/attendance/be/handler"
	attendancerepo "github.com/toke-hq/toke-backend/domains/attendance/be/repo"
	attendanceservice "github.com/toke-hq/toke-backend/domains/attendance/be/service"
	"github.com/toke-hq/toke-backend/platform/go/credentials"
	platformlogging "github.com/toke-hq/toke-backend/platform/go/logging"
	"github.com/toke-hq/toke-backend/platform/go/metrics"
	platformmiddleware "github.com/toke-hq/toke-backend/platform/go/middleware"
	"github.com/toke-hq/toke-backend/platform/go/signing"
	"github.com/toke-hq/toke-backend/platform/go/tenantconn"
)

// tenant-api serves attendance endpoints for a single tenant per request.
// The tenant is picked from the request hostname's subdomain and its
// database connection is resolved before any handler runs.

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	S2SSecret       string        `env:"S2S_SECRET,required"`
	S2SAPIKeys      []string      `env:"S2S_API_KEYS,required" envSeparator:","`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "tenant-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	registerer := prometheus.NewRegistry()
	registerer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	connMetrics := metrics.NewConnectionMetrics(registerer)
	signMetrics := metrics.NewSigningMetrics(registerer)

	registry := tenantconn.NewRegistry(tenantconn.Config{
		Credentials: credentials.NewEnvProvider(),
		Logger:      logger,
		Metrics:     connMetrics,
	})
	defer registry.CloseAll()

	attendanceRepo := attendancerepo.NewPostgresRepository(registry)
	attendanceService := attendanceservice.New(attendanceRepo)
	attendanceHTTPHandler := attendancehandler.New(attendanceService, logger)

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
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	apiRouter := chi.NewRouter()
	apiRouter.Use(signing.Middleware(verifier, secrets, signMetrics))
	apiRouter.Use(platformmiddleware.TenantFromHost(registry))
	apiRouter.Group(attendanceHTTPHandler.Routes)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting tenant api", zap.String("port", cfg.Port))
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
