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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/toke-hq/toke-backend/platform/go/directory"
	platformlogging "github.com/toke-hq/toke-backend/platform/go/logging"
	platformmiddleware "github.com/toke-hq/toke-backend/platform/go/middleware"
	"github.com/toke-hq/toke-backend/platform/go/persistence"
	"github.com/toke-hq/toke-backend/platform/go/signing"
)

// aggregator exposes a tenant-agnostic API for back-office tooling. A
// caller names the tenant in a header; the aggregator resolves it through
// the directory and relays the call to that tenant's API.

type config struct {
	Port            string        `env:"PORT" envDefault:"3002"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"MASTER_DATABASE_URL,required"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	DirectoryTTL    time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"5m"`
	TenantScheme    string        `env:"TENANT_API_SCHEME" envDefault:"https"`
	TenantDomain    string        `env:"TENANT_API_DOMAIN,required"`
	S2SSecret       string        `env:"S2S_SECRET,required"`
	S2SAPIKey       string        `env:"S2S_API_KEY" envDefault:"aggregator"`
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "aggregator",
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() {
		_ = redisClient.Close()
	}()

	dir := directory.NewCachedDirectory(directory.CachedConfig{
		Next:   directory.NewPGDirectory(pool),
		Cache:  directory.NewRedisCache(redisClient),
		TTL:    cfg.DirectoryTTL,
		Logger: logger,
	})

	signer, err := signing.NewSigner(cfg.S2SSecret)
	if err != nil {
		logger.Fatal("init request signer", zap.Error(err))
	}
	client := signing.NewClient(signing.ClientConfig{
		Signer: signer,
		APIKey: cfg.S2SAPIKey,
	})

	proxy := NewProxy(ProxyConfig{
		Directory: dir,
		Client:    client,
		Scheme:    cfg.TenantScheme,
		Domain:    cfg.TenantDomain,
		Logger:    logger,
	})

	registerer := prometheus.NewRegistry()
	registerer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

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
	apiRouter.Use(platformmiddleware.TenantFromHeader())
	apiRouter.HandleFunc("/*", proxy.Forward)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting aggregator", zap.String("port", cfg.Port))
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
