package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-workers/internal/common/cache"
	"payment-workers/internal/common/camunda"
	"payment-workers/internal/common/config"
	"payment-workers/internal/common/database"
	"payment-workers/internal/common/encryption"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/observability"
	"payment-workers/internal/common/preparation"
	"payment-workers/internal/common/products"
	"payment-workers/internal/common/validation"

	fpm "payment-workers/internal/workers/payment/fetch-product-metadata"
	ppr "payment-workers/internal/workers/payment/prepare-payment-request"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// readinessCheck reports whether a dependency is reachable.
type readinessCheck func(ctx context.Context) error

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("starting worker manager", map[string]interface{}{
		"environment": cfg.App.Environment,
		"keySource":   cfg.Gateway.KeySource,
		"products":    cfg.Products.Source,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	checks := map[string]readinessCheck{}

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	checks["zeebe"] = zeebe.HealthCheck
	log.Info("zeebe client connected", nil)

	// --- Gateway key ---
	keyring := encryption.NewKeyring(cfg.Gateway.KeyringCapacity)
	var keys encryption.KeyProvider
	switch cfg.Gateway.KeySource {
	case config.KeySourceRedis:
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis client init failed", zap.Error(err))
		}
		if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, log, "redis connection", redisClient.Ping); err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = redisClient.Ping
		keys = encryption.NewRedisKeyProvider(redisClient.Client, cfg.Gateway.RedisKey, keyring)
		log.Info("gateway key read from redis", map[string]interface{}{"hashKey": cfg.Gateway.RedisKey})
	default:
		static := encryption.NewStaticKeyProvider(cfg.Gateway.KeyID, cfg.Gateway.PublicKey)
		key, err := static.CurrentKey(ctx)
		if err != nil {
			zapLog.Fatal("configured gateway key is unavailable", zap.Error(err))
		}
		if _, err := key.RSAPublicKey(); err != nil {
			zapLog.Fatal("configured gateway key is unusable", zap.Error(err))
		}
		keys = static
		log.Info("gateway key loaded from config", map[string]interface{}{"keyId": cfg.Gateway.KeyID})
	}

	// --- Product metadata ---
	var source products.Source
	switch cfg.Products.Source {
	case config.ProductSourceRegistry:
		registrySource, err := products.LoadRegistrySource(cfg.Products.RegistryPath)
		if err != nil {
			zapLog.Fatal("product registry load failed", zap.Error(err))
		}
		source = registrySource
		log.Info("product metadata served from registry", map[string]interface{}{"path": cfg.Products.RegistryPath})
	default:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres client init failed", zap.Error(err))
		}
		if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, log, "postgres connection", pg.Ping); err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
		source = products.NewPostgresSource(pg.DB)
		log.Info("product metadata served from postgres", nil)
	}

	productCache, err := cache.New(cfg.Cache.Capacity)
	if err != nil {
		zapLog.Fatal("product cache init failed", zap.Error(err))
	}
	productService := products.NewService(productCache, source, log)

	orchestrator := preparation.NewOrchestrator(
		validation.NewEngine(),
		encryption.NewPipeline(),
		keys,
		log,
		preparation.WithKeyring(keyring),
	)

	// --- Workers ---
	var workers []*camunda.Worker

	prepareCfg := config.GetWorkerConfig(cfg, ppr.TaskType)
	prepareHandler := ppr.NewHandler(
		&ppr.Config{Timeout: config.GetDuration(prepareCfg.Timeout)},
		productService, orchestrator, log,
	)
	if w := camunda.StartWorker(zeebe.Zeebe(), ppr.TaskType, prepareCfg, prepareHandler.Handle, obs, log); w != nil {
		workers = append(workers, w)
	}

	fetchCfg := config.GetWorkerConfig(cfg, fpm.TaskType)
	fetchHandler := fpm.NewHandler(
		&fpm.Config{Timeout: config.GetDuration(fetchCfg.Timeout)},
		productService, log,
	)
	if w := camunda.StartWorker(zeebe.Zeebe(), fpm.TaskType, fetchCfg, fetchHandler.Handle, obs, log); w != nil {
		workers = append(workers, w)
	}

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newServeMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}

func newServeMux(checks map[string]readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		failures := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failures[name] = err.Error()
			}
		}

		if len(failures) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "not_ready",
				"failures": failures,
				"time":     time.Now().Format(time.RFC3339),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
