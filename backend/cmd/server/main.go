package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"daydei-social/backend/internal/api"
	"daydei-social/backend/internal/metrics"
	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/services"
	"daydei-social/backend/pkg/config"
	"daydei-social/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...",
		zap.String("store", cfg.StoreBackend),
		zap.String("notify", cfg.NotifyBackend),
		zap.String("ordering", cfg.OrderingPolicy),
	)

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize dependencies
	manager := services.NewServiceManager(logger.Named("services"), cfg)
	store, err := manager.StartStore(ctx)
	if err != nil {
		log.Fatal("Failed to start store", zap.Error(err))
	}
	dispatcher, err := manager.StartNotifier(ctx, m)
	if err != nil {
		_ = manager.StopAll(ctx)
		log.Fatal("Failed to start notifier", zap.Error(err))
	}

	svc := newService(cfg, store, dispatcher, m)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, svc, reg)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Pending notifications are flushed only after in-flight requests finish.
	if err := manager.StopAll(shutdownCtx); err != nil {
		log.Error("Failed to stop services", zap.Error(err))
	}

	log.Info("Server exited")
}

func newService(cfg *config.Config, store relation.Store, notifier relation.Notifier, m *metrics.Metrics) *relation.Service {
	return relation.NewService(store, notifier, relation.Config{
		Rotation:             relation.NewRotation(relation.OrderPolicy(cfg.OrderingPolicy)),
		RecommendConcurrency: cfg.RecommendConcurrency,
		RandomListSize:       cfg.RandomListSize,
	}, m)
}

func newRouter(cfg *config.Config, svc *relation.Service, reg *prometheus.Registry) *gin.Engine {
	return api.NewRouter(svc, api.Options{
		IdentityHeader:     cfg.IdentityHeader,
		MutationRatePerSec: cfg.MutationRatePerSec,
		MutationBurst:      cfg.MutationBurst,
		Gatherer:           reg,
	})
}
