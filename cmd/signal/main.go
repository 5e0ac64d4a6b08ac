package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suissa/purecore-ninjalive/internal/core/services"
	httphandlers "github.com/suissa/purecore-ninjalive/internal/handlers/http"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/middleware"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/monitoring"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/repositories/memory"
	wsserver "github.com/suissa/purecore-ninjalive/internal/infrastructure/signal"
	"github.com/suissa/purecore-ninjalive/pkg/config"
	"github.com/suissa/purecore-ninjalive/pkg/logger"
	"github.com/suissa/purecore-ninjalive/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/ninjalive/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("Failed to initialize tracing", "error", err)
	}

	// Room registry and admission
	roomRepo := memory.NewRoomRepository()
	admission := services.NewAdmissionService(roomRepo, log)

	// Monitoring
	collector := monitoring.NewPrometheusCollector()
	health := monitoring.NewHealthChecker()
	health.AddCheck("room_registry", func(ctx context.Context) (bool, error) {
		_, err := admission.ListRooms(ctx)
		return err == nil, err
	}, 2*time.Second)

	// Signaling relay
	wsOpts := wsserver.DefaultOptions()
	if cfg.Signal.PingInterval > 0 {
		wsOpts.PingInterval = cfg.Signal.PingInterval
	}
	if cfg.Signal.PongTimeout > 0 {
		wsOpts.PongTimeout = cfg.Signal.PongTimeout
	}
	if cfg.Signal.WriteTimeout > 0 {
		wsOpts.WriteTimeout = cfg.Signal.WriteTimeout
	}
	if cfg.RateLimiting.Enabled {
		wsOpts.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		wsOpts.MessageBurst = cfg.RateLimiting.WebSocket.Burst
		if cfg.RateLimiting.WebSocket.MaxMessageSizeBytes > 0 {
			wsOpts.MaxMessageSize = cfg.RateLimiting.WebSocket.MaxMessageSizeBytes
		}
	}
	relay := wsserver.NewWebSocketServer(admission, collector, wsOpts, log)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	roomHandler := httphandlers.NewRoomHandler(admission, health)
	roomHandler.SetupRoutes(router)

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{})))
		log.Info("Prometheus metrics enabled")
	}

	apiSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	signalMux := http.NewServeMux()
	signalMux.HandleFunc("/ws", relay.HandleWebSocket)
	signalSrv := &http.Server{
		Addr:    cfg.Signal.Address,
		Handler: signalMux,
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Infow("Starting HTTP API server", "address", cfg.Server.Address)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	go func() {
		log.Infow("Starting signaling server", "address", cfg.Signal.Address)
		if err := signalSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Infow("Shutting down", "uptime", time.Since(startTime).String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := signalSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down signaling server", "error", err)
		signalSrv.Close()
	}
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down API server", "error", err)
		apiSrv.Close()
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}

	log.Info("Server stopped")
}
