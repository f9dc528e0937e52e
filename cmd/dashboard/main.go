package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/usdc-dashboard/internal/application/services"
	"github.com/bimakw/usdc-dashboard/internal/config"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/cache"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/explorer"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/wallet"
	"github.com/bimakw/usdc-dashboard/internal/presentation/handlers"
	"github.com/bimakw/usdc-dashboard/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting usdc-dashboard API",
		zap.Int("port", cfg.API.Port),
		zap.Int64("chain_id", cfg.Wallet.TargetChainID),
		zap.String("token_contract", cfg.TokenContract()),
	)

	// Connect to the wallet RPC provider
	provider, err := wallet.NewRPCProvider(cfg.Wallet, logger)
	if err != nil {
		logger.Fatal("Failed to connect to wallet provider", zap.Error(err))
	}
	defer provider.Close()

	// Explorer API client and transfer cache
	explorerClient := explorer.NewClient(cfg.Explorer, cfg.TokenContract(), logger)
	transferCache := cache.NewTransferCache(cfg.Cache.TTL, logger)

	// Create services
	sessionService := services.NewSessionService(provider, explorerClient, cfg, logger)
	historyService := services.NewHistoryService(explorerClient, transferCache, cfg.Token.Decimals, cfg.Explorer.PageSize, logger)

	// Create handlers
	walletMetrics := middleware.NewWalletMetrics()
	sessionHandler := handlers.NewSessionHandler(sessionService, walletMetrics, cfg.Wallet.ExplorerURL, logger)
	historyHandler := handlers.NewHistoryHandler(historyService, walletMetrics, logger)
	eventsHandler := handlers.NewEventsHandler(sessionService, logger)
	healthHandler := handlers.NewHealthHandler(explorerClient, provider)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		sessionHandler.RegisterRoutes(r)
		historyHandler.RegisterRoutes(r)
		r.Get("/wallet/events", eventsHandler.Stream)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	sessionService.Disconnect()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
