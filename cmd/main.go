package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shopgate/internal/bootstrap"
	"shopgate/internal/config"
	cronpkg "shopgate/internal/cron"
	"shopgate/internal/gateway"
	"shopgate/internal/middleware"
	"shopgate/internal/pkg/alert"
	"shopgate/internal/repository"
	"shopgate/internal/router"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	if cfg.Server.Env == "development" {
		if err := bootstrap.SeedDemoProducts(db); err != nil {
			logger.Fatal("Failed to seed demo products", zap.Error(err))
		}
	}

	// --- Gateway client ---
	gw := gateway.NewClient(cfg.PayFast)

	// --- Operator alerts (optional) ---
	alerter := alert.New(cfg.Alert.BotToken, cfg.Alert.ChatID)
	if alerter == nil {
		logger.Info("Telegram alerts disabled (no token or chat configured)")
	}

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	// --- Notification deduper (Redis with in-memory fallback) ---
	notifyDeduper, dedupeErr := middleware.NewNotifyDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		10*time.Minute,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for notification dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Routes ---
	router.Setup(e, db, cfg, gw, alerter, notifyDeduper, logger)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(
		repository.NewOrderRepository(db),
		alerter,
		cfg.Audit.StaleAfter,
		logger,
	)
	scheduler.Start()

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting shopgate server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
