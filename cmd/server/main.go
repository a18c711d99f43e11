package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/config"
	"github.com/subware/billing-service/internal/infrastructure/database"
	stripegw "github.com/subware/billing-service/internal/infrastructure/gateway/stripe"
	httpServer "github.com/subware/billing-service/internal/infrastructure/http"
	"github.com/subware/billing-service/internal/usecase"
	"github.com/subware/billing-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories and services
	repos := database.NewRepositories(db, zapLogger)
	gw := stripegw.NewGateway(cfg.Billing.StripeSecretKey, zapLogger)
	locker := usecase.NewSubscriptionLocker()

	subscriptions := usecase.NewSubscriptionService(
		repos.Subscription, repos.Customer, gw, cfg.Billing, locker, zapLogger)
	customers := usecase.NewCustomerService(repos.Customer, gw, cfg.Billing, zapLogger)
	webhooks := usecase.NewWebhookService(
		repos.Subscription, repos.Customer, customers, locker, zapLogger)

	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, subscriptions, customers, webhooks)

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
