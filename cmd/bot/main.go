package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bidradar/rfp-discovery-bot/internal/api"
	"github.com/bidradar/rfp-discovery-bot/internal/archive"
	"github.com/bidradar/rfp-discovery-bot/internal/config"
	"github.com/bidradar/rfp-discovery-bot/internal/extractor"
	"github.com/bidradar/rfp-discovery-bot/internal/fetcher"
	"github.com/bidradar/rfp-discovery-bot/internal/monitoring"
	"github.com/bidradar/rfp-discovery-bot/internal/notifications"
	"github.com/bidradar/rfp-discovery-bot/internal/scheduler"
	"github.com/bidradar/rfp-discovery-bot/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting RFP Discovery Bot")

	ctx := context.Background()

	// Initialize Postgres storage and apply migrations
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Choose the page fetcher backend
	var pageFetcher fetcher.PageFetcher
	switch cfg.Fetcher {
	case config.FetcherLocal:
		pageFetcher = fetcher.NewLocalFetcher()
	default:
		pageFetcher = fetcher.NewFirecrawlFetcher(cfg.FirecrawlAPIKey, cfg.FirecrawlBaseURL)
	}

	listingExtractor := extractor.NewGatewayExtractor(
		cfg.AIGatewayAPIKey, cfg.AIGatewayURL, cfg.AIModel, cfg.MaxContentChars)

	// Optional page snapshot archive
	var snapshotArchive archive.Archiver
	if cfg.StorageAccount != "" {
		snapshotArchive, err = archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize snapshot archive: %v", err)
		}
	}

	// Optional run digest notifications
	var notifier notifications.Notifier
	notificationService := notifications.NewService(cfg)
	if notificationService.Enabled() {
		notifier = notificationService
	}

	// Initialize the discovery service
	discoveryService := monitoring.NewService(cfg, store, pageFetcher, listingExtractor, snapshotArchive, notifier)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, discoveryService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	handler := api.NewHandler(discoveryService, store)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Minute, // /trigger runs synchronously and may scan many sources
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
