// Command scan performs a single discovery run from the command line,
// useful for local development and cron-less deployments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bidradar/rfp-discovery-bot/internal/config"
	"github.com/bidradar/rfp-discovery-bot/internal/extractor"
	"github.com/bidradar/rfp-discovery-bot/internal/fetcher"
	"github.com/bidradar/rfp-discovery-bot/internal/monitoring"
	"github.com/bidradar/rfp-discovery-bot/internal/storage"
)

func main() {
	sourceID := flag.String("source", "", "scan only this source ID (default: all active sources)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *debug || cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var pageFetcher fetcher.PageFetcher
	switch cfg.Fetcher {
	case config.FetcherLocal:
		pageFetcher = fetcher.NewLocalFetcher()
	default:
		pageFetcher = fetcher.NewFirecrawlFetcher(cfg.FirecrawlAPIKey, cfg.FirecrawlBaseURL)
	}

	listingExtractor := extractor.NewGatewayExtractor(
		cfg.AIGatewayAPIKey, cfg.AIGatewayURL, cfg.AIModel, cfg.MaxContentChars)

	discoveryService := monitoring.NewService(cfg, store, pageFetcher, listingExtractor, nil, nil)

	count, err := discoveryService.RunDiscovery(ctx, *sourceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Discovered %d new opportunities\n", count)
}
