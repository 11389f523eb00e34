package config

import (
	"fmt"
	"os"
	"strconv"
)

// Fetcher backends.
const (
	FetcherFirecrawl = "firecrawl"
	FetcherLocal     = "local"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ScanSchedule string // "hourly", "daily" or "weekly"
	TimeZone     string

	// Database configuration
	DatabaseURL string

	// Page fetcher configuration
	Fetcher          string // "firecrawl" or "local"
	FirecrawlAPIKey  string
	FirecrawlBaseURL string

	// AI gateway configuration
	AIGatewayAPIKey string
	AIGatewayURL    string
	AIModel         string

	// Scoring and extraction tuning knobs
	ScoreIncrement  int // points added per matching keyword
	MaxContentChars int // page text truncation before extraction

	// Snapshot archive configuration (optional)
	StorageAccount   string
	StorageContainer string

	// Notification configuration (optional)
	NotificationEmail string
	WebhookURL        string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Debug:        getBoolEnv("DEBUG", false),
		ScanSchedule: getEnv("SCAN_SCHEDULE", "daily"),
		TimeZone:     getEnv("TIMEZONE", "UTC"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Fetcher:          getEnv("FETCHER", FetcherFirecrawl),
		FirecrawlAPIKey:  getEnv("FIRECRAWL_API_KEY", ""),
		FirecrawlBaseURL: getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),

		AIGatewayAPIKey: getEnv("AI_GATEWAY_API_KEY", ""),
		AIGatewayURL:    getEnv("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev"),
		AIModel:         getEnv("AI_MODEL", "google/gemini-3-flash-preview"),

		ScoreIncrement:  getIntEnv("SCORE_INCREMENT", 20),
		MaxContentChars: getIntEnv("MAX_CONTENT_CHARS", 8000),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "page-snapshots"),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Fetcher {
	case FetcherFirecrawl, FetcherLocal:
	default:
		return fmt.Errorf("FETCHER must be '%s' or '%s'", FetcherFirecrawl, FetcherLocal)
	}

	switch c.ScanSchedule {
	case "hourly", "daily", "weekly":
	default:
		return fmt.Errorf("SCAN_SCHEDULE must be 'hourly', 'daily' or 'weekly'")
	}

	if c.ScoreIncrement <= 0 {
		return fmt.Errorf("SCORE_INCREMENT must be positive")
	}

	if c.MaxContentChars <= 0 {
		return fmt.Errorf("MAX_CONTENT_CHARS must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// HasFetchCredentials reports whether the configured page fetcher can run.
// The local fetcher needs no credential.
func (c *Config) HasFetchCredentials() bool {
	if c.Fetcher == FetcherLocal {
		return true
	}
	return c.FirecrawlAPIKey != ""
}

// HasExtractionCredentials reports whether the AI gateway can be called.
func (c *Config) HasExtractionCredentials() bool {
	return c.AIGatewayAPIKey != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
