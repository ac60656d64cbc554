// Package config reads configuration from environment variables with
// sensible defaults. Binaries load an optional .env file before calling
// Load.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration shared by the CLI, bot and web binaries.
type Config struct {
	// PDSHost is the PDS used for login and writes.
	PDSHost string

	// AppViewURL serves public profile lookups.
	AppViewURL string

	// PLCURL is the PLC directory for identity resolution.
	PLCURL string

	// Collection is the NSID blog post records are stored under.
	Collection string

	// PageSize is the listRecords limit per page (max 100).
	PageSize int

	// PageBudget caps pages fetched in one full walk.
	PageBudget int

	// DatabasePath is the sqlite file holding saved sessions and bot
	// chat state.
	DatabasePath string

	// ListenAddr is the bind address for the bot and web servers.
	ListenAddr string

	// SessionSecret signs web session cookies.
	SessionSecret string

	// TelegramToken authenticates against the Telegram Bot API.
	TelegramToken string

	// TelegramWebhookSecret is compared against the
	// X-Telegram-Bot-Api-Secret-Token header on webhook calls.
	TelegramWebhookSecret string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		PDSHost:               getEnv("BLOG_PDS_HOST", "https://bsky.social"),
		AppViewURL:            getEnv("BLOG_APPVIEW_URL", "https://public.api.bsky.app"),
		PLCURL:                getEnv("BLOG_PLC_URL", "https://plc.directory"),
		Collection:            getEnv("BLOG_COLLECTION", "com.romio.blog.post"),
		DatabasePath:          getEnv("BLOG_DB_PATH", "blog.db"),
		ListenAddr:            getEnv("BLOG_LISTEN_ADDR", ":8080"),
		SessionSecret:         os.Getenv("BLOG_SESSION_SECRET"),
		TelegramToken:         os.Getenv("BLOG_TELEGRAM_TOKEN"),
		TelegramWebhookSecret: os.Getenv("BLOG_TELEGRAM_WEBHOOK_SECRET"),
	}

	var err error
	cfg.PageSize, err = getIntEnv("BLOG_PAGE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("BLOG_PAGE_SIZE must be between 1 and 100, got %d", cfg.PageSize)
	}

	cfg.PageBudget, err = getIntEnv("BLOG_PAGE_BUDGET", 100)
	if err != nil {
		return nil, err
	}
	if cfg.PageBudget < 1 {
		return nil, fmt.Errorf("BLOG_PAGE_BUDGET must be positive, got %d", cfg.PageBudget)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
