// Package config resolves runtime settings for the scraper binaries from
// defaults, an optional YAML file, and the environment — in that order of
// increasing precedence.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the resolved runtime settings.
type Config struct {
	// Addr is the listen address of the API server.
	Addr string
	// DBPath is the SQLite database file.
	DBPath string
	// FetchTimeout bounds each page fetch.
	FetchTimeout time.Duration
	// UserAgent identifies the scraper to publishers.
	UserAgent string
	// CacheTTL bounds response-cache entries. Zero disables caching.
	CacheTTL time.Duration
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:         ":5000",
		DBPath:       "news.db",
		FetchTimeout: 10 * time.Second,
		UserAgent:    "NewsScraperBot/1.0",
		CacheTTL:     15 * time.Minute,
	}
}

// Resolve merges defaults, an optional file config, and the environment.
// Recognized variables: PORT, NEWS_DB_PATH, SCRAPE_TIMEOUT_MS, USER_AGENT,
// CACHE_TTL_SECONDS.
func Resolve(file *FileConfig) Config {
	cfg := Default()

	if file != nil {
		if file.Addr != "" {
			cfg.Addr = file.Addr
		}
		if file.Storage.DSN != "" {
			cfg.DBPath = file.Storage.DSN
		}
		if file.Scrape.TimeoutMS > 0 {
			cfg.FetchTimeout = time.Duration(file.Scrape.TimeoutMS) * time.Millisecond
		}
		if file.Scrape.UserAgent != "" {
			cfg.UserAgent = file.Scrape.UserAgent
		}
		if file.Cache.TTLSeconds > 0 {
			cfg.CacheTTL = time.Duration(file.Cache.TTLSeconds) * time.Second
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if dbPath := os.Getenv("NEWS_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if ms, ok := envInt("SCRAPE_TIMEOUT_MS"); ok && ms > 0 {
		cfg.FetchTimeout = time.Duration(ms) * time.Millisecond
	}
	if ua := os.Getenv("USER_AGENT"); ua != "" {
		cfg.UserAgent = ua
	}
	if secs, ok := envInt("CACHE_TTL_SECONDS"); ok && secs >= 0 {
		cfg.CacheTTL = time.Duration(secs) * time.Second
	}

	return cfg
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
