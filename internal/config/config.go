package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultFeedURL is the public mock feed used when no URL is configured.
const DefaultFeedURL = "https://61c3deadf1af4a0017d990e7.mockapi.io/offers/near_by?lat=1.313492&lon=103.860359&rad=20"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Feed      FeedConfig      `json:"feed"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Tracing   TracingConfig   `json:"tracing"`
	Trace     TraceConfig     `json:"trace"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
}

// FeedConfig holds upstream feed and filtering defaults.
type FeedConfig struct {
	URL string `json:"url"`
	// Categories is the default set of desired category names.
	Categories []string `json:"categories"`
	// ExtensionDays is the default number of stay-extension days.
	ExtensionDays int `json:"extension_days"`
	// LenientStatus restores the legacy warn-and-continue handling of
	// non-200 feed responses.
	LenientStatus bool `json:"lenient_status"`
}

// CacheConfig holds feed payload cache configuration.
type CacheConfig struct {
	Enabled       bool   `json:"enabled"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// TracingConfig holds OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"` // Jaeger collector endpoint
	Environment string `json:"environment"`
}

// TraceConfig holds stage-trace diagnostics configuration.
type TraceConfig struct {
	Enabled bool `json:"enabled"`
	// Dir receives per-stage JSON dumps; empty disables the file sink.
	Dir string `json:"dir"`
	// SQLitePath receives run-scoped snapshots; empty disables the
	// SQLite sink.
	SQLitePath string `json:"sqlite_path"`
}

// LoadConfig loads configuration from environment variables and/or a JSON
// config file. Environment variables take precedence over file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", ""),
		},
		Feed: FeedConfig{
			URL:           getEnv("FEED_URL", DefaultFeedURL),
			Categories:    getEnvList("FEED_CATEGORIES", []string{"Restaurant", "Retail", "Activity"}),
			ExtensionDays: getEnvInt("FEED_EXTENSION_DAYS", 5),
			LenientStatus: getEnvBool("FEED_LENIENT_STATUS", false),
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", false),
			RedisAddr:     getEnv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("CACHE_REDIS_DB", 0),
			TTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvInt("RATE_LIMIT_RATE", 100),
			Window:  getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "http://localhost:14268/api/traces"),
			Environment: getEnv("TRACING_ENVIRONMENT", "development"),
		},
		Trace: TraceConfig{
			Enabled:    getEnvBool("TRACE_ENABLED", false),
			Dir:        getEnv("TRACE_DIR", ""),
			SQLitePath: getEnv("TRACE_SQLITE_PATH", ""),
		},
	}

	// Load from config file if provided
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		// Environment variables take precedence over file values.
		overrideFromEnv(cfg)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// overrideFromEnv re-applies environment variables on top of file values.
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if url := os.Getenv("FEED_URL"); url != "" {
		cfg.Feed.URL = url
	}
	if cats := os.Getenv("FEED_CATEGORIES"); cats != "" {
		cfg.Feed.Categories = splitList(cats)
	}
	if days := os.Getenv("FEED_EXTENSION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			cfg.Feed.ExtensionDays = d
		}
	}
	if lenient := os.Getenv("FEED_LENIENT_STATUS"); lenient != "" {
		cfg.Feed.LenientStatus = isTrue(lenient)
	}
	if enabled := os.Getenv("CACHE_ENABLED"); enabled != "" {
		cfg.Cache.Enabled = isTrue(enabled)
	}
	if addr := os.Getenv("CACHE_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if pw := os.Getenv("CACHE_REDIS_PASSWORD"); pw != "" {
		cfg.Cache.RedisPassword = pw
	}
	if db := os.Getenv("CACHE_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			cfg.Cache.RedisDB = d
		}
	}
	if ttl := os.Getenv("CACHE_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			cfg.Cache.TTLSeconds = t
		}
	}
	if enabled := os.Getenv("RATE_LIMIT_ENABLED"); enabled != "" {
		cfg.RateLimit.Enabled = isTrue(enabled)
	}
	if rate := os.Getenv("RATE_LIMIT_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil {
			cfg.RateLimit.Rate = r
		}
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.RateLimit.Window = w
		}
	}
	if enabled := os.Getenv("TRACING_ENABLED"); enabled != "" {
		cfg.Tracing.Enabled = isTrue(enabled)
	}
	if endpoint := os.Getenv("TRACING_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if env := os.Getenv("TRACING_ENVIRONMENT"); env != "" {
		cfg.Tracing.Environment = env
	}
	if enabled := os.Getenv("TRACE_ENABLED"); enabled != "" {
		cfg.Trace.Enabled = isTrue(enabled)
	}
	if dir := os.Getenv("TRACE_DIR"); dir != "" {
		cfg.Trace.Dir = dir
	}
	if path := os.Getenv("TRACE_SQLITE_PATH"); path != "" {
		cfg.Trace.SQLitePath = path
	}
}

// getEnv gets an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return isTrue(value)
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable or returns the
// default value.
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitList(value)
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTrue(s string) bool {
	return strings.ToLower(s) == "true" || s == "1"
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if len(c.Feed.Categories) == 0 {
		return fmt.Errorf("at least one desired category is required")
	}
	if c.Feed.ExtensionDays < 0 {
		return fmt.Errorf("extension days must be non-negative")
	}
	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required when cache is enabled")
		}
		if c.Cache.TTLSeconds <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Trace.Enabled && c.Trace.Dir == "" && c.Trace.SQLitePath == "" {
		return fmt.Errorf("trace is enabled but no sink is configured")
	}
	return nil
}
