package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	Server  ServerConfig
	Worker  WorkerConfig
	Match   MatchConfig
	Seen    SeenConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit float64
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type MatchConfig struct {
	Threshold      float64
	RecentDays     int
	RecentLimit    int
	ItemsPerSource int
	DryRun         bool
}

// SeenConfig sizes the cache of feed links that were already deduped or
// inserted.
type SeenConfig struct {
	Size int
	TTL  time.Duration
}

type DatabaseConfig struct {
	Path  string
	Table string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvFloat("RATE_LIMIT_RPS", 5),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Match: MatchConfig{
			Threshold:      getEnvFloat("MATCH_THRESHOLD", 60),
			RecentDays:     getEnvInt("RECENT_DAYS", 7),
			RecentLimit:    getEnvInt("RECENT_LIMIT", 2000),
			ItemsPerSource: getEnvInt("ITEMS_PER_SOURCE", 10),
			DryRun:         getEnvBool("DRY_RUN", false),
		},
		Seen: SeenConfig{
			Size: getEnvInt("SEEN_CACHE_SIZE", 5000),
			TTL:  getEnvDuration("SEEN_CACHE_TTL", 24*time.Hour),
		},
		DB: DatabaseConfig{
			Path:  getEnv("DB_PATH", "./data/incidents.db"),
			Table: getEnv("DB_TABLE", "incidents"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive: %v", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size cannot be negative")
	}

	if c.Match.Threshold < 0 || c.Match.Threshold > 110 {
		return fmt.Errorf("match threshold out of range [0, 110]: %v", c.Match.Threshold)
	}
	if c.Match.RecentDays < 0 {
		return fmt.Errorf("recent days cannot be negative")
	}
	if c.Match.RecentLimit < 1 {
		return fmt.Errorf("recent limit must be at least 1")
	}
	if c.Match.ItemsPerSource < 1 {
		return fmt.Errorf("items per source must be at least 1")
	}

	if c.Seen.Size < 1 {
		return fmt.Errorf("seen cache size must be at least 1")
	}
	if c.Seen.TTL <= 0 {
		return fmt.Errorf("seen cache TTL must be positive")
	}

	if !tableNamePattern.MatchString(c.DB.Table) {
		return fmt.Errorf("invalid table name: %q", c.DB.Table)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
