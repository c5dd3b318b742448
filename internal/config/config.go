package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "PARTSYNC_CONFIG"

	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendPgx      = "pgx"
	BackendRedis    = "redis"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Updater   UpdaterConfig   `yaml:"updater"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the key-value backend the catalog lives in.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"databaseUrl"`
	SQLitePath  string `yaml:"sqlitePath"`
	RedisURL    string `yaml:"redisUrl"`
	Table       string `yaml:"table"`
	Namespace   string `yaml:"namespace"`
}

// UpdaterConfig drives the sync runs.
type UpdaterConfig struct {
	ScraperURL      string        `yaml:"scraperUrl"`
	UpdateInterval  time.Duration `yaml:"updateInterval"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
	CategoryTimeout time.Duration `yaml:"categoryTimeout"`
	// StampFailedRuns advances the due timer even when every category failed.
	StampFailedRuns bool `yaml:"stampFailedRuns"`
}

type SchedulerConfig struct {
	Interval          time.Duration `yaml:"interval"`
	Autostart         bool          `yaml:"autostart"`
	NotificationLimit int           `yaml:"notificationLimit"`
}

// ScraperConfig configures the scrape service that serves /api/scrape.
type ScraperConfig struct {
	BaseURL       string        `yaml:"baseUrl"`
	UserAgent     string        `yaml:"userAgent"`
	MaxPages      int           `yaml:"maxPages"`
	MaxDetails    int           `yaml:"maxDetails"`
	CacheSize     int           `yaml:"cacheSize"`
	CategoryDelay time.Duration `yaml:"categoryDelay"`
	Timeout       time.Duration `yaml:"timeout"`
	OutputFile    string        `yaml:"outputFile"`
	Addr          string        `yaml:"addr"`
}

type HTTPConfig struct {
	Addr        string `yaml:"addr"`
	MetricsPort string `yaml:"metricsPort"`
}

type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads .env, the optional YAML file named by PARTSYNC_CONFIG and environment overrides
// on top of the defaults, then validates the result.
func Load() (*Config, error) {
	// .env next to the binary or at the repository root; both are optional
	_ = godotenv.Load()
	_ = godotenv.Load("../../.env")

	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("config file unreadable, using defaults", "path", path, "error", err)
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Store: StoreConfig{
			Backend:    BackendMemory,
			SQLitePath: "partsync.db",
			Namespace:  "gobilda",
		},
		Updater: UpdaterConfig{
			ScraperURL:      "http://localhost:3001",
			UpdateInterval:  24 * time.Hour,
			FetchTimeout:    60 * time.Second,
			CategoryTimeout: 2 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Interval:          24 * time.Hour,
			Autostart:         true,
			NotificationLimit: 10,
		},
		Scraper: ScraperConfig{
			BaseURL:       "https://www.gobilda.com",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MaxPages:      5,
			MaxDetails:    20,
			CacheSize:     512,
			CategoryDelay: 2 * time.Second,
			Timeout:       30 * time.Second,
			OutputFile:    "gobilda_parts.json",
			Addr:          ":3001",
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			MetricsPort: "9090",
		},
	}
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Store.Backend, "PARTSYNC_STORE")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.Store.RedisURL, "REDIS_URL")
	setString(&c.Updater.ScraperURL, "SCRAPER_URL")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.HTTP.MetricsPort, "METRICS_PORT")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")

	if err := setDuration(&c.Updater.UpdateInterval, "UPDATE_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&c.Scheduler.Interval, "SCHEDULE_INTERVAL"); err != nil {
		return err
	}
	if v := os.Getenv("SCHEDULER_AUTOSTART"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_AUTOSTART: %w", err)
		}
		c.Scheduler.Autostart = b
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires a path")
		}
	case BackendPostgres, BackendPgx:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%s backend requires DATABASE_URL", c.Store.Backend)
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redis backend requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Store.Namespace == "" {
		return fmt.Errorf("store namespace cannot be empty")
	}
	if _, err := url.ParseRequestURI(c.Updater.ScraperURL); err != nil {
		return fmt.Errorf("invalid scraper url: %w", err)
	}
	if c.Updater.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive")
	}
	if c.Updater.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Updater.CategoryTimeout < 0 {
		return fmt.Errorf("category timeout cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("schedule interval must be positive")
	}
	if c.Scheduler.NotificationLimit <= 0 {
		return fmt.Errorf("notification limit must be positive")
	}
	if c.Scraper.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Scraper.MaxDetails < 0 {
		return fmt.Errorf("max details cannot be negative")
	}
	if c.Scraper.CategoryDelay < 0 {
		return fmt.Errorf("category delay cannot be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
