// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"universe_backend/internal/platform/db"
	"universe_backend/internal/platform/redis"
)

// Store drivers.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreS3       = "s3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Store   StoreConfig
	DB      db.Config
	Redis   redis.Config
	S3      S3Config
	Kafka   KafkaConfig
	Import  ImportConfig
	Widgets WidgetsConfig
}

type ServerConfig struct {
	Port            string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	AllowedOrigins  []string
}

type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type StoreConfig struct {
	Driver       string
	SnapshotPath string
	CacheTTL     time.Duration
	Namespace    string
}

type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether delta events are published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

type ImportConfig struct {
	Hour            int
	Location        *time.Location
	DuplicatePolicy string
}

type WidgetsConfig struct {
	YahooBaseURL    string
	RedditBaseURL   string
	IndexSymbol     string
	IndexTTL        time.Duration
	SocialTTL       time.Duration
	UpstreamTimeout time.Duration
	RequestsPerMin  int
	CacheSize       int
	UserAgent       string
}

// Load reads .env (if present) and the environment. Invalid values are
// reported as errors; missing ones fall back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using environment variables")
	}

	p := &parser{}
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Mode:            getEnv("GIN_MODE", "release"),
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxUploadBytes:  int64(p.int("MAX_UPLOAD_MB", 32)) << 20,
			AllowedOrigins:  getEnvList("ALLOWED_ORIGINS"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  p.int("LOG_MAX_SIZE_MB", 100),
			MaxBackups: p.int("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: p.int("LOG_MAX_AGE_DAYS", 28),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", StoreFile)),
			SnapshotPath: getEnv("SNAPSHOT_PATH", "data/instruments.json"),
			CacheTTL:     p.duration("SNAPSHOT_CACHE_TTL", 5*time.Minute),
			Namespace:    getEnv("CACHE_NAMESPACE", "instruments"),
		},
		DB:    db.LoadConfigFromEnv(),
		Redis: redis.LoadConfigFromEnv(),
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Key:             getEnv("S3_KEY", "instruments.json"),
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    p.bool("S3_USE_PATH_STYLE", false),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "universe.changes"),
		},
		Import: ImportConfig{
			Hour:            p.int("IMPORT_HOUR", 6),
			Location:        p.location("TIMEZONE", "Europe/Berlin"),
			DuplicatePolicy: getEnv("DUPLICATE_POLICY", "keep"),
		},
		Widgets: WidgetsConfig{
			YahooBaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RedditBaseURL:   getEnv("REDDIT_BASE_URL", "https://www.reddit.com"),
			IndexSymbol:     getEnv("INDEX_SYMBOL", "^GSPC"),
			IndexTTL:        p.duration("INDEX_CACHE_TTL", 5*time.Minute),
			SocialTTL:       p.duration("SOCIAL_CACHE_TTL", 30*time.Minute),
			UpstreamTimeout: p.duration("UPSTREAM_TIMEOUT", 8*time.Second),
			RequestsPerMin:  p.int("UPSTREAM_REQUESTS_PER_MINUTE", 30),
			CacheSize:       p.int("WIDGET_CACHE_SIZE", 64),
			UserAgent:       getEnv("UPSTREAM_USER_AGENT", "universe-backend/1.0"),
		},
	}
	if p.err != nil {
		return nil, p.err
	}

	switch cfg.Store.Driver {
	case StoreFile:
	case StoreSQLite, StorePostgres:
		cfg.DB.Driver = cfg.Store.Driver
	case StoreS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
	if cfg.Import.Hour < 0 || cfg.Import.Hour > 23 {
		return nil, fmt.Errorf("IMPORT_HOUR must be between 0 and 23, got %d", cfg.Import.Hour)
	}
	return cfg, nil
}

// parser collects the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) location(key, fallback string) *time.Location {
	v := getEnv(key, fallback)
	loc, err := time.LoadLocation(v)
	if err != nil {
		p.fail(key, v, err)
		return time.UTC
	}
	return loc
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
