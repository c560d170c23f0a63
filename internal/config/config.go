package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/equiplend/frontend/pkg/config"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
	SessionBackendSQL    = "sql"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	APIBaseURL string
	APITimeout time.Duration

	SessionBackend string
	SessionTTL     time.Duration
	CookieSecure   bool

	RedisAddr     string
	RedisPassword string
	DatabaseURL   string

	KafkaBrokers []string
	KafkaTopic   string

	SearchDebounce time.Duration
	Location       *time.Location
}

// LoadDotEnv reads .env when present; real environment variables win.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("notice: %s not loaded: %v. Using system environment variables", path, err)
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: pkgcfg.EnvDefault("WEB_ADDR", ":3000"),
		LogLevel:   pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		APIBaseURL: strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		APITimeout: pkgcfg.EnvDurationDefault("API_TIMEOUT", 10*time.Second),

		SessionBackend: strings.ToLower(pkgcfg.EnvDefault("SESSION_BACKEND", SessionBackendMemory)),
		SessionTTL:     pkgcfg.EnvDurationDefault("SESSION_TTL", 24*time.Hour),
		CookieSecure:   pkgcfg.EnvBoolDefault("COOKIE_SECURE", false),

		RedisAddr:     pkgcfg.EnvDefault("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		KafkaBrokers: pkgcfg.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   pkgcfg.EnvDefault("KAFKA_TOPIC", "borrow_request_events"),

		SearchDebounce: pkgcfg.EnvDurationDefault("SEARCH_DEBOUNCE", 300*time.Millisecond),
	}

	if err := pkgcfg.RequireNonEmpty(cfg.APIBaseURL, "API_BASE_URL"); err != nil {
		return nil, err
	}

	switch cfg.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	case SessionBackendSQL:
		if err := pkgcfg.RequireNonEmpty(cfg.DatabaseURL, "DATABASE_URL"); err != nil {
			return nil, fmt.Errorf("SESSION_BACKEND=sql: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	loc, err := time.LoadLocation(pkgcfg.EnvDefault("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}
