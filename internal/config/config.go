package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=mfg_erp port=5432 sslmode=disable"

type Config struct {
	HTTPPort       string `toml:"http_port"`
	DatabaseDriver string `toml:"database_driver"`
	DatabaseDSN    string `toml:"database_dsn"`
	DBMaxOpenConns int    `toml:"db_max_open_conns"`
	DBMaxIdleConns int    `toml:"db_max_idle_conns"`
	JWTSecret      string `toml:"jwt_secret"`
	CORSOrigins    string `toml:"cors_allowed_origins"`
	LogLevel       string `toml:"log_level"`

	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	LockTTL       time.Duration `toml:"-"`

	// EventsBackend is one of "log", "redis" or "pubsub".
	EventsBackend         string `toml:"events_backend"`
	EventsChannel         string `toml:"events_channel"`
	PubSubProjectID       string `toml:"pubsub_project_id"`
	PubSubTopic           string `toml:"pubsub_topic"`
	PubSubCredentialsJSON string `toml:"-"`
}

// fileConfig mirrors Config for the optional TOML file; LockTTL is a string there.
type fileConfig struct {
	Config
	LockTTL string `toml:"lock_ttl"`
}

// Load reads configuration and stops the process when it is unusable.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := LoadFrom(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("[FATAL] %v", err)
	}

	if cfg.DatabaseDSN == defaultDSN {
		logrus.Warn("DATABASE_DSN uses the default value, set your own connection string for production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		logrus.Warn("CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	return cfg
}

// LoadFrom decodes the TOML file at path (if any), then applies env overrides and validates.
func LoadFrom(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := fc.Config
	cfg.HTTPPort = getEnv("HTTP_PORT", orDefault(cfg.HTTPPort, "8080"))
	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", orDefault(cfg.DatabaseDriver, "postgres")))
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", orDefault(cfg.DatabaseDSN, defaultDSN))
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", orDefaultInt(cfg.DBMaxOpenConns, 50))
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", orDefaultInt(cfg.DBMaxIdleConns, 25))
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", orDefault(cfg.CORSOrigins, "http://localhost:5173"))
	cfg.LogLevel = getEnv("LOG_LEVEL", orDefault(cfg.LogLevel, "info"))

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	ttl := getEnv("LOCK_TTL", orDefault(fc.LockTTL, "30s"))
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("LOCK_TTL %q is not a duration: %w", ttl, err)
	}
	cfg.LockTTL = d

	cfg.EventsBackend = strings.ToLower(getEnv("EVENTS_BACKEND", orDefault(cfg.EventsBackend, "log")))
	cfg.EventsChannel = getEnv("EVENTS_CHANNEL", orDefault(cfg.EventsChannel, "mfg-erp-events"))
	cfg.PubSubProjectID = getEnv("PUBSUB_PROJECT_ID", orDefault(cfg.PubSubProjectID, os.Getenv("GOOGLE_CLOUD_PROJECT")))
	cfg.PubSubTopic = getEnv("PUBSUB_TOPIC", cfg.PubSubTopic)
	cfg.PubSubCredentialsJSON = os.Getenv("PUBSUB_CREDENTIALS_JSON")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.DatabaseDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.EventsBackend {
	case "log":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("EVENTS_BACKEND=redis requires REDIS_ADDR")
		}
	case "pubsub":
		if c.PubSubProjectID == "" || c.PubSubTopic == "" {
			return fmt.Errorf("EVENTS_BACKEND=pubsub requires PUBSUB_PROJECT_ID and PUBSUB_TOPIC")
		}
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
