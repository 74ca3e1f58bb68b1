package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
	BackendTable = "table"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

type Config struct {
	AppURL                 string
	StoreBackend           string
	DatabaseDSN            string
	RedisAddr              string
	RedisKeyPrefix         string
	CacheTTLSeconds        int
	TableConnectionString  string
	TableName              string
	RateLimit              int
	RateLimitBackend       string
	ShutdownTimeoutSeconds int
	LogLevel               string
	LogFormat              string
	TracingEnabled         bool
	Version                string
}

// Load reads the server configuration from the environment and exits the
// process when it is not usable.
func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		StoreBackend:           strings.ToLower(getEnv("STORE_BACKEND", BackendSQL)),
		DatabaseDSN:            getEnv("DATABASE_DSN", "notegrid.db"),
		RedisAddr:              fmt.Sprintf("%s:%s", redisHost, redisPort),
		RedisKeyPrefix:         getEnv("REDIS_KEY_PREFIX", "notegrid:user:"),
		CacheTTLSeconds:        getEnvAsInt("CACHE_TTL_SECONDS", 0),
		TableConnectionString:  getEnv("TABLE_CONNECTION_STRING", ""),
		TableName:              getEnv("TABLE_NAME", "notegridusers"),
		RateLimit:              getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBackend:       strings.ToLower(getEnv("RATE_LIMIT_BACKEND", LimiterMemory)),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "text"),
		TracingEnabled:         getEnvAsBool("TRACING_ENABLED", false),
		Version:                getEnv("APP_VERSION", "1.0.0"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

func (c Config) Validate() error {
	if c.AppURL == "" {
		return errors.New("APP_HOST/APP_PORT must not be empty (e.g. 127.0.0.1:8080)")
	}
	switch c.StoreBackend {
	case BackendSQL:
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN must not be empty")
		}
	case BackendRedis:
	case BackendTable:
		if c.TableConnectionString == "" {
			return errors.New("TABLE_CONNECTION_STRING is required when STORE_BACKEND=table")
		}
		if c.TableName == "" {
			return errors.New("TABLE_NAME must not be empty")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of sql, redis, table (got %q)", c.StoreBackend)
	}
	if c.CacheTTLSeconds < 0 {
		return errors.New("CACHE_TTL_SECONDS must not be negative")
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if c.RateLimitBackend != LimiterMemory && c.RateLimitBackend != LimiterRedis {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis (got %q)", c.RateLimitBackend)
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0")
	}
	return nil
}

// NeedsRedis reports whether any configured component talks to redis.
func (c Config) NeedsRedis() bool {
	return c.StoreBackend == BackendRedis ||
		c.RateLimitBackend == LimiterRedis ||
		(c.StoreBackend == BackendSQL && c.CacheTTLSeconds > 0)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid boolean value for %s", key)
		}
		return b
	}
	return defaultVal
}
