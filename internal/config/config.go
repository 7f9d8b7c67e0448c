package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	HTTPAddr string

	// Database
	DBType  string // "sqlite" or "postgres"
	DBDSN   string
	DataDir string

	LogLevel  string
	LogFormat string // "json" or "text"

	BcryptCost int
	SessionTTL time.Duration
	RedisURL   string

	// LLM providers, tried in order: Anthropic first, DeepSeek as fallback
	AnthropicAPIKey string
	AnthropicModel  string
	DeepSeekAPIKey  string
	DeepSeekModel   string
	LLMRatePerSec   float64

	ResendAPIKey string
	EmailSender  string

	TelegramToken string

	FeedCrawlInterval time.Duration
	CrawlWorkers      int

	NotificationStartHour int
	NotificationEndHour   int

	// "basic" or "sm2"
	SRAlgorithm string
	// Students may not join cohorts or register without a known invite code
	RequireInviteCode bool

	APIRatePerSec int
	APIBurst      int
}

// Load reads .env (if present) and the environment into a Config
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":9001"),
		DBType:                strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DBDSN:                 getEnv("DB_DSN", ""),
		DataDir:               getEnv("DATA_DIR", "data"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		BcryptCost:            getEnvAsInt("BCRYPT_COST", 10),
		SessionTTL:            getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
		RedisURL:              os.Getenv("REDIS_URL"),
		AnthropicAPIKey:       os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:        getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		DeepSeekAPIKey:        os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:         getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		LLMRatePerSec:         getEnvAsFloat("LLM_RATE_PER_SEC", 2),
		ResendAPIKey:          os.Getenv("RESEND_API_KEY"),
		EmailSender:           getEnv("EMAIL_SENDER", "noreply@zeeguu.org"),
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		FeedCrawlInterval:     getEnvAsDuration("FEED_CRAWL_INTERVAL", 2*time.Hour),
		CrawlWorkers:          getEnvAsInt("CRAWL_WORKERS", 4),
		NotificationStartHour: getEnvAsInt("NOTIFICATION_START_HOUR", 8),
		NotificationEndHour:   getEnvAsInt("NOTIFICATION_END_HOUR", 21),
		SRAlgorithm:           strings.ToLower(getEnv("SR_ALGORITHM", "basic")),
		RequireInviteCode:     getEnvAsBool("REQUIRE_INVITE_CODE", false),
		APIRatePerSec:         getEnvAsInt("API_RATE_PER_SEC", 20),
		APIBurst:              getEnvAsInt("API_BURST", 40),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
	if c.DBType == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required for postgres")
	}
	if c.CrawlWorkers <= 0 {
		return fmt.Errorf("CRAWL_WORKERS must be positive, got %d", c.CrawlWorkers)
	}
	if c.NotificationStartHour < 0 || c.NotificationStartHour > 23 ||
		c.NotificationEndHour < 0 || c.NotificationEndHour > 23 {
		return fmt.Errorf("notification hours must be within 0-23")
	}
	switch c.SRAlgorithm {
	case "basic", "sm2":
	default:
		return fmt.Errorf("unsupported SR_ALGORITHM %q", c.SRAlgorithm)
	}
	if c.APIRatePerSec <= 0 || c.APIBurst <= 0 {
		return fmt.Errorf("API rate limit and burst must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
