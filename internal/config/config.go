package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram is optional; the HTTP API always runs.
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string
	Port             string
	DBPath           string

	LogLevel  string
	LogPretty bool

	RiskEnabled    bool
	RiskFreeRate   float64
	RiskConfidence float64

	FetchWorkers        int
	FetchTimeout        time.Duration
	YahooRPS            float64
	DefaultWindow       int
	DefaultLookbackDays int

	CORSOrigins []string
}

// Load reads the environment, after applying a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL:    os.Getenv("WEBHOOK_PUBLIC_URL"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		Port:                getEnv("PORT", "9095"),
		DBPath:              getEnv("DB_PATH", "/app/data/corr.db"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPretty:           getEnvAsBool("LOG_PRETTY", false),
		RiskEnabled:         getEnvAsBool("RISK_ENABLED", true),
		RiskFreeRate:        getEnvAsFloat("RISK_FREE_RATE", 0),
		RiskConfidence:      getEnvAsFloat("RISK_CONFIDENCE", 0.95),
		FetchWorkers:        getEnvAsInt("FETCH_WORKERS", 4),
		FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second),
		YahooRPS:            getEnvAsFloat("YAHOO_RPS", 5),
		DefaultWindow:       getEnvAsInt("DEFAULT_WINDOW", 30),
		DefaultLookbackDays: getEnvAsInt("DEFAULT_LOOKBACK_DAYS", 365),
		CORSOrigins:         getEnvAsList("CORS_ORIGINS"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TelegramToken != "" && c.WebhookPublicURL == "" {
		return fmt.Errorf("WEBHOOK_PUBLIC_URL is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.RiskConfidence <= 0 || c.RiskConfidence >= 1 {
		return fmt.Errorf("RISK_CONFIDENCE must be between 0 and 1, got %v", c.RiskConfidence)
	}
	if c.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}
	if c.YahooRPS <= 0 {
		return fmt.Errorf("YAHOO_RPS must be positive")
	}
	if c.DefaultWindow < 2 {
		return fmt.Errorf("DEFAULT_WINDOW must be at least 2")
	}
	if c.DefaultLookbackDays < 1 {
		return fmt.Errorf("DEFAULT_LOOKBACK_DAYS must be positive")
	}
	return nil
}

// TelegramEnabled reports whether the chat bot should be started.
func (c *Config) TelegramEnabled() bool { return c.TelegramToken != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
