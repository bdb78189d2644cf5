package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string
	Port     string

	TelegramToken   string
	TelegramBaseURL string
	AdminChatID     int64

	OpenAIAPIKey string
	OpenAIModel  string

	NotionAPIKey     string
	NotionDatabaseID string

	GoogleCredentialsPath string
	GoogleTokenPath       string
	CalendarID            string
	LookaheadDays         int
	CalendarMaxResults    int64

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	RateLimitInterval time.Duration
	RequestTimeout    time.Duration
	TurnTimeout       time.Duration
	PollTimeoutSecs   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8080"),

		TelegramToken:   getEnv("TELEGRAM_TOKEN", ""),
		TelegramBaseURL: getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		AdminChatID:     getEnvAsInt64("ADMIN_TELEGRAM_ID", 0),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		NotionAPIKey:     getEnv("NOTION_API_KEY", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_JSON_PATH", ""),
		GoogleTokenPath:       getEnv("GOOGLE_TOKEN_PATH", "token.json"),
		CalendarID:            getEnv("GOOGLE_CALENDAR_ID", "primary"),
		LookaheadDays:         getEnvAsInt("CALENDAR_LOOKAHEAD_DAYS", 90),
		CalendarMaxResults:    getEnvAsInt64("CALENDAR_MAX_RESULTS", 200),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", time.Second),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		TurnTimeout:       getEnvAsDuration("TURN_TIMEOUT", 2*time.Minute),
		PollTimeoutSecs:   getEnvAsInt("POLL_TIMEOUT_SECONDS", 30),
	}
}

// Validate reports fatal misconfiguration. The bot has no useful degraded
// mode without a Telegram token or calendar credentials.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("config: TELEGRAM_TOKEN is required")
	}
	if c.GoogleCredentialsPath == "" {
		return errors.New("config: GOOGLE_CREDENTIALS_JSON_PATH is required")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
