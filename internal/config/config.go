package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Scraper     ScraperConfig
	Search      SearchConfig
	Billing     BillingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTExpiryHours int
	GuestTokenDays int
	APIKeyHeader   string
	LoginMaxPerMin int
	OTPExpiryMins  int
}

type ScraperConfig struct {
	OpenAIKey      string
	AnthropicKey   string
	DiscoveryModel string
	SummaryModel   string
	FetchTimeout   int // seconds
	MaxBodyBytes   int64
}

type SearchConfig struct {
	EmbeddingModel string
}

type BillingConfig struct {
	TrialDays int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtExpiry, err := getEnvInt("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	guestDays, err := getEnvInt("GUEST_TOKEN_EXPIRY_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid GUEST_TOKEN_EXPIRY_DAYS: %w", err)
	}

	loginMax, err := getEnvInt("LOGIN_MAX_ATTEMPTS_PER_MIN", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_MAX_ATTEMPTS_PER_MIN: %w", err)
	}

	otpExpiry, err := getEnvInt("OTP_EXPIRY_MINUTES", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_EXPIRY_MINUTES: %w", err)
	}

	fetchTimeout, err := getEnvInt("SCRAPE_FETCH_TIMEOUT", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPE_FETCH_TIMEOUT: %w", err)
	}

	trialDays, err := getEnvInt("BILLING_TRIAL_DAYS", 14)
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_TRIAL_DAYS: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "dev"),
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			JWTIssuer:      getEnv("JWT_ISSUER", "legalwatchdog"),
			JWTExpiryHours: jwtExpiry,
			GuestTokenDays: guestDays,
			APIKeyHeader:   getEnv("API_KEY_HEADER", "X-API-Key"),
			LoginMaxPerMin: loginMax,
			OTPExpiryMins:  otpExpiry,
		},
		Scraper: ScraperConfig{
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			DiscoveryModel: getEnv("DISCOVERY_MODEL", "gpt-4o-mini"),
			SummaryModel:   getEnv("SUMMARY_MODEL", "claude-3-haiku-20240307"),
			FetchTimeout:   fetchTimeout,
			MaxBodyBytes:   10 << 20,
		},
		Search: SearchConfig{
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Billing: BillingConfig{
			TrialDays: trialDays,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDev reports whether environment-gated guards (billing) are relaxed.
func (c *Config) IsDev() bool {
	env := strings.ToLower(c.Environment)
	return env == "dev" || env == "development"
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
