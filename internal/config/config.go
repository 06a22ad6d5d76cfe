// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Email drivers.
const (
	EmailDriverSES = "ses"
	EmailDriverLog = "log"
)

// Config holds the application configuration
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// StoreBackend selects where accounts and challenges live (memory, postgres, dynamodb).
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	// MemoryAccountsFile is a JSON array of accounts loaded by the memory backend.
	MemoryAccountsFile string `mapstructure:"MEMORY_ACCOUNTS_FILE"`
	// ChallengeStore overrides the challenge backend; empty means same as StoreBackend.
	ChallengeStore string `mapstructure:"CHALLENGE_STORE"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	DynamoTable    string `mapstructure:"DYNAMODB_TABLE"`
	AWSRegion      string `mapstructure:"AWS_REGION"`

	// ChallengeSecret is hashed once into the symmetric key for challenge tokens.
	ChallengeSecret  string `mapstructure:"CHALLENGE_SECRET"`
	ChallengeTTLRaw  string `mapstructure:"CHALLENGE_TTL"`
	MagicLinkBaseURL string `mapstructure:"MAGIC_LINK_BASE_URL"`

	EmailDriver string `mapstructure:"EMAIL_DRIVER"`
	EmailFrom   string `mapstructure:"EMAIL_FROM"`

	WhatsAppEnabled    bool   `mapstructure:"WHATSAPP_ENABLED"`
	TwilioSecretID     string `mapstructure:"TWILIO_SECRET_ID"`
	TwilioAccountSID   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string `mapstructure:"TWILIO_WHATSAPP_FROM"`
	DefaultPhoneRegion string `mapstructure:"DEFAULT_PHONE_REGION"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	JWTAccessTTLRaw   string `mapstructure:"JWT_ACCESS_TTL"`
	AuthSessionTTLRaw string `mapstructure:"AUTH_SESSION_TTL"`

	CORSAllowedOrigins     string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ChallengeRateLimit     int    `mapstructure:"CHALLENGE_RATE_LIMIT"`
	ChallengeRateWindowRaw string `mapstructure:"CHALLENGE_RATE_WINDOW"`

	// TriggerAPIKey guards the identity-provider trigger routes; empty leaves them unmounted.
	TriggerAPIKey string `mapstructure:"TRIGGER_API_KEY"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("MEMORY_ACCOUNTS_FILE", "")
	v.SetDefault("CHALLENGE_STORE", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DYNAMODB_TABLE", "eventpass")
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("CHALLENGE_SECRET", "")
	v.SetDefault("CHALLENGE_TTL", "15m")
	v.SetDefault("MAGIC_LINK_BASE_URL", "")
	v.SetDefault("EMAIL_DRIVER", EmailDriverSES)
	v.SetDefault("EMAIL_FROM", "")
	v.SetDefault("WHATSAPP_ENABLED", false)
	v.SetDefault("TWILIO_SECRET_ID", "")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("TWILIO_WHATSAPP_FROM", "")
	v.SetDefault("DEFAULT_PHONE_REGION", "MX")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("AUTH_SESSION_TTL", "3m")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("CHALLENGE_RATE_LIMIT", 10)
	v.SetDefault("CHALLENGE_RATE_WINDOW", "10m")
	v.SetDefault("TRIGGER_API_KEY", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("config: PORT must be set")
	}

	switch c.StoreBackend {
	case BackendMemory, BackendDynamoDB:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return errors.New("config: STORE_BACKEND must be one of memory, postgres, dynamodb")
	}
	if c.MemoryAccountsFile != "" && c.StoreBackend != BackendMemory {
		return errors.New("config: MEMORY_ACCOUNTS_FILE is only used with STORE_BACKEND=memory")
	}
	switch c.ChallengeStore {
	case "", BackendMemory, BackendPostgres, BackendDynamoDB:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when CHALLENGE_STORE=redis")
		}
	default:
		return errors.New("config: CHALLENGE_STORE must be empty or one of memory, postgres, dynamodb, redis")
	}
	if c.ChallengeBackend() == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required when CHALLENGE_STORE=postgres")
	}

	if c.ChallengeSecret == "" {
		return errors.New("config: CHALLENGE_SECRET must be set")
	}
	if c.MagicLinkBaseURL == "" {
		return errors.New("config: MAGIC_LINK_BASE_URL must be set")
	}
	if u, err := url.Parse(c.MagicLinkBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("config: MAGIC_LINK_BASE_URL must be an absolute URL")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}

	switch c.EmailDriver {
	case EmailDriverLog:
		if c.Env == "production" {
			return errors.New("config: EMAIL_DRIVER=log must not be used when APP_ENV=production")
		}
	case EmailDriverSES:
		if c.EmailFrom == "" {
			return errors.New("config: EMAIL_FROM is required when EMAIL_DRIVER=ses")
		}
	default:
		return errors.New("config: EMAIL_DRIVER must be ses or log")
	}

	if c.WhatsAppEnabled {
		if c.TwilioWhatsAppFrom == "" {
			return errors.New("config: TWILIO_WHATSAPP_FROM is required when WHATSAPP_ENABLED=true")
		}
		if c.TwilioSecretID == "" && (c.TwilioAccountSID == "" || c.TwilioAuthToken == "") {
			return errors.New("config: TWILIO_SECRET_ID or TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN is required when WHATSAPP_ENABLED=true")
		}
	}

	if c.TriggerAPIKey != "" && len(c.TriggerAPIKey) < 16 {
		return errors.New("config: TRIGGER_API_KEY must be at least 16 characters")
	}
	if c.ChallengeRateLimit < 0 {
		return errors.New("config: CHALLENGE_RATE_LIMIT must not be negative")
	}
	return nil
}

// ChallengeBackend returns the effective challenge store backend.
func (c *Config) ChallengeBackend() string {
	if c.ChallengeStore == "" {
		return c.StoreBackend
	}
	return c.ChallengeStore
}

// ChallengeTTL parses CHALLENGE_TTL. Returns 15m if unset or invalid.
func (c *Config) ChallengeTTL() time.Duration {
	return parseDuration(c.ChallengeTTLRaw, 15*time.Minute)
}

// JWTAccessTTL parses JWT_ACCESS_TTL. Returns 1h if unset or invalid.
func (c *Config) JWTAccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTLRaw, time.Hour)
}

// AuthSessionTTL parses AUTH_SESSION_TTL. Returns 3m if unset or invalid.
func (c *Config) AuthSessionTTL() time.Duration {
	return parseDuration(c.AuthSessionTTLRaw, 3*time.Minute)
}

// ChallengeRateWindow parses CHALLENGE_RATE_WINDOW. Returns 10m if unset or invalid.
func (c *Config) ChallengeRateWindow() time.Duration {
	return parseDuration(c.ChallengeRateWindowRaw, 10*time.Minute)
}

// CORSOrigins returns the allowed origins from the comma-separated config.
func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
