// Package config provides application configuration loading from environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Telemetry exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const (
	defaultGeminiModel         = "gemini-2.5-flash"
	defaultExtractionTimeout   = 30 * time.Second
	defaultAdviceTimeout       = 60 * time.Second
	defaultVoiceTimeout        = 20 * time.Second
	defaultVoiceLanguage       = "zh-CN"
	defaultBaseCurrency        = "CNY"
	defaultSQLitePath          = "data/smart_finance.db"
	defaultStorageKey          = "smart_finance_expenses"
	defaultExchangeRateBaseURL = "https://api.frankfurter.app"
	defaultExchangeRateTimeout = 5 * time.Second
	defaultExchangeRateTTL     = 12 * time.Hour
	defaultHTTPAddr            = ":8080"
	defaultRateLimit           = "30-M"
	defaultServiceName         = "smart-finance"
	defaultOTLPProtocol        = "http/protobuf"
)

// Config holds all configuration for the application.
type Config struct {
	GeminiAPIKey      string
	GeminiModel       string
	ExtractionTimeout time.Duration
	AdviceTimeout     time.Duration
	VoiceTimeout      time.Duration
	VoiceLanguage     string
	BaseCurrency      string

	StorageBackend string
	SQLitePath     string
	DatabaseURL    string
	StorageKey     string

	ExchangeRateEnabled  bool
	ExchangeRateBaseURL  string
	ExchangeRateTimeout  time.Duration
	ExchangeRateCacheTTL time.Duration

	HTTPAddr           string
	CORSAllowedOrigins []string
	RateLimit          string

	TelegramBotToken     string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	LogLevel    string
	LogFormat   string
	LogHashSalt string

	OTelExporter     string
	OTelOTLPProtocol string
	OTelServiceName  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         envOr("GEMINI_MODEL", defaultGeminiModel),
		ExtractionTimeout:   durationOr("EXTRACTION_TIMEOUT", defaultExtractionTimeout),
		AdviceTimeout:       durationOr("ADVICE_TIMEOUT", defaultAdviceTimeout),
		VoiceTimeout:        durationOr("VOICE_TIMEOUT", defaultVoiceTimeout),
		VoiceLanguage:       envOr("VOICE_LANGUAGE", defaultVoiceLanguage),
		BaseCurrency:        strings.ToUpper(envOr("BASE_CURRENCY", defaultBaseCurrency)),
		StorageBackend:      strings.ToLower(envOr("STORAGE_BACKEND", StorageSQLite)),
		SQLitePath:          envOr("SQLITE_PATH", defaultSQLitePath),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StorageKey:          envOr("STORAGE_KEY", defaultStorageKey),
		ExchangeRateEnabled: os.Getenv("EXCHANGE_RATE_ENABLED") != "false",
		ExchangeRateBaseURL: envOr("EXCHANGE_RATE_BASE_URL", defaultExchangeRateBaseURL),
		ExchangeRateTimeout: durationOr("EXCHANGE_RATE_TIMEOUT", defaultExchangeRateTimeout),
		HTTPAddr:            envOr("HTTP_ADDR", defaultHTTPAddr),
		RateLimit:           envOr("RATE_LIMIT", defaultRateLimit),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "console"),
		LogHashSalt:         os.Getenv("LOG_HASH_SALT"),
		OTelExporter:        strings.ToLower(envOr("OTEL_EXPORTER", ExporterNone)),
		OTelOTLPProtocol:    envOr("OTEL_EXPORTER_OTLP_PROTOCOL", defaultOTLPProtocol),
		OTelServiceName:     envOr("OTEL_SERVICE_NAME", defaultServiceName),
	}

	cfg.ExchangeRateCacheTTL = durationOr("EXCHANGE_RATE_CACHE_TTL", defaultExchangeRateTTL)

	cfg.CORSAllowedOrigins = splitList(envOr("CORS_ALLOWED_ORIGINS", "*"))

	for idStr := range strings.SplitSeq(os.Getenv("WHITELISTED_USER_IDS"), ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
	}

	for _, username := range splitList(os.Getenv("WHITELISTED_USERNAMES")) {
		cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, strings.TrimPrefix(username, "@"))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks settings every command depends on.
func (c *Config) validate() error {
	var errs []string

	switch c.StorageBackend {
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH must not be empty")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND %q is not one of sqlite, postgres, memory", c.StorageBackend))
	}

	if strings.TrimSpace(c.StorageKey) == "" {
		errs = append(errs, "STORAGE_KEY must not be empty")
	}

	if len(c.BaseCurrency) != 3 {
		errs = append(errs, fmt.Sprintf("BASE_CURRENCY %q must be a 3-letter ISO code", c.BaseCurrency))
	}

	if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT %q is invalid: %v", c.RateLimit, err))
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// RequireGemini reports an error when the AI-backed features cannot run.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return errors.New("configuration validation failed:\n  - GEMINI_API_KEY is required")
	}
	return nil
}

// RequireTelegram checks the settings the Telegram front-end needs.
func (c *Config) RequireTelegram() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
// Returns true if either the user ID or username is whitelisted.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// durationOr falls back when the value is missing, malformed or not positive.
func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
