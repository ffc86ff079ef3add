package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"chat-assistant-server/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort string
	LogLevel   string
	AppEnv     string

	SupabaseURL  string
	SupabaseKey  string
	JWTSecret    string
	AuthProvider string

	StoreBackend   string
	HistoryBackend string
	RedisURL       string
	DatabaseURL    string

	DailyMessageLimit int
	QuotaLocation     *time.Location
	GateMaxAttempts   int
	PromoCodes        map[string]*time.Duration

	StripeSecretKey string
	OpenAIAPIKey    string
	OpenAIModel     string
	GCPProjectID    string
	GCPLocation     string
	BotProvider     string

	ExpirySweepSchedule string
	RateLimitPerMinute  int
	SentryDSN           string
	AllowedOrigins      []string
	AdminSecret         string
	ImageBucket         string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort: getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		AppEnv:     getEnvOrDefault("APP_ENV", "development"),

		SupabaseURL: getEnvOrDefault("SUPABASE_URL", ""),
		// Table writes need the service role; the anon key is enough for auth only.
		SupabaseKey:  getEnvOrDefault("SUPABASE_SERVICE_ROLE_KEY", getEnvOrDefault("SUPABASE_ANON_KEY", "")),
		JWTSecret:    getEnvOrDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		AuthProvider: strings.ToLower(getEnvOrDefault("AUTH_PROVIDER", "jwt")),

		StoreBackend:   strings.ToLower(getEnvOrDefault("STORE_BACKEND", "memory")),
		HistoryBackend: strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", "memory")),
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", ""),

		DailyMessageLimit: getEnvIntOrDefault("DAILY_MESSAGE_LIMIT", 7),
		QuotaLocation:     getEnvLocationOrDefault("QUOTA_TIMEZONE", time.UTC),
		GateMaxAttempts:   getEnvIntOrDefault("GATE_MAX_ATTEMPTS", 3),
		PromoCodes:        ParsePromoCodes(getEnvOrDefault("PROMO_CODES", "PREMIUM7DAYS=168h")),

		StripeSecretKey: getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnvOrDefault("OPENAI_MODEL", ""),
		GCPProjectID:    getEnvOrDefault("GCP_PROJECT_ID", ""),
		GCPLocation:     getEnvOrDefault("GCP_LOCATION", "us-central1"),
		BotProvider:     strings.ToLower(getEnvOrDefault("BOT_PROVIDER", "canned")),

		ExpirySweepSchedule: getEnvOrDefault("EXPIRY_SWEEP_SCHEDULE", "@every 10m"),
		RateLimitPerMinute:  getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 30),
		SentryDSN:           getEnvOrDefault("SENTRY_DSN", ""),
		AllowedOrigins:      splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),
		AdminSecret:         getEnvOrDefault("ADMIN_API_SECRET", ""),
		ImageBucket:         getEnvOrDefault("IMAGE_BUCKET", ""),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

func (c *AppConfig) GetAppEnv() string {
	return c.AppEnv
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase key, preferring the service role key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetJWTSecret returns the JWT secret key
func (c *AppConfig) GetJWTSecret() string {
	return c.JWTSecret
}

func (c *AppConfig) GetAuthProvider() string {
	return c.AuthProvider
}

func (c *AppConfig) GetStoreBackend() string {
	return c.StoreBackend
}

func (c *AppConfig) GetHistoryBackend() string {
	return c.HistoryBackend
}

func (c *AppConfig) GetRedisURL() string {
	return c.RedisURL
}

func (c *AppConfig) GetDatabaseURL() string {
	return c.DatabaseURL
}

func (c *AppConfig) GetDailyMessageLimit() int {
	return c.DailyMessageLimit
}

// GetQuotaLocation returns the timezone whose midnight resets the daily quota
func (c *AppConfig) GetQuotaLocation() *time.Location {
	return c.QuotaLocation
}

func (c *AppConfig) GetGateMaxAttempts() int {
	return c.GateMaxAttempts
}

// GetPromoCodes returns the redeemable codes. A nil duration grants an
// unlimited window.
func (c *AppConfig) GetPromoCodes() map[string]*time.Duration {
	return c.PromoCodes
}

func (c *AppConfig) GetStripeSecretKey() string {
	return c.StripeSecretKey
}

func (c *AppConfig) GetOpenAIAPIKey() string {
	return c.OpenAIAPIKey
}

func (c *AppConfig) GetOpenAIModel() string {
	return c.OpenAIModel
}

func (c *AppConfig) GetGCPProjectID() string {
	return c.GCPProjectID
}

func (c *AppConfig) GetGCPLocation() string {
	return c.GCPLocation
}

func (c *AppConfig) GetBotProvider() string {
	return c.BotProvider
}

func (c *AppConfig) GetExpirySweepSchedule() string {
	return c.ExpirySweepSchedule
}

func (c *AppConfig) GetRateLimitPerMinute() int {
	return c.RateLimitPerMinute
}

func (c *AppConfig) GetSentryDSN() string {
	return c.SentryDSN
}

func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetAdminSecret returns the shared secret for /admin routes; empty disables them
func (c *AppConfig) GetAdminSecret() string {
	return c.AdminSecret
}

// GetImageBucket names the Supabase Storage bucket generated images are
// archived in; empty keeps provider URLs.
func (c *AppConfig) GetImageBucket() string {
	return c.ImageBucket
}

// ParsePromoCodes reads "CODE=168h,OTHER=unlimited". Entries with a
// malformed or non-positive duration are skipped.
func ParsePromoCodes(raw string) map[string]*time.Duration {
	codes := make(map[string]*time.Duration)
	for _, entry := range splitList(raw) {
		code, value, ok := strings.Cut(entry, "=")
		code = strings.TrimSpace(code)
		value = strings.TrimSpace(value)
		if !ok || code == "" {
			continue
		}
		if strings.EqualFold(value, "unlimited") {
			codes[code] = nil
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			continue
		}
		codes[code] = &d
	}
	return codes
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvLocationOrDefault(key string, defaultValue *time.Location) *time.Location {
	if value := os.Getenv(key); value != "" {
		if loc, err := time.LoadLocation(value); err == nil {
			return loc
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
