package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/tripflow/internal/models"
)

// Config holds application configuration
type Config struct {
	DatabaseURL        string
	ServerPort         string
	BaseURL            string
	FrontendURL        string
	CORSAllowedOrigins []string
	EnableHSTS         bool
	RequestTimeout     time.Duration
	MaxRequestBytes    int64

	AIKey           string
	AIProvider      string
	AIModel         string
	AIAutofillModel string
	AIBaseURL       string

	RedisURL         string
	AnalysisCacheTTL time.Duration
	GeocodeCacheTTL  time.Duration

	RabbitMQURL      string
	RabbitMQPrefetch int
	DLQGCInterval    time.Duration
	DLQRetention     time.Duration

	RateLimitGeneral string
	RateLimitAI      string

	WeatherAPIKey     string
	WeatherBaseURL    string
	GeocoderBaseURL   string
	GeocoderUserAgent string

	OIDCProvider     string
	OIDCIssuer       string
	OIDCDomain       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURI  string
	OIDCJWKSURL      string
	OIDCAudience     string

	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
	OTELSampleRatio float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:4200"),
		EnableHSTS:  getEnvBool("ENABLE_HSTS", false),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 90*time.Second),
		MaxRequestBytes: int64(getEnvInt("MAX_REQUEST_BYTES", 1<<20)),

		AIKey:           getEnv("OPENROUTER_API_KEY", getEnv("OPENAI_API_KEY", "")),
		AIProvider:      getEnv("AI_PROVIDER", "openrouter"),
		AIModel:         getEnv("AI_MODEL", ""),
		AIAutofillModel: getEnv("AI_AUTOFILL_MODEL", ""),
		AIBaseURL:       getEnv("AI_BASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AnalysisCacheTTL: getEnvDuration("ANALYSIS_CACHE_TTL", 24*time.Hour),
		GeocodeCacheTTL:  getEnvDuration("GEOCODE_CACHE_TTL", 7*24*time.Hour),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		DLQGCInterval:    getEnvDuration("DLQ_GC_INTERVAL", time.Hour),
		DLQRetention:     getEnvDuration("DLQ_RETENTION", 24*time.Hour),

		RateLimitGeneral: getEnv("RATE_LIMIT_GENERAL", "20-S"),
		RateLimitAI:      getEnv("RATE_LIMIT_AI", "10-M"),

		WeatherAPIKey:     getEnv("WEATHER_API_KEY", ""),
		WeatherBaseURL:    getEnv("WEATHER_BASE_URL", ""),
		GeocoderBaseURL:   getEnv("GEOCODER_BASE_URL", ""),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", ""),

		OIDCProvider:     getEnv("OIDC_PROVIDER", "cognito"),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCDomain:       getEnv("OIDC_DOMAIN", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURI:  getEnv("OIDC_REDIRECT_URI", ""),
		OIDCJWKSURL:      getEnv("OIDC_JWKS_URL", ""),
		OIDCAudience:     getEnv("OIDC_AUDIENCE", ""),

		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
	}
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{cfg.FrontendURL})

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (async day analysis requires RabbitMQ)")
	}

	return cfg, nil
}

// OIDCEnabled reports whether enough OIDC settings are present to verify tokens
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// OIDC returns the identity provider settings
func (c *Config) OIDC() *models.OIDCConfig {
	return &models.OIDCConfig{
		Provider:     c.OIDCProvider,
		Issuer:       strings.TrimRight(c.OIDCIssuer, "/"),
		Domain:       c.OIDCDomain,
		ClientID:     c.OIDCClientID,
		ClientSecret: c.OIDCClientSecret,
		RedirectURI:  c.OIDCRedirectURI,
		JWKSURL:      c.OIDCJWKSURL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
