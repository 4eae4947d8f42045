package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	DatabaseURL        string

	// Session store
	SessionBackend     string
	SessionTTL         time.Duration
	ConversationWindow int
	RateLimitPerMinute int
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool

	// Downstream health services
	DomainAPIBaseURL string
	DomainAPITimeout time.Duration
	JWTSecret        string

	// Language model providers
	LLMProvider         string
	LLMFallbackProvider string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModel         string
	OpenAIAPIKey        string
	OpenAIModel         string
	TranscriptionModel  string

	// Routing behaviour
	FuzzyMatchThreshold     float64
	RouterFieldHintOverride bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// AI query log
	QueryLogSink     string
	QueryLogTable    string
	QueryLogQueueURL string

	// Safety alerting
	SafetyAlertEmail  string
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		DatabaseURL:        getEnv("DATABASE_URL", ""),

		SessionBackend:     strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		ConversationWindow: getEnvAsInt("CONVERSATION_WINDOW", 40),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 15),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),

		DomainAPIBaseURL: strings.TrimRight(getEnv("DOMAIN_API_BASE_URL", "http://localhost:3000"), "/"),
		DomainAPITimeout: getEnvAsDuration("DOMAIN_API_TIMEOUT", 15*time.Second),
		JWTSecret:        getEnv("JWT_SECRET", ""),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		TranscriptionModel:  getEnv("TRANSCRIPTION_MODEL", "whisper-1"),

		FuzzyMatchThreshold:     getEnvAsFloat("FUZZY_MATCH_THRESHOLD", 0.70),
		RouterFieldHintOverride: getEnvAsBool("ROUTER_FIELD_HINT_OVERRIDE", true),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		QueryLogSink:     strings.ToLower(strings.TrimSpace(getEnv("QUERY_LOG_SINK", "log"))),
		QueryLogTable:    getEnv("QUERY_LOG_TABLE", "ai_query_logs"),
		QueryLogQueueURL: getEnv("QUERY_LOG_QUEUE_URL", ""),

		SafetyAlertEmail:  getEnv("SAFETY_ALERT_EMAIL", ""),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Health Assistant"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
	}
}

// RateLimitPerSecond converts the per-minute budget into a token refill rate.
func (c *Config) RateLimitPerSecond() float64 {
	if c.RateLimitPerMinute <= 0 {
		return 0
	}
	return float64(c.RateLimitPerMinute) / 60.0
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
