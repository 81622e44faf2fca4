package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port string

	// Database (PostgreSQL)
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	// LLM (OpenAI-compatible chat completions endpoint)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Stripe
	StripeKey string

	// AWS S3 (published site snapshots)
	AWSAccessKey string
	AWSSecretKey string
	AWSRegion    string
	S3Bucket     string

	// Redis (revision locks + generation progress pub/sub)
	RedisURL string

	// Frontend URL (checkout redirects, CORS)
	FrontendURL string

	// Credits granted to a fresh account
	SignupCredits int
}

func Load() *Config {
	jwtExpiry, _ := time.ParseDuration(getEnv("JWT_EXPIRY", "15m"))
	refreshExpiry, _ := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRY", "168h")) // 7 days
	llmTimeout, _ := time.ParseDuration(getEnv("LLM_TIMEOUT", "3m"))

	signupCredits, _ := strconv.Atoi(getEnv("SIGNUP_CREDITS", "20"))

	return &Config{
		// Server
		Port: getEnv("PORT", "8092"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// JWT
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpiry:          jwtExpiry,
		RefreshTokenExpiry: refreshExpiry,

		// LLM
		LLMBaseURL: strings.TrimRight(getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"), "/"),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "kwaipilot/kat-coder-pro"),
		LLMTimeout: llmTimeout,

		// Stripe
		StripeKey: getEnv("STRIPE_SECRET_KEY", ""),

		// AWS S3
		AWSAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", "aisitebuild-sites"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Frontend
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Credits
		SignupCredits: signupCredits,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
