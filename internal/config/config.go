package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the API server configuration
type Config struct {
	DatabaseURL    string
	Port           string
	JWTSecret      string
	OTPSalt        string
	DevMode        bool
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration
	CORSOrigins    []string
	OpenAIKey      string
	OpenAIModel    string
	LogLevel       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		AccessTokenTTL: 24 * time.Hour,
		ResetTokenTTL:  15 * time.Minute,
		CORSOrigins:    []string{"http://localhost:5173", "https://lang-translator.rentangoafrica.com"},
		OpenAIModel:    "gpt-4o-mini",
		LogLevel:       "info",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.OTPSalt = os.Getenv("OTP_SALT")
	if cfg.OTPSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}

	// fixed code 123456, never use in production
	cfg.DevMode = os.Getenv("OTP_DEV_MODE") == "true"

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.ResetTokenTTL, err = durationEnv("RESET_TOKEN_TTL", cfg.ResetTokenTTL); err != nil {
		return nil, err
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.OpenAIModel = model
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
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
