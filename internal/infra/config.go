package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment
// variables. Provider credentials and tuning knobs are injected into the
// pipeline components from here; no component reads the environment itself.
type Config struct {
	AppEnv string
	Port   string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string

	FALAPIKey  string
	FALBaseURL string

	NanoBananaAPIKey  string
	NanoBananaBaseURL string

	MaxImageSizeBytes int64
	MaxImageDimension int
	PollInterval      time.Duration
	MaxPollAttempts   int

	CORSOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables, applies defaults
// and fails fast when a provider credential is missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),

		FALAPIKey:  os.Getenv("FAL_API_KEY"),
		FALBaseURL: getEnv("FAL_BASE_URL", "https://rest.alpha.fal.ai"),

		NanoBananaAPIKey:  os.Getenv("NANOBANANA_API_KEY"),
		NanoBananaBaseURL: getEnv("NANOBANANA_BASE_URL", "https://api.nanobananaapi.ai/api/v1/nanobanana"),

		MaxImageSizeBytes: int64(getEnvInt("MAX_IMAGE_SIZE_BYTES", 10*1024*1024)),
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 1024),
		PollInterval:      time.Second * time.Duration(getEnvInt("SYNTHESIS_POLL_INTERVAL_SECONDS", 2)),
		MaxPollAttempts:   getEnvInt("SYNTHESIS_MAX_POLL_ATTEMPTS", 60),

		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	for _, required := range []struct{ key, value string }{
		{"OPENAI_API_KEY", cfg.OpenAIAPIKey},
		{"FAL_API_KEY", cfg.FALAPIKey},
		{"NANOBANANA_API_KEY", cfg.NanoBananaAPIKey},
	} {
		if strings.TrimSpace(required.value) == "" {
			return nil, fmt.Errorf("%s is required", required.key)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
