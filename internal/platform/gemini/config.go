package gemini

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type ConfigErrorCode string

const (
	ConfigErrorMissingAPIKey ConfigErrorCode = "missing_api_key"
	ConfigErrorInvalidURL    ConfigErrorCode = "invalid_url"
	ConfigErrorInvalidValue  ConfigErrorCode = "invalid_value"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid gemini config"
	}
	switch e.Code {
	case ConfigErrorMissingAPIKey:
		return "GEMINI_API_KEY is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf(
			"invalid GEMINI_BASE_URL=%q; expected absolute URL like https://generativelanguage.googleapis.com",
			e.Value,
		)
	case ConfigErrorInvalidValue:
		return fmt.Sprintf("invalid gemini config value %q", e.Value)
	default:
		return "invalid gemini config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func ResolveConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:   strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		Timeout: 120 * time.Second,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if raw := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return Config{}, &ConfigError{Code: ConfigErrorInvalidValue, Value: "GEMINI_TIMEOUT_SECONDS=" + raw, Cause: err}
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	return cfg, ValidateConfig(cfg)
}

func ValidateConfig(cfg Config) error {
	if cfg.APIKey == "" {
		return &ConfigError{Code: ConfigErrorMissingAPIKey}
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: cfg.BaseURL, Cause: err}
	}
	return nil
}
