package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/openlend/openlend-go/pkg/openlend"
)

// Config holds all command configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Env   string
	Debug bool

	Platform PlatformConfig
	RestHook RestHookConfig
}

// PlatformConfig contains connection parameters for the lending platform API.
type PlatformConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	APIVersion   int
}

// RestHookConfig contains the resthook listener and subscription parameters.
type RestHookConfig struct {
	Port   string
	Target string
	Events []openlend.EventName
	Secret string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Env = getEnv("ENV", "development")
	cfg.Debug = getEnvBool("OPENLEND_DEBUG", false)

	cfg.Platform = PlatformConfig{
		BaseURL:      getEnv("OPENLEND_BASE_URL", ""),
		ClientID:     getEnv("OPENLEND_CLIENT_ID", ""),
		ClientSecret: getEnv("OPENLEND_CLIENT_SECRET", ""),
		Username:     getEnv("OPENLEND_USERNAME", ""),
		Password:     getEnv("OPENLEND_PASSWORD", ""),
		APIVersion:   getEnvInt("OPENLEND_API_VERSION", 1),
	}

	cfg.RestHook = RestHookConfig{
		Port:   getEnv("RESTHOOK_PORT", "8080"),
		Target: getEnv("RESTHOOK_TARGET", ""),
		Events: parseEvents(getEnv("RESTHOOK_EVENTS", "")),
		Secret: getEnv("RESTHOOK_SECRET", ""),
	}

	if cfg.Platform.BaseURL == "" {
		return nil, errors.New("platform configuration incomplete: ensure OPENLEND_BASE_URL is set")
	}
	if cfg.Platform.ClientID == "" || cfg.Platform.ClientSecret == "" {
		return nil, errors.New("platform configuration incomplete: ensure OPENLEND_CLIENT_ID and OPENLEND_CLIENT_SECRET are set")
	}
	if cfg.Platform.APIVersion < 1 {
		return nil, fmt.Errorf("invalid OPENLEND_API_VERSION: %d", cfg.Platform.APIVersion)
	}

	return cfg, nil
}

// Credentials builds the client-credential set used by the SDK gateway.
func (p PlatformConfig) Credentials() openlend.Credentials {
	return openlend.Credentials{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Username:     p.Username,
		Password:     p.Password,
	}
}

// parseEvents splits a comma-separated RESTHOOK_EVENTS value into event names.
func parseEvents(raw string) []openlend.EventName {
	if raw == "" {
		return nil
	}
	var events []openlend.EventName
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			events = append(events, openlend.EventName(part))
		}
	}
	return events
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a boolean or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
