package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"icebreaker/internal/core/domain"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultPollTimeout    = 300 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

type Config struct {
	Env      string
	Research domain.Endpoint
	Generate domain.Endpoint
	Poll     PollConfig
	OTel     OTelConfig

	// ArtifactDir enables exporting stage inputs and results when set.
	ArtifactDir string
}

type PollConfig struct {
	Interval       time.Duration
	Timeout        time.Duration
	RequestTimeout time.Duration
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	StdoutTraces   bool
}

// Load reads configuration from the environment. In development a .env file
// in the working directory is loaded first if present.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") == "development" {
		_ = godotenv.Load()
	}

	interval, err := getEnvDuration("POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return Config{}, err
	}
	timeout, err := getEnvDuration("POLL_TIMEOUT", DefaultPollTimeout)
	if err != nil {
		return Config{}, err
	}
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env: getEnv("APP_ENV", "development"),
		Research: domain.Endpoint{
			BaseURL: getEnv("CREW1_URL", ""),
			Token:   getEnv("CREW1_TOKEN", ""),
		},
		Generate: domain.Endpoint{
			BaseURL: getEnv("CREW2_URL", ""),
			Token:   getEnv("CREW2_TOKEN", ""),
		},
		Poll: PollConfig{
			Interval:       interval,
			Timeout:        timeout,
			RequestTimeout: requestTimeout,
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "icebreaker"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			StdoutTraces:   getEnvBool("OTEL_TRACES_STDOUT", false),
		},
		ArtifactDir: getEnv("ARTIFACT_DIR", ""),
	}

	return cfg, nil
}

// Endpoint returns the crew endpoint configured for a stage.
func (c Config) Endpoint(stage domain.Stage) (domain.Endpoint, error) {
	ep := c.Research
	if stage == domain.StageGenerate {
		ep = c.Generate
	}
	if err := ValidateEndpoint(stage, ep); err != nil {
		return domain.Endpoint{}, err
	}
	return ep, nil
}

// ValidateEndpoint reports which variable is missing for a stage endpoint.
func ValidateEndpoint(stage domain.Stage, ep domain.Endpoint) error {
	prefix := "CREW1"
	switch stage {
	case domain.StageResearch:
	case domain.StageGenerate:
		prefix = "CREW2"
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	if ep.BaseURL == "" {
		return fmt.Errorf("%s_URL is required for the %s stage", prefix, stage)
	}
	if ep.Token == "" {
		return fmt.Errorf("%s_TOKEN is required for the %s stage", prefix, stage)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDuration accepts Go duration syntax ("7.5s", "2m") or a bare number of
// seconds ("5", "0.5").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return d, nil
}
