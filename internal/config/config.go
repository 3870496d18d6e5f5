// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the service configuration. It can be loaded from a JSON
// file; missing values fall back to environment variables and defaults.
type Config struct {
	// Server
	Port int `json:"port,omitempty"` // HTTP listen port

	// External services
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Gemini API key
	GeminiModel  string `json:"gemini_model,omitempty"`   // Gemini model name

	// Mail delivery
	SendGridAPIKey  string `json:"sendgrid_api_key,omitempty"`
	SendGridBaseURL string `json:"sendgrid_base_url,omitempty"`
	FromEmail       string `json:"from_email,omitempty"`
	FromName        string `json:"from_name,omitempty"`

	// Background poller
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"` // Delay between sweeps
	PollBatchSize       int `json:"poll_batch_size,omitempty"`       // Records per sweep
	RecordDelaySeconds  int `json:"record_delay_seconds,omitempty"`  // Pause between records in a sweep

	// Pipeline
	LeaseTTLSeconds int `json:"lease_ttl_seconds,omitempty"` // Per-record processing lease lifetime
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Port:                8080,
		GeminiModel:         "gemini-2.5-flash",
		PollIntervalSeconds: 30,
		PollBatchSize:       5,
		RecordDelaySeconds:  2,
		LeaseTTLSeconds:     300,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables.
func FromEnv() Config {
	return Config{
		Port:            envInt("PORT"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		SendGridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		SendGridBaseURL: os.Getenv("SENDGRID_BASE_URL"),
		FromEmail:       os.Getenv("SENDGRID_FROM_EMAIL"),
		FromName:        os.Getenv("SENDGRID_FROM_NAME"),
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("config error: 'poll_interval_seconds' must be non-negative")
	}
	if c.PollBatchSize < 0 {
		return fmt.Errorf("config error: 'poll_batch_size' must be non-negative")
	}
	if c.RecordDelaySeconds < 0 {
		return fmt.Errorf("config error: 'record_delay_seconds' must be non-negative")
	}
	if c.LeaseTTLSeconds < 0 {
		return fmt.Errorf("config error: 'lease_ttl_seconds' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. Used to layer config file values over env values over built-ins.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.GeminiModel == "" {
		result.GeminiModel = defaults.GeminiModel
	}
	if result.SendGridAPIKey == "" {
		result.SendGridAPIKey = defaults.SendGridAPIKey
	}
	if result.SendGridBaseURL == "" {
		result.SendGridBaseURL = defaults.SendGridBaseURL
	}
	if result.FromEmail == "" {
		result.FromEmail = defaults.FromEmail
	}
	if result.FromName == "" {
		result.FromName = defaults.FromName
	}
	if result.PollIntervalSeconds == 0 {
		result.PollIntervalSeconds = defaults.PollIntervalSeconds
	}
	if result.PollBatchSize == 0 {
		result.PollBatchSize = defaults.PollBatchSize
	}
	if result.RecordDelaySeconds == 0 {
		result.RecordDelaySeconds = defaults.RecordDelaySeconds
	}
	if result.LeaseTTLSeconds == 0 {
		result.LeaseTTLSeconds = defaults.LeaseTTLSeconds
	}

	return result
}

// Resolve layers a loaded config (may be nil) over environment variables over
// built-in defaults and validates the result.
func Resolve(fileCfg *Config) (Config, error) {
	cfg := FromEnv()
	if fileCfg != nil {
		cfg = fileCfg.MergeWithDefaults(cfg)
	}
	cfg = cfg.MergeWithDefaults(Defaults())

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envInt(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
