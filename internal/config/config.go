// Package config provides configuration loading and validation for the
// service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the application configuration, loadable from a JSON file with
// environment variable overrides. All fields are optional; missing values
// fall back to defaults or CLI flags.
type Config struct {
	// DataRoot is the directory holding cvs/ and cv-analysis/.
	DataRoot string `json:"data_root,omitempty"`

	// Provider
	APIKey        string `json:"api_key,omitempty"`        // Gemini API key
	ModelLite     string `json:"model_lite,omitempty"`     // cheap/fast tier
	ModelStandard string `json:"model_standard,omitempty"` // default tier
	ModelAdvanced string `json:"model_advanced,omitempty"` // reasoning tier

	// Retry behavior for provider calls
	MaxAttempts          int `json:"max_attempts,omitempty"`
	RetryIntervalSeconds int `json:"retry_interval_seconds,omitempty"`
	CallTimeoutSeconds   int `json:"call_timeout_seconds,omitempty"`

	// Server
	Port        int    `json:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty"` // headless browser for SPA job boards
	Verbose    bool `json:"verbose,omitempty"`     // debug logging
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataRoot:             "data",
		ModelLite:            "gemini-2.5-flash-lite",
		ModelStandard:        "gemini-2.5-flash",
		ModelAdvanced:        "gemini-2.5-pro",
		MaxAttempts:          3,
		RetryIntervalSeconds: 2,
		CallTimeoutSeconds:   45,
		Port:                 8080,
	}
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
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

// ApplyEnv overlays environment variables onto the config. Environment
// values win over file values so deployments can override without editing
// the file.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("CVMATCH_DATA_ROOT"); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.RetryIntervalSeconds < 0 {
		return fmt.Errorf("config error: 'retry_interval_seconds' must be non-negative")
	}
	if c.CallTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'call_timeout_seconds' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. Bool fields are not merged; flags always win for those.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DataRoot == "" {
		result.DataRoot = defaults.DataRoot
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ModelLite == "" {
		result.ModelLite = defaults.ModelLite
	}
	if result.ModelStandard == "" {
		result.ModelStandard = defaults.ModelStandard
	}
	if result.ModelAdvanced == "" {
		result.ModelAdvanced = defaults.ModelAdvanced
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.RetryIntervalSeconds == 0 {
		result.RetryIntervalSeconds = defaults.RetryIntervalSeconds
	}
	if result.CallTimeoutSeconds == 0 {
		result.CallTimeoutSeconds = defaults.CallTimeoutSeconds
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	return result
}

// RetryInterval returns the retry interval as a duration.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

// CallTimeout returns the provider call timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}
