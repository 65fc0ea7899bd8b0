// Package config assembles runtime configuration from an optional YAML file
// and environment variables. Environment values win over file values so
// credentials can stay out of checked-in config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soxtools/adreview/pkg/review"
)

// Environment variable names.
const (
	EnvServer   = "AD_SERVER"
	EnvUsername = "AD_USERNAME"
	EnvPassword = "AD_PASSWORD"
	EnvBaseDN   = "AD_BASE_DN"

	EnvWorkers        = "WORKERS"
	EnvMaxRetries     = "MAX_RETRIES"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvRateLimitRPS   = "RATE_LIMIT_RPS"

	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGeminiModel  = "GEMINI_MODEL"
)

// Directory holds the Active Directory connection settings.
type Directory struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaseDN   string `yaml:"base_dn"`
}

// Run holds tuning knobs for the correlation run.
type Run struct {
	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
}

// UnmarshalYAML decodes the run section, accepting request_timeout as a Go
// duration string and leaving absent fields at their current (default) values.
func (r *Run) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Workers        *int     `yaml:"workers"`
		MaxRetries     *int     `yaml:"max_retries"`
		RequestTimeout string   `yaml:"request_timeout"`
		RateLimitRPS   *float64 `yaml:"rate_limit_rps"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Workers != nil {
		r.Workers = *raw.Workers
	}
	if raw.MaxRetries != nil {
		r.MaxRetries = *raw.MaxRetries
	}
	if raw.RateLimitRPS != nil {
		r.RateLimitRPS = *raw.RateLimitRPS
	}
	if raw.RequestTimeout != "" {
		d, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", raw.RequestTimeout, err)
		}
		r.RequestTimeout = d
	}
	return nil
}

// Gemini holds the optional run-summary model settings. The API key is env
// only, never read from file.
type Gemini struct {
	APIKey string `yaml:"-"`
	Model  string `yaml:"model"`
}

// Config is the merged runtime configuration.
type Config struct {
	Directory Directory `yaml:"directory"`
	Run       Run       `yaml:"run"`
	Gemini    Gemini    `yaml:"gemini"`
}

// Defaults returns the baseline configuration before any file or env overlay.
func Defaults() Config {
	return Config{
		Run: Run{
			Workers:        1,
			MaxRetries:     2,
			RequestTimeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overlay(&c.Directory.Server, EnvServer)
	overlay(&c.Directory.Username, EnvUsername)
	overlay(&c.Directory.Password, EnvPassword)
	overlay(&c.Directory.BaseDN, EnvBaseDN)
	overlay(&c.Gemini.APIKey, EnvGeminiAPIKey)
	overlay(&c.Gemini.Model, EnvGeminiModel)

	var err error
	if c.Run.Workers, err = envInt(EnvWorkers, c.Run.Workers); err != nil {
		return err
	}
	if c.Run.MaxRetries, err = envInt(EnvMaxRetries, c.Run.MaxRetries); err != nil {
		return err
	}
	if c.Run.RequestTimeout, err = envDuration(EnvRequestTimeout, c.Run.RequestTimeout); err != nil {
		return err
	}
	if c.Run.RateLimitRPS, err = envFloat(EnvRateLimitRPS, c.Run.RateLimitRPS); err != nil {
		return err
	}
	return nil
}

// ValidateDirectory checks that every connection setting is present, naming
// the environment variables that would satisfy the missing ones.
func (c Config) ValidateDirectory() error {
	var missing []string
	if c.Directory.Server == "" {
		missing = append(missing, EnvServer)
	}
	if c.Directory.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if c.Directory.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if c.Directory.BaseDN == "" {
		missing = append(missing, EnvBaseDN)
	}
	if len(missing) > 0 {
		return &review.ConfigurationError{
			Reason: "missing directory settings: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

func overlay(dst *string, varName string) {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		*dst = v
	}
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
