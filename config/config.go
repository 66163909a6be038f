// Package config loads the agent configuration.
//
// Sources from lowest to highest priority: defaults, the YAML config file,
// environment variables (optionally seeded from a .env file) and finally
// command-line flags, which main applies on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "coding-agent"

const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvDBPath   = "CODING_AGENT_DB_PATH"
	EnvModel    = "CODING_AGENT_MODEL"
	EnvMaxSteps = "CODING_AGENT_MAX_STEPS"
	EnvLogLevel = "CODING_AGENT_LOG_LEVEL"
)

// Config holds the agent configuration.
type Config struct {
	DBPath     string `yaml:"db_path"`
	Model      string `yaml:"model"`
	MaxSteps   int    `yaml:"max_steps"`
	WindDownAt int    `yaml:"wind_down_at"`
	LogLevel   string `yaml:"log_level"`
	BaseURL    string `yaml:"base_url"`

	// APIKey is only read from the environment, never from the config file.
	APIKey string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		DBPath:     DefaultDBPath(),
		Model:      "gpt-5-nano",
		MaxSteps:   20,
		WindDownAt: 2,
		LogLevel:   "warn",
	}
}

// DefaultDBPath returns $XDG_DATA_HOME/coding-agent/memory.db, falling back
// to ~/.local/share.
func DefaultDBPath() string {
	return filepath.Join(dataHome(), appName, "memory.db")
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/coding-agent/config.yaml, falling
// back to ~/.config.
func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.yaml")
	}
	return filepath.Join(homeDir(), ".config", appName, "config.yaml")
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped and variables that are already set
// are kept.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.APIKey = key
	}
	if url := os.Getenv(EnvBaseURL); url != "" {
		c.BaseURL = url
	}
	if path := os.Getenv(EnvDBPath); path != "" {
		c.DBPath = path
	}
	if model := os.Getenv(EnvModel); model != "" {
		c.Model = model
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	if steps := os.Getenv(EnvMaxSteps); steps != "" {
		n, err := strconv.Atoi(strings.TrimSpace(steps))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxSteps, steps, err)
		}
		c.MaxSteps = n
	}
	return nil
}

// Validate checks the values a run cannot start without. The API key is
// checked separately because listing and deleting sessions do not need it.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be at least 1, got %d", c.MaxSteps)
	}
	if c.WindDownAt < 0 {
		return fmt.Errorf("wind_down_at must not be negative, got %d", c.WindDownAt)
	}
	return nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
