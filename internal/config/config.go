// Package config loads lumina.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultModel is the generative model used when neither the config file
// nor the session selects one.
const DefaultModel = "gemini-3-flash-preview"

// Config is the in-memory representation of $LUMINA_HOME/lumina.yaml.
type Config struct {
	DataDir string       `yaml:"data_dir"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
	AI      AIConfig     `yaml:"ai"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	AllowedOrigins    []string      `yaml:"allowed_origins,omitempty"` // empty = allow all
	RateLimitRequests int           `yaml:"rate_limit_requests"`       // per minute, 0 = disabled
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
	AuthEnabled       bool          `yaml:"auth_enabled"`
	APIKeys           []string      `yaml:"api_keys,omitempty"`
	SuggestCacheTTL   time.Duration `yaml:"suggest_cache_ttl"`
	TLSCertFile       string        `yaml:"tls_cert_file,omitempty"` // TLS is on when both files are set
	TLSKeyFile        string        `yaml:"tls_key_file,omitempty"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// AIConfig holds the process-wide provider defaults. A session may replace
// both with its own key and model.
type AIConfig struct {
	APIKey  string        `yaml:"api_key,omitempty"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Home returns $LUMINA_HOME, or ~/.lumina when it is unset.
func Home() (string, error) {
	if dir := os.Getenv("LUMINA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".lumina"), nil
}

// DefaultPath returns the absolute path to lumina.yaml under Home.
func DefaultPath() (string, error) {
	dir, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lumina.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	home, err := Home()
	if err != nil {
		return nil, err
	}
	return &Config{
		DataDir: filepath.Join(home, "data"),
		Server: ServerConfig{
			Port:              8080,
			RateLimitRequests: 120,
			RateLimitBurst:    20,
			SuggestCacheTTL:   10 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		AI:  AIConfig{Model: DefaultModel, Timeout: 60 * time.Second},
	}, nil
}

// Load reads the config at path over the defaults. An empty path means
// DefaultPath, and a missing default file is not an error. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if cfg.DataDir, err = ExpandPath(cfg.DataDir); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save marshals cfg and writes it to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// apiKeyEnv lists the variables consulted for the default AI key, in order.
var apiKeyEnv = []string{"LUMINA_API_KEY", "GEMINI_API_KEY", "API_KEY"}

// ApplyEnv overrides file values with the environment.
func (c *Config) ApplyEnv() {
	for _, name := range apiKeyEnv {
		if v := os.Getenv(name); v != "" {
			c.AI.APIKey = v
			break
		}
	}
	if v := os.Getenv("LUMINA_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("LUMINA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimitRequests < 0 || c.Server.RateLimitBurst < 0 {
		return errors.New("rate limits must not be negative")
	}
	if c.Server.AuthEnabled && len(c.Server.APIKeys) == 0 {
		return errors.New("server.auth_enabled requires at least one api key")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if c.AI.Model == "" {
		c.AI.Model = DefaultModel
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}
