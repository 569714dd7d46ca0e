// Package config loads and validates the chat gateway configuration.
//
// DESIGN: Server settings MUST come from the YAML file. Provider tuning
// (max_tokens, temperature, endpoints, default models) falls back to
// built-in defaults so a config only needs credentials.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - providers.go:  Per-provider credentials, endpoints and model defaults
//   - accessor.go:   Opaque key/value lookups (env, map) for provider settings
//   - monitoring.go: Logging and telemetry settings
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds a single provider exchange.
const DefaultTimeout = 30 * time.Second

// Config is the root configuration for the chat gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server settings
	Gateway    GatewayConfig    `yaml:"gateway"`    // Dispatcher settings
	Providers  ProvidersConfig  `yaml:"providers"`  // Backend credentials and models
	Store      StoreConfig      `yaml:"store"`      // Exchange log
	Monitoring MonitoringConfig `yaml:"monitoring"` // Telemetry and logging
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`            // Port to listen on
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // Max time to read request
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // Max time to write response
	RateLimit      int           `yaml:"rate_limit"`      // Requests per second per client IP (0 = 20)
	AllowedOrigins []string      `yaml:"allowed_origins"` // CORS / WebSocket origins (widget pages)
}

// GatewayConfig contains dispatcher settings.
type GatewayConfig struct {
	DefaultProvider      string        `yaml:"default_provider"`       // Used when a request names no provider
	Timeout              time.Duration `yaml:"timeout"`                // Per-exchange timeout (0 = 30s)
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"` // Alert threshold (0 = 5s)
}

// StoreConfig contains exchange log settings.
type StoreConfig struct {
	Type string        `yaml:"type"` // "memory" or "sqlite"
	Path string        `yaml:"path"` // sqlite database file
	TTL  time.Duration `yaml:"ttl"`  // Retention for exchange rows
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands ${VAR} and ${VAR:-default}.
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployments redirect log files without editing the config.
func (c *Config) applyEnvOverrides() {
	if envPath := os.Getenv("CHAT_GATEWAY_TELEMETRY_LOG"); envPath != "" {
		c.Monitoring.TelemetryPath = envPath
		c.Monitoring.TelemetryEnabled = true
	}
	if envPath := os.Getenv("CHAT_GATEWAY_STORE_PATH"); envPath != "" {
		c.Store.Path = envPath
	}
}

func (c *Config) applyDefaults() {
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultTimeout
	}
	if c.Gateway.DefaultProvider == "" {
		c.Gateway.DefaultProvider = ProviderOpenAI
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 20
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Store.TTL == 0 {
		c.Store.TTL = 24 * time.Hour
	}
	c.Providers.ApplyDefaults()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout must not be negative")
	}

	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite store")
		}
	default:
		return fmt.Errorf("unknown store.type %q (memory, sqlite)", c.Store.Type)
	}

	return c.Providers.Validate()
}
