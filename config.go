package authclient

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/authclient/session"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by LoadConfigFromEnv.
const EnvPrefix = "AUTHCLIENT_"

// Config holds everything a Client needs at construction. Only BaseURL is required.
type Config struct {
	// BaseURL is the identity service root, e.g. "http://localhost:8888".
	BaseURL string        `env:"BASE_URL" yaml:"base_url"`
	Session SessionConfig `envPrefix:"SESSION_" yaml:"session"`
	HTTP    HTTPConfig    `envPrefix:"HTTP_" yaml:"http"`
	Audit   AuditConfig   `envPrefix:"AUDIT_" yaml:"audit"`
	Metrics MetricsConfig `envPrefix:"METRICS_" yaml:"metrics"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// Session storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// SessionConfig selects where the session slot lives.
type SessionConfig struct {
	// Key names the slot inside the backend.
	Key     string `env:"KEY" yaml:"key"`
	Backend string `env:"BACKEND" yaml:"backend"`
	// Dir is the FileStorage directory; empty means ~/.config/authclient.
	Dir         string        `env:"DIR" yaml:"dir"`
	RedisAddr   string        `env:"REDIS_ADDR" yaml:"redis_addr"`
	RedisPrefix string        `env:"REDIS_PREFIX" yaml:"redis_prefix"`
	RedisTTL    time.Duration `env:"REDIS_TTL" yaml:"redis_ttl"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig bounds calls to the identity service.
type HTTPConfig struct {
	Timeout      time.Duration `env:"TIMEOUT" yaml:"timeout"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" yaml:"max_body_bytes"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit event delivery.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED" yaml:"enabled"`
	BufferSize int  `env:"BUFFER_SIZE" yaml:"buffer_size"`
	DropIfFull bool `env:"DROP_IF_FULL" yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" yaml:"enabled"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS" yaml:"latency_histograms"`
}

// DefaultConfig returns a Config with every optional field filled in. BaseURL stays empty.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Key:         session.DefaultKey,
			Backend:     BackendMemory,
			RedisPrefix: "authclient",
		},
		HTTP: HTTPConfig{
			Timeout:      20 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("BaseURL required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("BaseURL invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("BaseURL host required")
	}

	switch c.Session.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Session.RedisTTL < 0 {
			return errors.New("Session RedisTTL must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported session backend %q", c.Session.Backend)
	}

	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP Timeout must be > 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("HTTP MaxBodyBytes must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	return nil
}

// Sanitize trims whitespace and a trailing slash from BaseURL and lower-cases the backend.
func (c *Config) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	if c.Session.Backend == "" {
		c.Session.Backend = BackendMemory
	}
}

// LoadConfigFromEnv overlays AUTHCLIENT_* environment variables on DefaultConfig. Any
// dotenv files given are loaded first; missing files are ignored, variables already in the
// environment are never overwritten.
func LoadConfigFromEnv(dotenvFiles ...string) (Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// LoadConfigFile reads a YAML config on top of DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Sanitize()
	return cfg, nil
}
