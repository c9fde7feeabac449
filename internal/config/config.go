package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate.
const (
	DefaultInstance   = "default"
	DefaultAddr       = ":8000"
	DefaultRedisURL   = "redis://localhost:6379/0"
	DefaultRedisImage = "redis:7-alpine"
	DefaultCookieName = "oid"
	DefaultTokenTTL   = "720h"
)

// Environment variables overriding the file.
const (
	EnvInstance = "CANTAS_INSTANCE"
	EnvRedisURL = "REDIS_URL"
	EnvSecret   = "CANTAS_SECRET"
	EnvAddr     = "CANTAS_ADDR"
)

// CantasConfig represents the top-level cantas.yml configuration
type CantasConfig struct {
	Version  string        `yaml:"version"`
	Instance string        `yaml:"instance,omitempty"`
	Server   *ServerConfig `yaml:"server,omitempty"`
	Redis    *RedisConfig  `yaml:"redis,omitempty"`
	Auth     *AuthConfig   `yaml:"auth"`
}

// ServerConfig specifies the HTTP listener
type ServerConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	DevLogin bool   `yaml:"dev_login,omitempty"` // Enables the admin/admin form login
}

// RedisConfig specifies the document store and the local container started by "cantas up"
type RedisConfig struct {
	URL       string           `yaml:"url,omitempty"`
	Image     string           `yaml:"image,omitempty"`
	Resources *ResourcesConfig `yaml:"resources,omitempty"`
}

// ResourcesConfig specifies resource limits and reservations
type ResourcesConfig struct {
	Limits       *ResourceLimits `yaml:"limits,omitempty"`
	Reservations *ResourceLimits `yaml:"reservations,omitempty"`
}

// ResourceLimits specifies CPU and memory limits
type ResourceLimits struct {
	CPUs   string `yaml:"cpus,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

// AuthConfig specifies session token signing
type AuthConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name,omitempty"`
	TokenTTL   string `yaml:"token_ttl,omitempty"` // Go duration, e.g. "720h"
}

// Default returns the configuration written by "cantas init".
func Default(instance, secret string) *CantasConfig {
	return &CantasConfig{
		Version:  "1.0",
		Instance: instance,
		Server:   &ServerConfig{Addr: DefaultAddr, DevLogin: true},
		Redis:    &RedisConfig{URL: DefaultRedisURL, Image: DefaultRedisImage},
		Auth:     &AuthConfig{Secret: secret, CookieName: DefaultCookieName, TokenTTL: DefaultTokenTTL},
	}
}

// ApplyEnv overrides file values with the environment variables that lookup reports as set.
func (c *CantasConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvInstance); ok && v != "" {
		c.Instance = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		if c.Server == nil {
			c.Server = &ServerConfig{}
		}
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		if c.Redis == nil {
			c.Redis = &RedisConfig{}
		}
		c.Redis.URL = v
	}
	if v, ok := lookup(EnvSecret); ok && v != "" {
		if c.Auth == nil {
			c.Auth = &AuthConfig{}
		}
		c.Auth.Secret = v
	}
}

// Validate performs strict validation on the configuration and applies defaults
func (c *CantasConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = DefaultInstance
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}
	if c.Redis.Image == "" {
		c.Redis.Image = DefaultRedisImage
	}

	// Required: auth.secret
	if c.Auth == nil || c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required (or set %s)", EnvSecret)
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = DefaultCookieName
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	ttl, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth.token_ttl: invalid duration %q: %w", c.Auth.TokenTTL, err)
	}
	if ttl <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}

	return nil
}

// TokenTTL returns the session token lifetime. Call after Validate.
func (c *CantasConfig) TokenTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Auth.TokenTTL)
	return ttl
}

// Load reads cantas.yml from the specified path, applies environment
// overrides and validates the result
func Load(path string) (*CantasConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	config.ApplyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Parse decodes a cantas.yml document without validating it.
func Parse(data []byte) (*CantasConfig, error) {
	var config CantasConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &config, nil
}

// Marshal encodes the configuration as YAML.
func (c *CantasConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
