// Package config defines the configuration schema for chatrelay.
//
// JSON keys use camelCase; the file lives at ~/.chatrelay/config.json.
package config

import "time"

// ServerConfig points at the primary chatrelay backend.
type ServerConfig struct {
	BaseURL string `json:"baseUrl"`
	// Token authorizes calls to the backend. The --token flag and
	// CHATRELAY_TOKEN override it.
	Token          string `json:"token,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		BaseURL:        "http://localhost:8080",
		TimeoutSeconds: 120,
	}
}

// Timeout returns the HTTP timeout for backend and connection calls.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ConnectionConfig describes one direct model connection merged into the
// catalog alongside the backend's own models.
type ConnectionConfig struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey,omitempty"`
	// Enable defaults to true when absent from the file.
	Enable   *bool    `json:"enable,omitempty"`
	ModelIDs []string `json:"modelIds,omitempty"`
	// PrefixID namespaces the connection's model ids as "<prefix>.<id>".
	PrefixID string   `json:"prefixId,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Enabled reports whether the connection participates in catalog builds.
func (c ConnectionConfig) Enabled() bool {
	return c.Enable == nil || *c.Enable
}

// RedisConfig configures the distributed run tracker. When disabled the
// tracker is process-local.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

func defaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379"}
}

// ---- Root config -----------------------------------------------------------

// Config is the root configuration object, loaded from ~/.chatrelay/config.json.
type Config struct {
	Server      ServerConfig       `json:"server"`
	Connections []ConnectionConfig `json:"connections"`
	Redis       RedisConfig        `json:"redis"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Server:      defaultServerConfig(),
		Connections: []ConnectionConfig{},
		Redis:       defaultRedisConfig(),
	}
}
