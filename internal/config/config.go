// Package config handles booklyd configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/bookly/config.yaml, /etc/bookly/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "bookly", "config.yaml"))
	}

	paths = append(paths, "/etc/bookly/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all booklyd configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Database  DatabaseConfig  `yaml:"database"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Agent     AgentConfig     `yaml:"agent"`
	Session   SessionConfig   `yaml:"session"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the gateway server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// DatabaseConfig defines the SQLite store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// Seed controls whether demo catalog/customer/order data is
	// inserted when the tables are empty.
	Seed bool `yaml:"seed"`
}

// AnthropicConfig defines the primary provider settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OpenAIConfig defines the fallback provider settings.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	// MaxTurns caps provider round-trips per user message.
	MaxTurns int `yaml:"max_turns"`
	// HistoryLimit caps retained conversation entries per session.
	HistoryLimit int `yaml:"history_limit"`
	// ProviderTimeoutSec bounds a single provider call.
	ProviderTimeoutSec int `yaml:"provider_timeout_sec"`
	// ToolTimeoutSec bounds a single tool execution.
	ToolTimeoutSec int `yaml:"tool_timeout_sec"`
}

// SessionConfig defines session lifecycle settings.
type SessionConfig struct {
	// IdleTimeoutMin evicts sessions with no activity for this long.
	IdleTimeoutMin int `yaml:"idle_timeout_min"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:    ListenConfig{Port: 8080},
		Database:  DatabaseConfig{Path: "bookly.db", Seed: true},
		Anthropic: AnthropicConfig{Model: "claude-sonnet-4-20250514"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o"},
		Agent: AgentConfig{
			MaxTurns:           10,
			HistoryLimit:       20,
			ProviderTimeoutSec: 120,
			ToolTimeoutSec:     15,
		},
		Session:  SessionConfig{IdleTimeoutMin: 60},
		LogLevel: "info",
	}
}
