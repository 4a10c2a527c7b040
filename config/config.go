// Package config loads application settings from an optional YAML file,
// environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Agent   AgentConfig   `mapstructure:"agent"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ModelConfig selects the provider and default model.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"` // empty infers from the model id
	Default     string  `mapstructure:"default"`
	APIKey      string  `mapstructure:"api_key"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// SandboxConfig controls the command sandbox.
type SandboxConfig struct {
	WorkingDir       string `mapstructure:"working_dir"`
	TTLMinutes       int    `mapstructure:"ttl_minutes"` // 0 = no expiry
	CommandTimeoutMs int    `mapstructure:"command_timeout_ms"`
}

// AgentConfig controls the turn loop.
type AgentConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
}

// DefaultSystemPrompt instructs the model on its sandbox capabilities.
const DefaultSystemPrompt = "You are a coding assistant with access to a sandbox. " +
	"You can read and write files and run shell commands inside it. " +
	"Use the tools when the user's request requires inspecting or changing the sandbox."

// Load reads configuration. The path is optional; when empty, only defaults
// and environment variables apply. Environment variables use the SANDCHAT_
// prefix with underscores for nesting, e.g. SANDCHAT_MODEL_DEFAULT.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("sandchat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("model.provider", "")
	v.SetDefault("model.default", "claude-sonnet-4-5")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.max_tokens", 4096)
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("sandbox.working_dir", "")
	v.SetDefault("sandbox.ttl_minutes", 0)
	v.SetDefault("sandbox.command_timeout_ms", 60000)
	v.SetDefault("agent.system_prompt", DefaultSystemPrompt)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model.Default) == "" {
		return fmt.Errorf("model.default is required")
	}
	if c.Sandbox.TTLMinutes < 0 {
		return fmt.Errorf("sandbox.ttl_minutes must not be negative")
	}
	if c.Sandbox.CommandTimeoutMs <= 0 {
		return fmt.Errorf("sandbox.command_timeout_ms must be positive")
	}
	return nil
}

// expandEnvStrings resolves ${VAR} references so API keys can live in the
// environment while the file names them.
func expandEnvStrings(cfg *Config) {
	cfg.Model.Provider = os.ExpandEnv(cfg.Model.Provider)
	cfg.Model.Default = os.ExpandEnv(cfg.Model.Default)
	cfg.Model.APIKey = os.ExpandEnv(cfg.Model.APIKey)
	cfg.Sandbox.WorkingDir = os.ExpandEnv(cfg.Sandbox.WorkingDir)
	cfg.Agent.SystemPrompt = os.ExpandEnv(cfg.Agent.SystemPrompt)
}
