// Package config handles configuration loading for dispatch.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/dispatch/internal/admission"
	"github.com/ShayCichocki/dispatch/internal/registry"
)

// Config holds all configuration for dispatch.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Admission AdmissionConfig `mapstructure:"admission"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Quality   QualityConfig   `mapstructure:"quality"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// AdmissionConfig holds concurrency limits for task admission.
type AdmissionConfig struct {
	// Default applies when neither a model nor a provider limit matches.
	Default int `mapstructure:"default"`
	// Models maps full model identifiers to their limits.
	Models map[string]int `mapstructure:"models"`
	// Providers maps provider prefixes (the part before "/") to limits.
	Providers map[string]int `mapstructure:"providers"`
}

// LifecycleConfig holds task lifecycle timing settings.
type LifecycleConfig struct {
	TaskTTL        time.Duration `mapstructure:"task_ttl"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	ReapCooldown   time.Duration `mapstructure:"reap_cooldown"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	DeliverTimeout time.Duration `mapstructure:"deliver_timeout"`
}

// QualityConfig holds quality routing settings.
type QualityConfig struct {
	PassThreshold   float64 `mapstructure:"pass_threshold"`
	PolishThreshold float64 `mapstructure:"polish_threshold"`
	MaxRewrites     int     `mapstructure:"max_rewrites"`
	// CatalogPath points at a YAML agent catalog; empty uses built-ins.
	CatalogPath string `mapstructure:"catalog_path"`
}

// Limits converts the admission section into controller limits.
func (ac AdmissionConfig) Limits() admission.Limits {
	return admission.Limits{
		Default:   ac.Default,
		Models:    ac.Models,
		Providers: ac.Providers,
	}
}

// RegistryConfig converts the lifecycle section into registry settings.
// Zero fields fall back to the registry defaults.
func (lc LifecycleConfig) RegistryConfig() registry.Config {
	cfg := registry.DefaultConfig()
	if lc.TaskTTL > 0 {
		cfg.TTL = lc.TaskTTL
	}
	if lc.SweepInterval > 0 {
		cfg.SweepInterval = lc.SweepInterval
	}
	if lc.ReapCooldown > 0 {
		cfg.ReapCooldown = lc.ReapCooldown
	}
	if lc.SettleDelay > 0 {
		cfg.SettleDelay = lc.SettleDelay
	}
	if lc.DeliverTimeout > 0 {
		cfg.DeliverTimeout = lc.DeliverTimeout
	}
	return cfg
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.dispatch.yaml in current directory or parent)
// 3. User config (~/.config/dispatch/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config overrides user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.aws_region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("admission.default", admission.DefaultLimit)

	v.SetDefault("lifecycle.task_ttl", "30m")
	v.SetDefault("lifecycle.sweep_interval", "2s")
	v.SetDefault("lifecycle.reap_cooldown", "30s")
	v.SetDefault("lifecycle.settle_delay", "300ms")
	v.SetDefault("lifecycle.deliver_timeout", "30s")

	v.SetDefault("quality.pass_threshold", 0.70)
	v.SetDefault("quality.polish_threshold", 0.80)
	v.SetDefault("quality.max_rewrites", 2)
	v.SetDefault("quality.catalog_path", "")
}

// getUserConfigDir returns the XDG config directory for dispatch.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dispatch")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "dispatch")
	}
	return filepath.Join(home, ".config", "dispatch")
}

// findProjectConfig searches for .dispatch.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".dispatch.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Admission: AdmissionConfig{
			Default: admission.DefaultLimit,
		},
		Lifecycle: LifecycleConfig{
			TaskTTL:        30 * time.Minute,
			SweepInterval:  2 * time.Second,
			ReapCooldown:   30 * time.Second,
			SettleDelay:    300 * time.Millisecond,
			DeliverTimeout: 30 * time.Second,
		},
		Quality: QualityConfig{
			PassThreshold:   0.70,
			PolishThreshold: 0.80,
			MaxRewrites:     2,
		},
	}
}
