package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
anthropic:
  model: claude-opus-4-20250514
admission:
  default: 5
  models:
    anthropic/claude-opus-4-20250514: 1
  providers:
    anthropic: 4
lifecycle:
  task_ttl: 45m
  sweep_interval: 5s
quality:
  pass_threshold: 0.75
  max_rewrites: 3
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.Model != "claude-opus-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Admission.Default != 5 {
		t.Errorf("admission default = %d", cfg.Admission.Default)
	}
	if got := cfg.Admission.Models["anthropic/claude-opus-4-20250514"]; got != 1 {
		t.Errorf("model limit = %d", got)
	}
	if got := cfg.Admission.Providers["anthropic"]; got != 4 {
		t.Errorf("provider limit = %d", got)
	}
	if cfg.Lifecycle.TaskTTL != 45*time.Minute {
		t.Errorf("task_ttl = %v", cfg.Lifecycle.TaskTTL)
	}
	if cfg.Lifecycle.SweepInterval != 5*time.Second {
		t.Errorf("sweep_interval = %v", cfg.Lifecycle.SweepInterval)
	}
	if cfg.Quality.PassThreshold != 0.75 {
		t.Errorf("pass_threshold = %v", cfg.Quality.PassThreshold)
	}
	if cfg.Quality.MaxRewrites != 3 {
		t.Errorf("max_rewrites = %d", cfg.Quality.MaxRewrites)
	}
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "anthropic:\n  model: claude-sonnet-4-20250514\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Admission.Default != 3 {
		t.Errorf("expected default admission limit 3, got %d", cfg.Admission.Default)
	}
	if cfg.Lifecycle.TaskTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL default, got %v", cfg.Lifecycle.TaskTTL)
	}
	if cfg.Quality.PolishThreshold != 0.80 {
		t.Errorf("expected polish default 0.80, got %v", cfg.Quality.PolishThreshold)
	}
}

func TestLoadFromPathExpandsAPIKeyEnv(t *testing.T) {
	t.Setenv("DISPATCH_TEST_KEY", "sk-ant-REDACTED")
	path := writeFile(t, t.TempDir(), "config.yaml", "anthropic:\n  api_key: ${DISPATCH_TEST_KEY}\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-REDACTED" {
		t.Errorf("api_key = %q", cfg.Anthropic.APIKey)
	}
}

func TestRegistryConfigFallsBackToDefaults(t *testing.T) {
	var lc LifecycleConfig
	got := lc.RegistryConfig()

	if got.TTL != 30*time.Minute {
		t.Errorf("TTL = %v", got.TTL)
	}
	if got.SweepInterval != 2*time.Second {
		t.Errorf("SweepInterval = %v", got.SweepInterval)
	}

	lc.TaskTTL = time.Hour
	if got := lc.RegistryConfig(); got.TTL != time.Hour {
		t.Errorf("override TTL = %v", got.TTL)
	}
}

func TestGetAPIKeyPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-REDACTED")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-ant-REDACTED" {
		t.Errorf("env must win, got %q", key)
	}
}

func TestGetAPIKeyBedrockNeedsNone(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := Default()
	cfg.Anthropic.UseBedrock = true

	if _, err := GetAPIKey(cfg); err != nil {
		t.Errorf("bedrock mode must not require a key: %v", err)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAPIKey(Default()); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"sk-ant-short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...cdef"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
