package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MCPWP_WP_URL", "https://blog.example/")
	t.Setenv("MCPWP_WP_USER", "admin")
	t.Setenv("MCPWP_WP_APP_PASSWORD", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8787" {
		t.Fatalf("addr default: got %q", cfg.Addr)
	}
	if cfg.WordPressURL != "https://blog.example" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.WordPressURL)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Fatalf("session timeout default: got %v", cfg.SessionTimeout)
	}
	if cfg.StreamByDefault {
		t.Fatal("streaming must default to off")
	}
	if cfg.BearerToken != "" {
		t.Fatalf("bearer token default: got %q", cfg.BearerToken)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MCPWP_ADDR", ":9000")
	t.Setenv("MCPWP_BEARER_TOKEN", "secret")
	t.Setenv("MCPWP_SESSION_TIMEOUT", "5m")
	t.Setenv("MCPWP_STREAM", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.BearerToken != "secret" || !cfg.StreamByDefault {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Fatalf("session timeout: got %v", cfg.SessionTimeout)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("MCPWP_WP_URL", "https://blog.example")
	t.Setenv("MCPWP_WP_USER", "admin")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "MCPWP_WP_APP_PASSWORD") {
		t.Fatalf("expected missing-key error, got %v", err)
	}
}

func TestLoadBadTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("MCPWP_SESSION_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected duration parse error")
	}
}
