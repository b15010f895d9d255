package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Planner.Scope != "https://graph.microsoft.com/.default" {
		t.Fatalf("unexpected default scope %q", cfg.Planner.Scope)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planbridge.yaml")
	yaml := `
server:
  port: "9090"
planner:
  timeout: 5s
  shared_directory_id: dir-1
  shared_client_id: app-1
  shared_secret_ref: PLANNER_SHARED_SECRET
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Planner.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.Planner.Timeout)
	}
	if cfg.Planner.SharedClientID != "app-1" {
		t.Fatalf("expected shared client app-1, got %q", cfg.Planner.SharedClientID)
	}
	// Untouched sections keep their defaults.
	if cfg.Breaker.MaxFailures != 5 {
		t.Fatalf("expected default breaker max_failures 5, got %d", cfg.Breaker.MaxFailures)
	}
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planbridge.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("PLANBRIDGE_PORT", "7070")
	t.Setenv("PLANBRIDGE_API_TIMEOUT", "2s")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env port 7070, got %q", cfg.Server.Port)
	}
	if cfg.Planner.Timeout != 2*time.Second {
		t.Fatalf("expected 2s timeout, got %v", cfg.Planner.Timeout)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }},
		{"empty authority", func(c *Config) { c.Planner.Authority = "" }},
		{"zero timeout", func(c *Config) { c.Planner.Timeout = 0 }},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
