package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("AUTH_URL", "")
	t.Setenv("EDIT_THRESHOLD", "")
	t.Setenv("EDIT_MAX", "")
	t.Setenv("EMOTE_REFRESH_INTERVAL", "")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EditThreshold != time.Minute {
		t.Errorf("EditThreshold = %v, want 1m", cfg.EditThreshold)
	}
	if cfg.EditMax != 10 {
		t.Errorf("EditMax = %d, want 10", cfg.EditMax)
	}
	if cfg.RefreshInterval != time.Hour {
		t.Errorf("RefreshInterval = %v, want 1h", cfg.RefreshInterval)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.AuthURL == "" {
		t.Errorf("AuthURL should have a default")
	}
	if err := cfg.Validate(); err == nil {
		t.Errorf("Validate() should fail without BOT_TOKEN")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "abc123")
	t.Setenv("AUTH_URL", "https://example.com/invite")
	t.Setenv("EDIT_THRESHOLD", "5")
	t.Setenv("EDIT_MAX", "25")
	t.Setenv("EMOTE_REFRESH_INTERVAL", "30m")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EditThreshold != 5*time.Minute {
		t.Errorf("EditThreshold = %v, want 5m", cfg.EditThreshold)
	}
	if cfg.EditMax != 25 {
		t.Errorf("EditMax = %d, want 25", cfg.EditMax)
	}
	if cfg.RefreshInterval != 30*time.Minute {
		t.Errorf("RefreshInterval = %v, want 30m", cfg.RefreshInterval)
	}
	if cfg.AuthURL != "https://example.com/invite" {
		t.Errorf("AuthURL = %q", cfg.AuthURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"EDIT_THRESHOLD", "soon"},
		{"EDIT_MAX", "0"},
		{"EMOTE_REFRESH_INTERVAL", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should reject %s=%q", tt.key, tt.val)
			}
		})
	}
}
