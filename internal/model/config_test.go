package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SPRINTSYNC_API_URL", "")
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("expected default base url, got %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSec != 10 {
		t.Errorf("expected timeout 10, got %d", cfg.API.TimeoutSec)
	}
	if !cfg.Session.Persist {
		t.Error("expected session persistence enabled by default")
	}
	if cfg.Display.DefaultView != "list" {
		t.Errorf("expected list view, got %q", cfg.Display.DefaultView)
	}
}

func TestLoadConfig_ReadsFileAndSanitizes(t *testing.T) {
	t.Setenv("SPRINTSYNC_API_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `api:
  base_url: https://tasks.example.com
  timeout_sec: 3
sync:
  poll_interval_sec: -5
display:
  default_view: gallery
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://tasks.example.com" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout().Seconds() != 3 {
		t.Errorf("timeout = %v", cfg.API.Timeout())
	}
	if cfg.Sync.PollIntervalSec != 0 {
		t.Errorf("negative interval should clamp to 0, got %d", cfg.Sync.PollIntervalSec)
	}
	if cfg.Display.DefaultView != "list" {
		t.Errorf("unknown view should fall back to list, got %q", cfg.Display.DefaultView)
	}
}

func TestLoadConfig_EnvOverridesBaseURL(t *testing.T) {
	t.Setenv("SPRINTSYNC_API_URL", "http://api.internal:9000")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "http://api.internal:9000" {
		t.Errorf("expected env override, got %q", cfg.API.BaseURL)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("SPRINTSYNC_API_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.API.BaseURL = "http://127.0.0.1:8080"
	cfg.Display.DefaultView = "board"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL {
		t.Errorf("base url = %q, want %q", loaded.API.BaseURL, cfg.API.BaseURL)
	}
	if loaded.Display.DefaultView != "board" {
		t.Errorf("default view = %q, want board", loaded.Display.DefaultView)
	}
}
