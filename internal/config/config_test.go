// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.DefaultProvider != "gemini" {
		t.Errorf("default provider = %q", cfg.DefaultProvider)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Pollinations.Endpoint != Default().Pollinations.Endpoint {
		t.Errorf("endpoint = %q", cfg.Pollinations.Endpoint)
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `default_provider = "pollinations"

[gemini]
api_key = "from-file"

[reveal]
base_step = 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.DefaultProvider != "pollinations" {
		t.Errorf("provider = %q", cfg.DefaultProvider)
	}
	if cfg.Gemini.APIKey != "from-file" {
		t.Errorf("api key = %q", cfg.Gemini.APIKey)
	}
	if cfg.Reveal.BaseStep != 5 {
		t.Errorf("base_step = %d", cfg.Reveal.BaseStep)
	}
	// Untouched sections keep their defaults.
	if cfg.Reveal.Jitter != Default().Reveal.Jitter {
		t.Errorf("jitter = %d", cfg.Reveal.Jitter)
	}
	if cfg.Gemini.Model != Default().Gemini.Model {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[gemini]\napi_key = \"from-file\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EMBER_GEMINI_KEY", "from-env")
	t.Setenv("EMBER_PROVIDER", "pollinations")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Errorf("api key = %q, want env override", cfg.Gemini.APIKey)
	}
	if cfg.DefaultProvider != "pollinations" {
		t.Errorf("provider = %q, want env override", cfg.DefaultProvider)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.DefaultProvider = "openai" }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"zero base step", func(c *Config) { c.Reveal.BaseStep = 0 }},
		{"negative rpm", func(c *Config) { c.Limits.RequestsPerMinute = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultProvider = "pollinations"
	cfg.Pollinations.Seed = 1234
	cfg.UI.ShowSidebar = false

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.DefaultProvider != "pollinations" || loaded.Pollinations.Seed != 1234 {
		t.Errorf("round trip lost values: %+v", loaded.Pollinations)
	}
	if loaded.UI.ShowSidebar {
		t.Error("show_sidebar should stay false")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("default_provider = \"gemini\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("default_provider = \"pollinations\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.DefaultProvider != "pollinations" {
			t.Errorf("reloaded provider = %q", cfg.DefaultProvider)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("default_provider = \"gemini\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	// An invalid provider must not reach the callback.
	if err := os.WriteFile(path, []byte("default_provider = \"bogus\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		t.Errorf("invalid config reached callback: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}
