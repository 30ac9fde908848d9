// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ember.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides, loaded from ~/.ember/config.toml. A missing file is not an
// error; defaults apply.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ember configuration.
type Config struct {
	// DefaultProvider selects the backend used at startup: "gemini" or
	// "pollinations".
	DefaultProvider string `toml:"default_provider"`

	// Gemini configuration
	Gemini GeminiConfig `toml:"gemini"`

	// Pollinations configuration
	Pollinations PollinationsConfig `toml:"pollinations"`

	// Defaults are the startup values of the per-turn feature toggles.
	Defaults FlagDefaults `toml:"defaults"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Reveal controls the typewriter reveal pacing.
	Reveal RevealConfig `toml:"reveal"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Limits configuration
	Limits LimitsConfig `toml:"limits"`
}

// GeminiConfig contains the Gemini driver settings.
type GeminiConfig struct {
	// APIKey authenticates against the Generative Language API.
	// Overridden by EMBER_GEMINI_KEY or GEMINI_API_KEY.
	APIKey string `toml:"api_key"`
	// Model is the model identifier.
	Model string `toml:"model"`
	// ThinkingBudget is the reasoning token budget sent with deep-think turns.
	ThinkingBudget int `toml:"thinking_budget"`
}

// PollinationsConfig contains the Pollinations driver settings.
type PollinationsConfig struct {
	// Endpoint of the streaming text API.
	Endpoint string `toml:"endpoint"`
	// APIKey is optional. Overridden by EMBER_POLLINATIONS_KEY.
	APIKey string `toml:"api_key"`
	// Model is the backend model identifier.
	Model string `toml:"model"`
	// Seed makes generations reproducible.
	Seed int `toml:"seed"`
}

// FlagDefaults are the initial per-turn toggle values.
type FlagDefaults struct {
	// Search starts the web-search toggle enabled.
	Search bool `toml:"search"`
	// DeepThink starts the reasoning toggle enabled.
	DeepThink bool `toml:"deep_think"`
}

// UIConfig contains user interface configuration.
type UIConfig struct {
	// Theme is the color theme: "dark" or "light"
	Theme string `toml:"theme"`
	// ShowSidebar shows the session sidebar on startup.
	ShowSidebar bool `toml:"show_sidebar"`
	// Markdown enables markdown rendering of settled replies.
	Markdown bool `toml:"markdown"`
	// SyntaxHighlight enables code block highlighting.
	SyntaxHighlight bool `toml:"syntax_highlight"`
}

// RevealConfig tunes the typewriter reveal of streaming replies.
type RevealConfig struct {
	// BaseStep is the minimum characters revealed per tick.
	BaseStep int `toml:"base_step"`
	// Jitter is the random extra characters added per tick.
	Jitter int `toml:"jitter"`
}

// StorageConfig contains session persistence settings.
type StorageConfig struct {
	// Path to the session blob (empty = ~/.ember/sessions.json).
	Path string `toml:"path"`
	// MaxSessions limits stored sessions (0 = unlimited).
	MaxSessions int `toml:"max_sessions"`
}

// LimitsConfig contains request pacing configuration.
type LimitsConfig struct {
	// RequestsPerMinute caps stream starts (0 = no pacing).
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		DefaultProvider: "gemini",
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			ThinkingBudget: 2048,
		},
		Pollinations: PollinationsConfig{
			Endpoint: "https://text.pollinations.ai/",
			Model:    "openai",
			Seed:     42,
		},
		UI: UIConfig{
			Theme:           "dark",
			ShowSidebar:     true,
			Markdown:        true,
			SyntaxHighlight: true,
		},
		Reveal: RevealConfig{
			BaseStep: 2,
			Jitter:   3,
		},
		Storage: StorageConfig{
			MaxSessions: 100,
		},
		Limits: LimitsConfig{
			RequestsPerMinute: 30,
		},
	}
}

// SetDefaults fills zero-value fields with defaults. Used after decoding a
// partial config file.
func (c *Config) SetDefaults() {
	def := Default()
	if c.DefaultProvider == "" {
		c.DefaultProvider = def.DefaultProvider
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if c.Gemini.ThinkingBudget == 0 {
		c.Gemini.ThinkingBudget = def.Gemini.ThinkingBudget
	}
	if c.Pollinations.Endpoint == "" {
		c.Pollinations.Endpoint = def.Pollinations.Endpoint
	}
	if c.Pollinations.Model == "" {
		c.Pollinations.Model = def.Pollinations.Model
	}
	if c.Pollinations.Seed == 0 {
		c.Pollinations.Seed = def.Pollinations.Seed
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Reveal.BaseStep == 0 {
		c.Reveal.BaseStep = def.Reveal.BaseStep
	}
	if c.Reveal.Jitter == 0 {
		c.Reveal.Jitter = def.Reveal.Jitter
	}
	if c.Storage.MaxSessions == 0 {
		c.Storage.MaxSessions = def.Storage.MaxSessions
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the ember configuration directory (~/.ember).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ember"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SessionsPath resolves the session blob path, honoring the config override.
func (c *Config) SessionsPath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.json"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file, applies environment overrides, fills defaults
// and validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides. Environment
// wins over the file so keys can stay out of it entirely.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("EMBER_GEMINI_KEY"); key != "" {
		c.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if key := os.Getenv("EMBER_POLLINATIONS_KEY"); key != "" {
		c.Pollinations.APIKey = key
	}
	if name := os.Getenv("EMBER_PROVIDER"); name != "" {
		c.DefaultProvider = name
	}
	if model := os.Getenv("EMBER_MODEL"); model != "" {
		switch c.DefaultProvider {
		case "pollinations":
			c.Pollinations.Model = model
		default:
			c.Gemini.Model = model
		}
	}
	if rpm := os.Getenv("EMBER_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			c.Limits.RequestsPerMinute = n
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ErrUnknownProvider indicates a default_provider value with no driver.
var ErrUnknownProvider = errors.New("unknown provider")

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.DefaultProvider {
	case "gemini", "pollinations":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.DefaultProvider)
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return fmt.Errorf("invalid theme %q (want dark or light)", c.UI.Theme)
	}
	if c.Reveal.BaseStep < 1 {
		return fmt.Errorf("reveal base_step must be at least 1, got %d", c.Reveal.BaseStep)
	}
	if c.Reveal.Jitter < 1 {
		return fmt.Errorf("reveal jitter must be at least 1, got %d", c.Reveal.Jitter)
	}
	if c.Limits.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative, got %d", c.Limits.RequestsPerMinute)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# ember configuration file")
	fmt.Fprintln(file, "# Generated by ember - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigMu   sync.RWMutex
	globalConfigOnce sync.Once
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}
