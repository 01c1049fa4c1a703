// Package config resolves the engine's on-disk layout (database path,
// transcript-cursor state directory) and the optional model/provider
// selection for the LLM Gateway, grounded on the teacher's own
// HomeDir/Load idiom: an env-var override, a sensible default under the
// user's home directory, and an optional YAML file layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the engine's resolved runtime configuration.
type Config struct {
	// DBPath is the SQLite database path, per spec.md §6: defaults to
	// ${HOME}/.lcm/lcm.db, overridable via LCM_DB_PATH.
	DBPath string `yaml:"-"`
	// StateDir holds per-session transcript cursor files
	// (${HOME}/.lcm/state).
	StateDir string `yaml:"-"`

	// Gateway selects and authenticates the LLM backend. All fields are
	// optional; with no API key for the selected provider the Gateway runs
	// in its no-model mode, where every call returns an error (callers
	// such as Escalation then fall through to their non-LLM backstop).
	Provider                 string `yaml:"provider"`
	Model                    string `yaml:"model"`
	APIKey                   string `yaml:"api_key"`
	OpenAICompatibleProvider string `yaml:"openai_compatible_provider"`
	OpenAICompatibleBaseURL  string `yaml:"openai_compatible_base_url"`
}

// HomeDir returns the engine's data directory: ${HOME}/.lcm, falling back
// to the current directory if the user's home cannot be determined.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".lcm")
}

// Load resolves Config from defaults, an optional ${lcmHome}/config.yaml,
// and environment variable overrides, creating lcmHome and its state
// subdirectory if they don't yet exist.
func Load() (Config, error) {
	lcmHome := HomeDir()
	if err := os.MkdirAll(lcmHome, 0o755); err != nil {
		return Config{}, fmt.Errorf("config: create lcm home: %w", err)
	}

	cfg := Config{
		DBPath:   filepath.Join(lcmHome, "lcm.db"),
		StateDir: filepath.Join(lcmHome, "state"),
	}

	if data, err := os.ReadFile(filepath.Join(lcmHome, "config.yaml")); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse config.yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: read config.yaml: %w", err)
	}

	if override := os.Getenv("LCM_DB_PATH"); override != "" {
		cfg.DBPath = override
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Provider == "" {
		cfg.Provider = "anthropic"
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Provider == "" {
		cfg.Provider = "openai"
		cfg.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Provider == "" {
		cfg.Provider = "google"
		cfg.APIKey = v
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("config: create state dir: %w", err)
	}
	return cfg, nil
}
