package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it applies defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the first
// one found. Search order: ./uiforge.yaml, ~/.uiforge/config.yaml. If neither
// exists it returns Default().
func LoadDefault() (*Config, error) {
	candidates := []string{"uiforge.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".uiforge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return Default(), nil
}

// Default returns a usable zero-file configuration: local ollama backend,
// file storage, no per-agent model catalog. The model selector falls through
// to its hardcoded default for unconfigured agents and logs that it did.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills unset fields with working values.
func applyDefaults(cfg *Config) {
	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = "ollama"
	}
	if cfg.Generation.Timeout == "" {
		cfg.Generation.Timeout = "120s"
	}
	if cfg.Generation.MaxRetries == 0 {
		cfg.Generation.MaxRetries = 2
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "file"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4680
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Models.Providers == nil {
		cfg.Models.Providers = map[string]Provider{}
	}
	if cfg.Models.Agents == nil {
		cfg.Models.Agents = map[string]AgentModels{}
	}
}
