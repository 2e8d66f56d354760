package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uiforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleConfig = `
models:
  providers:
    openai:
      base_url: https://api.openai.com/v1
      api_key_env: OPENAI_API_KEY
      models: [gpt-4o, gpt-4o-mini]
    ollama:
      host: http://localhost:11434
      models: [llama3.1, qwen2.5-coder]
  agents:
    function-planner:
      primary: gpt-4o
      fallback: gpt-4o-mini
    component-assembler:
      primary: qwen2.5-coder
generation:
  backend: openai
  timeout: 90s
storage:
  driver: file
server:
  port: 9000
logging:
  level: debug
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Generation.Backend != "openai" {
		t.Errorf("Backend = %q, want openai", cfg.Generation.Backend)
	}
	if cfg.Generation.Timeout != "90s" {
		t.Errorf("Timeout = %q, want 90s", cfg.Generation.Timeout)
	}
	if cfg.Generation.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want default 2", cfg.Generation.MaxRetries)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if got := cfg.Models.Agents["function-planner"].Primary; got != "gpt-4o" {
		t.Errorf("function-planner primary = %q, want gpt-4o", got)
	}
	if got := cfg.Models.Providers["ollama"].Host; got != "http://localhost:11434" {
		t.Errorf("ollama host = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load on a missing file should fail")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "models: [this is: not valid\n")
	if _, err := Load(path); err == nil {
		t.Error("Load on invalid YAML should fail")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Default config should validate, got %v", errs)
	}
	if cfg.Generation.Backend != "ollama" {
		t.Errorf("default backend = %q, want ollama", cfg.Generation.Backend)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("default driver = %q, want file", cfg.Storage.Driver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "bad backend",
			mutate:    func(c *Config) { c.Generation.Backend = "wishful" },
			wantField: "generation.backend",
		},
		{
			name:      "bad driver",
			mutate:    func(c *Config) { c.Storage.Driver = "etcd" },
			wantField: "storage.driver",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.Storage.Driver = "postgres"
				c.Storage.DSN = ""
			},
			wantField: "storage.dsn",
		},
		{
			name: "agent missing primary",
			mutate: func(c *Config) {
				c.Models.Agents["function-planner"] = AgentModels{}
			},
			wantField: "models.agents.function-planner.primary",
		},
		{
			name: "agent references undeclared model",
			mutate: func(c *Config) {
				c.Models.Agents["function-planner"] = AgentModels{Primary: "gpt-99"}
			},
			wantField: "models.agents.function-planner.primary",
		},
		{
			name: "fallback references undeclared model",
			mutate: func(c *Config) {
				c.Models.Agents["function-planner"] = AgentModels{Primary: "gpt-4o", Fallback: "gpt-99"}
			},
			wantField: "models.agents.function-planner.fallback",
		},
		{
			name: "provider without models",
			mutate: func(c *Config) {
				c.Models.Providers["empty"] = Provider{}
			},
			wantField: "models.providers.empty.models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleConfig))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)

			errs := Validate(cfg)
			if len(errs) == 0 {
				t.Fatal("Validate found no errors")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate errors %v do not mention %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidateCleanSample(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("sample config should validate, got %v", errs)
	}
}
