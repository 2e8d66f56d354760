package config

// Config is the top-level configuration structure parsed from uiforge YAML.
type Config struct {
	Models     ModelsConfig     `yaml:"models"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ModelsConfig is the static model catalog consumed by the model selector.
// It is read-only at request time.
type ModelsConfig struct {
	Providers map[string]Provider    `yaml:"providers"`
	Agents    map[string]AgentModels `yaml:"agents"`
}

// Provider declares a generation backend and the models it serves.
type Provider struct {
	Models    []string `yaml:"models"`
	Host      string   `yaml:"host,omitempty"`        // ollama
	BaseURL   string   `yaml:"base_url,omitempty"`    // openai-compatible
	APIKeyEnv string   `yaml:"api_key_env,omitempty"` // env var holding the key
}

// AgentModels holds the primary/fallback model identifiers for one agent.
type AgentModels struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback,omitempty"`
}

// GenerationConfig tunes the generation collaborator.
type GenerationConfig struct {
	Backend    string `yaml:"backend"` // "ollama" or "openai"
	Timeout    string `yaml:"timeout,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// StorageConfig selects the context store implementation.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "file" or "postgres"
	Dir    string `yaml:"dir,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// ServerConfig configures the observer web server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // "text" or "json"
	File   string `yaml:"file,omitempty"`   // optional rotated log file
}
