package config

import "fmt"

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedBackends is the set of valid generation backend names.
var recognizedBackends = map[string]bool{
	"ollama": true,
	"openai": true,
}

// recognizedDrivers is the set of valid storage driver names.
var recognizedDrivers = map[string]bool{
	"file":     true,
	"postgres": true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if !recognizedBackends[cfg.Generation.Backend] {
		errs = append(errs, ValidationError{
			Field:   "generation.backend",
			Message: fmt.Sprintf("unrecognized backend %q", cfg.Generation.Backend),
		})
	}
	if !recognizedDrivers[cfg.Storage.Driver] {
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("unrecognized driver %q", cfg.Storage.Driver),
		})
	}
	if cfg.Storage.Driver == "postgres" && cfg.Storage.DSN == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.dsn",
			Message: "is required when driver is postgres",
		})
	}

	// Build set of known models for reference validation.
	knownModels := make(map[string]bool)
	for name, p := range cfg.Models.Providers {
		if len(p.Models) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models.providers.%s.models", name),
				Message: "provider declares no models",
			})
		}
		for _, m := range p.Models {
			if knownModels[m] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("models.providers.%s.models", name),
					Message: fmt.Sprintf("model %q is declared by more than one provider", m),
				})
			}
			knownModels[m] = true
		}
	}

	// Agent primary/fallback must reference declared models.
	for agent, am := range cfg.Models.Agents {
		if am.Primary == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models.agents.%s.primary", agent),
				Message: "is required",
			})
		} else if !knownModels[am.Primary] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models.agents.%s.primary", agent),
				Message: fmt.Sprintf("references undeclared model %q", am.Primary),
			})
		}
		if am.Fallback != "" && !knownModels[am.Fallback] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models.agents.%s.fallback", agent),
				Message: fmt.Sprintf("references undeclared model %q", am.Fallback),
			})
		}
	}

	return errs
}
