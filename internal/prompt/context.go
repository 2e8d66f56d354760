package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uiforge/uiforge/internal/agents"
)

// ForContext renders the instruction text for one generation call using the
// agent's template. Overrides in the default override dir apply.
func ForContext(pc agents.PromptContext) (string, error) {
	return ForContextDir(pc, DefaultOverrideDir())
}

// ForContextDir is ForContext with an explicit override directory, exposed
// for tests.
func ForContextDir(pc agents.PromptContext, overrideDir string) (string, error) {
	tmpl, err := templateFor(pc.Agent, overrideDir)
	if err != nil {
		return "", err
	}
	vars, err := varsFor(pc)
	if err != nil {
		return "", err
	}
	return Render(tmpl, vars)
}

// varsFor flattens a prompt context into template variables. Structured
// upstream outputs travel as indented JSON so templates stay readable.
func varsFor(pc agents.PromptContext) (Vars, error) {
	vars := Vars{
		"agent":             pc.Agent,
		"mode":              string(pc.Mode),
		"description":       pc.UserInput.Description,
		"tool_type":         pc.UserInput.ToolType,
		"audience":          pc.UserInput.TargetAudience,
		"tags":              strings.Join(pc.UserInput.Tags, ", "),
		"brainstorm_json":   "",
		"inputs_json":       "",
		"existing_json":     "",
		"edit_instructions": pc.EditInstructions,
	}

	if pc.Brainstorm != nil {
		data, err := json.MarshalIndent(pc.Brainstorm, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal brainstorm: %w", err)
		}
		vars["brainstorm_json"] = string(data)
	}
	if len(pc.Inputs) > 0 {
		data, err := json.MarshalIndent(pc.Inputs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal upstream outputs: %w", err)
		}
		vars["inputs_json"] = string(data)
	}
	if pc.Existing != nil {
		data, err := json.MarshalIndent(pc.Existing, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal existing output: %w", err)
		}
		vars["existing_json"] = string(data)
	}
	return vars, nil
}
