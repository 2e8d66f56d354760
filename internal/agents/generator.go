// Package agents defines the generation collaborator: the opaque, possibly
// slow, possibly failing call that performs one agent's generation work.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uiforge/uiforge/internal/models"
	"github.com/uiforge/uiforge/internal/tcc"
)

// ExecutionMode selects how a step invocation builds its prompt context.
type ExecutionMode string

const (
	// ModePipeline is the normal orchestrated run.
	ModePipeline ExecutionMode = "pipeline"
	// ModeIsolatedCreate generates fresh output from the given context
	// without touching the canonical run.
	ModeIsolatedCreate ExecutionMode = "isolated-create"
	// ModeIsolatedEdit regenerates an existing field given free-text
	// modification instructions.
	ModeIsolatedEdit ExecutionMode = "isolated-edit"
)

// Valid reports whether m is a known mode.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModePipeline, ModeIsolatedCreate, ModeIsolatedEdit:
		return true
	}
	return false
}

// Request is one generation call.
type Request struct {
	Step   tcc.Step
	Agent  string
	Prompt PromptContext
	Choice models.Choice
}

// Generator performs one agent's generation work under a selected model.
type Generator interface {
	Generate(ctx context.Context, req Request) (tcc.StepOutput, error)
}

// GenerationError wraps a collaborator failure. Transient errors (transport,
// provider overload) are worth retrying; schema violations are not, but both
// end in the step's fallback payload once retries are exhausted.
type GenerationError struct {
	Agent     string
	Transient bool
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("agent %s: generation failed: %v", e.Agent, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// PromptContext is the structured input handed to the generation backend.
// Create and edit mode go through the same executor contract; they differ
// only here.
type PromptContext struct {
	Agent            string                        `json:"agent"`
	Mode             ExecutionMode                 `json:"mode"`
	UserInput        tcc.UserInput                 `json:"user_input"`
	Brainstorm       *tcc.BrainstormData           `json:"brainstorm,omitempty"`
	Inputs           map[tcc.Step]tcc.StepOutput   `json:"inputs,omitempty"`
	Existing         *tcc.StepOutput               `json:"existing,omitempty"`
	EditInstructions string                        `json:"edit_instructions,omitempty"`
}

// BuildPromptContext assembles the prompt context for one step invocation.
// Dependency outputs are read from the context; edit mode additionally
// carries the field's current value and the caller's instructions.
func BuildPromptContext(step tcc.Step, t *tcc.ToolConstructionContext, mode ExecutionMode, editInstructions string) PromptContext {
	pc := PromptContext{
		Agent:      tcc.AgentName(step),
		Mode:       mode,
		UserInput:  t.UserInput,
		Brainstorm: t.BrainstormData,
	}
	for _, dep := range tcc.Dependencies(step) {
		out, ok := t.OutputFor(dep)
		if !ok {
			continue
		}
		if pc.Inputs == nil {
			pc.Inputs = make(map[tcc.Step]tcc.StepOutput)
		}
		pc.Inputs[dep] = out
	}
	if mode == ModeIsolatedEdit {
		if existing, ok := t.OutputFor(step); ok {
			pc.Existing = &existing
		}
		pc.EditInstructions = editInstructions
	}
	return pc
}

// DecodePayload unmarshals a backend's JSON response into the typed payload
// owned by step and wraps it in a tagged StepOutput.
func DecodePayload(step tcc.Step, data []byte) (tcc.StepOutput, error) {
	out := tcc.StepOutput{Step: step}
	var err error
	switch step {
	case tcc.StepPlanFunctions:
		var p tcc.FunctionSignatureSpec
		err = json.Unmarshal(data, &p)
		out.FunctionSignatures = &p
	case tcc.StepDesignState:
		var p tcc.StateLogicSpec
		err = json.Unmarshal(data, &p)
		out.StateLogic = &p
	case tcc.StepDesignLayout:
		var p tcc.LayoutSpec
		err = json.Unmarshal(data, &p)
		out.Layout = &p
	case tcc.StepApplyStyling:
		var p tcc.StylingSpec
		err = json.Unmarshal(data, &p)
		out.Styling = &p
	case tcc.StepAssembleComponent:
		var p tcc.AssembledComponent
		err = json.Unmarshal(data, &p)
		out.AssembledCode = &p
	case tcc.StepValidateCode:
		var p tcc.ValidationResult
		err = json.Unmarshal(data, &p)
		out.ValidationResult = &p
	case tcc.StepFinalizeTool:
		var p tcc.FinalProduct
		err = json.Unmarshal(data, &p)
		out.FinalProduct = &p
	default:
		return tcc.StepOutput{}, fmt.Errorf("unknown step %q", step)
	}
	if err != nil {
		return tcc.StepOutput{}, fmt.Errorf("decode %s payload: %w", step, err)
	}
	return out, nil
}
