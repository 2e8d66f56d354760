package tcc

import "fmt"

// UserInput is the immutable description of what is being built. It is set
// once at job creation and never mutated by the pipeline.
type UserInput struct {
	Description    string   `json:"description"`
	ToolType       string   `json:"tool_type,omitempty"`
	TargetAudience string   `json:"target_audience,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// BrainstormData is an optional enrichment payload produced upstream of the
// pipeline. The orchestrator treats it as read-only.
type BrainstormData struct {
	CoreConcept     string   `json:"core_concept,omitempty"`
	ValueProposal   string   `json:"value_proposal,omitempty"`
	KeyCalculations []string `json:"key_calculations,omitempty"`
	SuggestedInputs []string `json:"suggested_inputs,omitempty"`
}

// FunctionSignatureSpec is the output of plan_functions.
type FunctionSignatureSpec struct {
	Signatures []FunctionSignature `json:"signatures"`
	Fallback   bool                `json:"fallback,omitempty"`
}

// FunctionSignature describes one planned handler or calculation function.
type FunctionSignature struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StateLogicSpec is the output of design_state.
type StateLogicSpec struct {
	Variables []StateVariable `json:"variables"`
	Functions []StateFunction `json:"functions,omitempty"`
	Fallback  bool            `json:"fallback,omitempty"`
}

// StateVariable describes one piece of component state.
type StateVariable struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	InitialValue string `json:"initial_value,omitempty"`
	Description  string `json:"description,omitempty"`
}

// StateFunction is the state-mutation body for one planned function.
type StateFunction struct {
	Name        string `json:"name"`
	Body        string `json:"body"`
	Description string `json:"description,omitempty"`
}

// LayoutSpec is the output of design_layout.
type LayoutSpec struct {
	ComponentStructure string          `json:"component_structure"`
	Elements           []LayoutElement `json:"elements,omitempty"`
	Fallback           bool            `json:"fallback,omitempty"`
}

// LayoutElement identifies one element in the layout for later styling.
type LayoutElement struct {
	ElementID string `json:"element_id"`
	Type      string `json:"type"`
	Purpose   string `json:"purpose,omitempty"`
}

// StylingSpec is the output of apply_styling.
type StylingSpec struct {
	StyledCode  string      `json:"styled_code"`
	ColorScheme ColorScheme `json:"color_scheme,omitempty"`
	Fallback    bool        `json:"fallback,omitempty"`
}

// ColorScheme captures the palette applied by the style-designer.
type ColorScheme struct {
	Primary    string `json:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty"`
	Background string `json:"background,omitempty"`
	Text       string `json:"text,omitempty"`
}

// AssembledComponent is the output of assemble_component.
type AssembledComponent struct {
	ComponentCode string `json:"component_code"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// ValidationResult is the output of validate_code.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Issues   []ValidationIssue `json:"issues,omitempty"`
	Fallback bool              `json:"fallback,omitempty"`
}

// ValidationIssue is a single finding from code validation.
type ValidationIssue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
}

// FinalProduct is the output of finalize_tool: the finished artifact plus
// provenance so fallback-assembled jobs stay inspectable.
type FinalProduct struct {
	ComponentCode string `json:"component_code"`
	ComponentName string `json:"component_name,omitempty"`
	UsedFallbacks bool   `json:"used_fallbacks,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// StepOutput is the tagged union carried from a step executor back to the
// orchestrator. Step names the owning step; exactly one payload pointer must
// be non-nil and it must match the step.
type StepOutput struct {
	Step               Step                   `json:"step"`
	FunctionSignatures *FunctionSignatureSpec `json:"function_signatures,omitempty"`
	StateLogic         *StateLogicSpec        `json:"state_logic,omitempty"`
	Layout             *LayoutSpec            `json:"layout,omitempty"`
	Styling            *StylingSpec           `json:"styling,omitempty"`
	AssembledCode      *AssembledComponent    `json:"assembled_code,omitempty"`
	ValidationResult   *ValidationResult      `json:"validation_result,omitempty"`
	FinalProduct       *FinalProduct          `json:"final_product,omitempty"`
}

// Validate checks that exactly one payload is set and that it belongs to the
// declared step.
func (o StepOutput) Validate() error {
	set := 0
	var owner Step
	if o.FunctionSignatures != nil {
		set++
		owner = StepPlanFunctions
	}
	if o.StateLogic != nil {
		set++
		owner = StepDesignState
	}
	if o.Layout != nil {
		set++
		owner = StepDesignLayout
	}
	if o.Styling != nil {
		set++
		owner = StepApplyStyling
	}
	if o.AssembledCode != nil {
		set++
		owner = StepAssembleComponent
	}
	if o.ValidationResult != nil {
		set++
		owner = StepValidateCode
	}
	if o.FinalProduct != nil {
		set++
		owner = StepFinalizeTool
	}
	if set != 1 {
		return fmt.Errorf("step output must carry exactly one payload, got %d", set)
	}
	if owner != o.Step {
		return fmt.Errorf("step output tagged %q carries payload owned by %q", o.Step, owner)
	}
	return nil
}

// IsFallback reports whether the carried payload is an error-fallback
// placeholder.
func (o StepOutput) IsFallback() bool {
	switch {
	case o.FunctionSignatures != nil:
		return o.FunctionSignatures.Fallback
	case o.StateLogic != nil:
		return o.StateLogic.Fallback
	case o.Layout != nil:
		return o.Layout.Fallback
	case o.Styling != nil:
		return o.Styling.Fallback
	case o.AssembledCode != nil:
		return o.AssembledCode.Fallback
	case o.ValidationResult != nil:
		return o.ValidationResult.Fallback
	case o.FinalProduct != nil:
		return o.FinalProduct.Fallback
	}
	return false
}
