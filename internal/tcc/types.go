package tcc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the overall lifecycle of one job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobHalted    JobStatus = "halted"
	JobCompleted JobStatus = "completed"
)

// StepRecord is the authoritative progress record for one step. The join and
// resumption logic consult the Steps map, never in-memory copies.
type StepRecord struct {
	Status      StepStatus `json:"status"`
	StartedAt   string     `json:"started_at,omitempty"`
	CompletedAt string     `json:"completed_at,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	Model       string     `json:"model,omitempty"`
	Error       string     `json:"error,omitempty"`
	Fallback    bool       `json:"fallback,omitempty"`
}

// ToolConstructionContext is the single source of truth for one job: the
// shared mutable record threaded through the pipeline.
type ToolConstructionContext struct {
	JobID          string          `json:"job_id"`
	UserInput      UserInput       `json:"user_input"`
	BrainstormData *BrainstormData `json:"brainstorm_data,omitempty"`

	// Per-step output fields. Each is nil until its owning step completes.
	FunctionSignatures *FunctionSignatureSpec `json:"function_signatures,omitempty"`
	StateLogic         *StateLogicSpec        `json:"state_logic,omitempty"`
	Layout             *LayoutSpec            `json:"layout,omitempty"`
	Styling            *StylingSpec           `json:"styling,omitempty"`
	AssembledCode      *AssembledComponent    `json:"assembled_code,omitempty"`
	ValidationResult   *ValidationResult      `json:"validation_result,omitempty"`
	FinalProduct       *FinalProduct          `json:"final_product,omitempty"`

	Steps             map[Step]*StepRecord `json:"steps"`
	CurrentStep       Step                 `json:"current_step"`
	AgentModelMapping map[string]string    `json:"agent_model_mapping,omitempty"`
	JobStatus         JobStatus            `json:"job_status"`

	// Version counts persisted mutations; stores use it for compare-and-set.
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// New creates a fresh context for a job, with every step pending and the
// first step current.
func New(input UserInput) *ToolConstructionContext {
	now := time.Now().UTC().Format(time.RFC3339)
	t := &ToolConstructionContext{
		JobID:       uuid.NewString(),
		UserInput:   input,
		Steps:       make(map[Step]*StepRecord, len(Sequence)),
		CurrentStep: FirstStep(),
		JobStatus:   JobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, s := range Sequence {
		t.Steps[s] = &StepRecord{Status: StatusPending}
	}
	return t
}

// Record returns the step record for s, creating a pending one if absent.
func (t *ToolConstructionContext) Record(s Step) *StepRecord {
	if t.Steps == nil {
		t.Steps = make(map[Step]*StepRecord)
	}
	r, ok := t.Steps[s]
	if !ok {
		r = &StepRecord{Status: StatusPending}
		t.Steps[s] = r
	}
	return r
}

// StepCompleted reports whether s has completed according to the Steps map.
func (t *ToolConstructionContext) StepCompleted(s Step) bool {
	r, ok := t.Steps[s]
	return ok && r.Status == StatusCompleted
}

// HasOutput reports whether the output field owned by s is present.
func (t *ToolConstructionContext) HasOutput(s Step) bool {
	switch s {
	case StepPlanFunctions:
		return t.FunctionSignatures != nil
	case StepDesignState:
		return t.StateLogic != nil
	case StepDesignLayout:
		return t.Layout != nil
	case StepApplyStyling:
		return t.Styling != nil
	case StepAssembleComponent:
		return t.AssembledCode != nil
	case StepValidateCode:
		return t.ValidationResult != nil
	case StepFinalizeTool:
		return t.FinalProduct != nil
	}
	return false
}

// MissingDependencies returns the dependencies of s whose outputs are not yet
// present on the context.
func (t *ToolConstructionContext) MissingDependencies(s Step) []Step {
	var missing []Step
	for _, dep := range Dependencies(s) {
		if !t.HasOutput(dep) {
			missing = append(missing, dep)
		}
	}
	return missing
}

// ApplyOutput merges a step's output into the field it owns. It rejects
// malformed outputs; it never touches any other field.
func (t *ToolConstructionContext) ApplyOutput(out StepOutput) error {
	if err := out.Validate(); err != nil {
		return err
	}
	switch out.Step {
	case StepPlanFunctions:
		t.FunctionSignatures = out.FunctionSignatures
	case StepDesignState:
		t.StateLogic = out.StateLogic
	case StepDesignLayout:
		t.Layout = out.Layout
	case StepApplyStyling:
		t.Styling = out.Styling
	case StepAssembleComponent:
		t.AssembledCode = out.AssembledCode
	case StepValidateCode:
		t.ValidationResult = out.ValidationResult
	case StepFinalizeTool:
		t.FinalProduct = out.FinalProduct
	default:
		return fmt.Errorf("unknown step %q", out.Step)
	}
	return nil
}

// OutputFor returns the stored output field for s as a tagged StepOutput, or
// false if the field is absent.
func (t *ToolConstructionContext) OutputFor(s Step) (StepOutput, bool) {
	out := StepOutput{Step: s}
	switch s {
	case StepPlanFunctions:
		out.FunctionSignatures = t.FunctionSignatures
	case StepDesignState:
		out.StateLogic = t.StateLogic
	case StepDesignLayout:
		out.Layout = t.Layout
	case StepApplyStyling:
		out.Styling = t.Styling
	case StepAssembleComponent:
		out.AssembledCode = t.AssembledCode
	case StepValidateCode:
		out.ValidationResult = t.ValidationResult
	case StepFinalizeTool:
		out.FinalProduct = t.FinalProduct
	}
	if out.Validate() != nil {
		return StepOutput{}, false
	}
	return out, true
}

// UsedFallbacks reports whether any completed step substituted fallback
// output.
func (t *ToolConstructionContext) UsedFallbacks() bool {
	for _, r := range t.Steps {
		if r.Fallback {
			return true
		}
	}
	return false
}

// Clone returns a deep copy via a JSON round-trip. Isolated runs operate on
// clones so the canonical context is never mutated.
func (t *ToolConstructionContext) Clone() (*ToolConstructionContext, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	var out ToolConstructionContext
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return &out, nil
}
