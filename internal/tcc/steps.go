package tcc

// Step identifies one unit of generation work in the pipeline. Each step owns
// exactly one output field on the ToolConstructionContext.
type Step string

const (
	StepPlanFunctions     Step = "plan_functions"
	StepDesignState       Step = "design_state"
	StepDesignLayout      Step = "design_layout"
	StepApplyStyling      Step = "apply_styling"
	StepAssembleComponent Step = "assemble_component"
	StepValidateCode      Step = "validate_code"
	StepFinalizeTool      Step = "finalize_tool"

	// StepAwaitParallel is a sentinel value for CurrentStep while exactly one
	// of the parallel siblings has completed. It is never dispatched.
	StepAwaitParallel Step = "await_parallel"
)

// Sequence is the canonical step order. design_state and design_layout form
// the parallel group: they are dispatched together and may complete in either
// order; apply_styling depends on both.
var Sequence = []Step{
	StepPlanFunctions,
	StepDesignState,
	StepDesignLayout,
	StepApplyStyling,
	StepAssembleComponent,
	StepValidateCode,
	StepFinalizeTool,
}

// ParallelSiblings are the two steps that may execute concurrently.
var ParallelSiblings = [2]Step{StepDesignState, StepDesignLayout}

// JoinStep is the step that depends on both parallel siblings.
const JoinStep = StepApplyStyling

// dependencies maps each step to the steps whose outputs it requires.
var dependencies = map[Step][]Step{
	StepPlanFunctions:     nil,
	StepDesignState:       {StepPlanFunctions},
	StepDesignLayout:      {StepPlanFunctions},
	StepApplyStyling:      {StepDesignState, StepDesignLayout},
	StepAssembleComponent: {StepDesignState, StepDesignLayout, StepApplyStyling},
	StepValidateCode:      {StepAssembleComponent},
	StepFinalizeTool:      {StepValidateCode},
}

// agentNames maps each step to the agent that performs it.
var agentNames = map[Step]string{
	StepPlanFunctions:     "function-planner",
	StepDesignState:       "state-designer",
	StepDesignLayout:      "layout-designer",
	StepApplyStyling:      "style-designer",
	StepAssembleComponent: "component-assembler",
	StepValidateCode:      "code-validator",
	StepFinalizeTool:      "tool-finalizer",
}

// KnownStep reports whether s is a dispatchable pipeline step.
func KnownStep(s Step) bool {
	_, ok := dependencies[s]
	return ok
}

// Dependencies returns the steps whose outputs s requires.
func Dependencies(s Step) []Step {
	return dependencies[s]
}

// AgentName returns the agent responsible for s, or "" if s is not a
// dispatchable step.
func AgentName(s Step) string {
	return agentNames[s]
}

// StepForAgent returns the step performed by the named agent.
func StepForAgent(agent string) (Step, bool) {
	for s, a := range agentNames {
		if a == agent {
			return s, true
		}
	}
	return "", false
}

// IsParallelSibling reports whether s is one of the parallel group members.
func IsParallelSibling(s Step) bool {
	return s == ParallelSiblings[0] || s == ParallelSiblings[1]
}

// OtherSibling returns the parallel sibling of s. Callers must only pass a
// parallel group member.
func OtherSibling(s Step) Step {
	if s == ParallelSiblings[0] {
		return ParallelSiblings[1]
	}
	return ParallelSiblings[0]
}

// NextInSequence returns the step after s in the canonical order, or "" if s
// is the terminal step. The parallel group is a single position for
// advancement purposes: the step after either sibling is the join step.
func NextInSequence(s Step) Step {
	if IsParallelSibling(s) {
		return JoinStep
	}
	for i, step := range Sequence {
		if step != s {
			continue
		}
		if i+1 < len(Sequence) {
			return Sequence[i+1]
		}
		return ""
	}
	return ""
}

// FirstStep returns the first step of the pipeline.
func FirstStep() Step {
	return Sequence[0]
}

// StepStatus tracks the lifecycle of one step attempt. Transitions are
// monotonic: pending → in_progress → {completed | failed}. A failed status is
// terminal for the attempt but the job remains resumable from that step.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
	StatusSkipped    StepStatus = "skipped"
)

// CanTransition reports whether a step status may move from -> to.
func CanTransition(from, to StepStatus) bool {
	switch from {
	case "", StatusPending:
		return to == StatusInProgress || to == StatusSkipped
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		// A retry re-enters in_progress on a fresh attempt.
		return to == StatusInProgress
	default:
		return false
	}
}
