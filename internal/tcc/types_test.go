package tcc

import "testing"

func TestNextInSequence(t *testing.T) {
	tests := []struct {
		step Step
		want Step
	}{
		{StepPlanFunctions, StepDesignState},
		{StepDesignState, StepApplyStyling},
		{StepDesignLayout, StepApplyStyling},
		{StepApplyStyling, StepAssembleComponent},
		{StepAssembleComponent, StepValidateCode},
		{StepValidateCode, StepFinalizeTool},
		{StepFinalizeTool, ""},
	}
	for _, tt := range tests {
		if got := NextInSequence(tt.step); got != tt.want {
			t.Errorf("NextInSequence(%s) = %q, want %q", tt.step, got, tt.want)
		}
	}
}

func TestParallelSiblings(t *testing.T) {
	if !IsParallelSibling(StepDesignState) || !IsParallelSibling(StepDesignLayout) {
		t.Error("design_state and design_layout should be parallel siblings")
	}
	if IsParallelSibling(StepApplyStyling) {
		t.Error("apply_styling is not a parallel sibling")
	}
	if OtherSibling(StepDesignState) != StepDesignLayout {
		t.Errorf("OtherSibling(design_state) = %q", OtherSibling(StepDesignState))
	}
	if OtherSibling(StepDesignLayout) != StepDesignState {
		t.Errorf("OtherSibling(design_layout) = %q", OtherSibling(StepDesignLayout))
	}
	// The join step must depend on both siblings.
	deps := Dependencies(JoinStep)
	found := map[Step]bool{}
	for _, d := range deps {
		found[d] = true
	}
	if !found[StepDesignState] || !found[StepDesignLayout] {
		t.Errorf("JoinStep deps = %v, want both parallel siblings", deps)
	}
}

func TestAgentNameRoundTrip(t *testing.T) {
	for _, s := range Sequence {
		agent := AgentName(s)
		if agent == "" {
			t.Errorf("AgentName(%s) is empty", s)
			continue
		}
		got, ok := StepForAgent(agent)
		if !ok || got != s {
			t.Errorf("StepForAgent(%q) = %q, %v; want %q", agent, got, ok, s)
		}
	}
	if AgentName(StepAwaitParallel) != "" {
		t.Error("the await sentinel has no agent")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to StepStatus
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusSkipped, true},
		{StatusPending, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusPending, false},
		{StatusFailed, StatusInProgress, true},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusFailed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestApplyOutput(t *testing.T) {
	tc := newTestContext()

	out := StepOutput{
		Step:               StepPlanFunctions,
		FunctionSignatures: &FunctionSignatureSpec{Signatures: []FunctionSignature{{Name: "calculatePayment"}}},
	}
	if err := tc.ApplyOutput(out); err != nil {
		t.Fatalf("ApplyOutput: %v", err)
	}
	if !tc.HasOutput(StepPlanFunctions) {
		t.Error("HasOutput(plan_functions) = false after apply")
	}
	if tc.FunctionSignatures.Signatures[0].Name != "calculatePayment" {
		t.Errorf("unexpected payload: %+v", tc.FunctionSignatures)
	}
}

func TestApplyOutputRejectsMismatch(t *testing.T) {
	tc := newTestContext()

	// Payload owned by design_state but tagged plan_functions.
	out := StepOutput{
		Step:       StepPlanFunctions,
		StateLogic: &StateLogicSpec{},
	}
	if err := tc.ApplyOutput(out); err == nil {
		t.Error("ApplyOutput should reject a payload not owned by the tagged step")
	}

	// No payload at all.
	if err := tc.ApplyOutput(StepOutput{Step: StepDesignState}); err == nil {
		t.Error("ApplyOutput should reject an empty output")
	}

	// Two payloads.
	both := StepOutput{
		Step:       StepDesignState,
		StateLogic: &StateLogicSpec{},
		Layout:     &LayoutSpec{},
	}
	if err := tc.ApplyOutput(both); err == nil {
		t.Error("ApplyOutput should reject an output with two payloads")
	}
}

func TestMissingDependencies(t *testing.T) {
	tc := newTestContext()

	missing := tc.MissingDependencies(StepApplyStyling)
	if len(missing) != 2 {
		t.Fatalf("MissingDependencies = %v, want both siblings", missing)
	}

	tc.StateLogic = &StateLogicSpec{}
	missing = tc.MissingDependencies(StepApplyStyling)
	if len(missing) != 1 || missing[0] != StepDesignLayout {
		t.Errorf("MissingDependencies = %v, want [design_layout]", missing)
	}

	tc.Layout = &LayoutSpec{ComponentStructure: "<div/>"}
	if missing := tc.MissingDependencies(StepApplyStyling); missing != nil {
		t.Errorf("MissingDependencies = %v, want none", missing)
	}
}

func TestCloneIsDeep(t *testing.T) {
	tc := newTestContext()
	tc.StateLogic = &StateLogicSpec{Variables: []StateVariable{{Name: "total", Type: "number"}}}
	tc.Record(StepDesignState).Status = StatusCompleted

	clone, err := tc.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	clone.StateLogic.Variables[0].Name = "changed"
	clone.Record(StepDesignState).Status = StatusFailed
	clone.AgentModelMapping = map[string]string{"state-designer": "other"}

	if tc.StateLogic.Variables[0].Name != "total" {
		t.Error("mutating the clone's payload changed the original")
	}
	if tc.Record(StepDesignState).Status != StatusCompleted {
		t.Error("mutating the clone's steps map changed the original")
	}
	if tc.AgentModelMapping != nil {
		t.Error("mutating the clone's model mapping changed the original")
	}
}

func TestUsedFallbacks(t *testing.T) {
	tc := newTestContext()
	if tc.UsedFallbacks() {
		t.Error("fresh context should not report fallbacks")
	}
	tc.Record(StepAssembleComponent).Fallback = true
	if !tc.UsedFallbacks() {
		t.Error("UsedFallbacks = false after marking a fallback step")
	}
}
