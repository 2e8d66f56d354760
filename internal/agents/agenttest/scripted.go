// Package agenttest provides scripted in-memory generators for tests.
package agenttest

import (
	"context"
	"sync"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Call records one Generate invocation.
type Call struct {
	Step   tcc.Step
	Agent  string
	Model  string
	Prompt agents.PromptContext
}

// Scripted is a Generator whose per-step results are queued up front.
// Unscripted steps succeed with a minimal well-formed payload.
type Scripted struct {
	mu      sync.Mutex
	results map[tcc.Step][]result
	calls   []Call
}

type result struct {
	out tcc.StepOutput
	err error
}

// NewScripted creates an empty Scripted generator.
func NewScripted() *Scripted {
	return &Scripted{results: make(map[tcc.Step][]result)}
}

// Succeed queues a successful result for step.
func (s *Scripted) Succeed(step tcc.Step, out tcc.StepOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[step] = append(s.results[step], result{out: out})
}

// Fail queues an error result for step.
func (s *Scripted) Fail(step tcc.Step, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[step] = append(s.results[step], result{err: err})
}

// Calls returns a copy of every recorded invocation.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor returns how many times the given step was invoked.
func (s *Scripted) CallsFor(step tcc.Step) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Step == step {
			n++
		}
	}
	return n
}

// Generate implements agents.Generator.
func (s *Scripted) Generate(_ context.Context, req agents.Request) (tcc.StepOutput, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Step:   req.Step,
		Agent:  req.Agent,
		Model:  req.Choice.Model,
		Prompt: req.Prompt,
	})
	queue := s.results[req.Step]
	var r result
	scripted := len(queue) > 0
	if scripted {
		r = queue[0]
		s.results[req.Step] = queue[1:]
	}
	s.mu.Unlock()

	if scripted {
		return r.out, r.err
	}
	return Output(req.Step), nil
}

// Output builds a minimal well-formed payload for any step.
func Output(step tcc.Step) tcc.StepOutput {
	out := tcc.StepOutput{Step: step}
	switch step {
	case tcc.StepPlanFunctions:
		out.FunctionSignatures = &tcc.FunctionSignatureSpec{
			Signatures: []tcc.FunctionSignature{{Name: "handleCalculate", Description: "compute the result"}},
		}
	case tcc.StepDesignState:
		out.StateLogic = &tcc.StateLogicSpec{
			Variables: []tcc.StateVariable{{Name: "result", Type: "number", InitialValue: "0"}},
		}
	case tcc.StepDesignLayout:
		out.Layout = &tcc.LayoutSpec{ComponentStructure: "<div className=\"tool\"><button/></div>"}
	case tcc.StepApplyStyling:
		out.Styling = &tcc.StylingSpec{StyledCode: "<div className=\"p-4 rounded\"><button className=\"btn\"/></div>"}
	case tcc.StepAssembleComponent:
		out.AssembledCode = &tcc.AssembledComponent{ComponentCode: "const Tool = () => { const [result, setResult] = useState(0); return null; };"}
	case tcc.StepValidateCode:
		out.ValidationResult = &tcc.ValidationResult{Valid: true}
	case tcc.StepFinalizeTool:
		out.FinalProduct = &tcc.FinalProduct{ComponentCode: "const Tool = () => null;", ComponentName: "Tool"}
	}
	return out
}

// Scenario returns a context with the dependencies of step pre-filled, for
// isolated runs against a mock context.
func Scenario(step tcc.Step) *tcc.ToolConstructionContext {
	t := tcc.New(tcc.UserInput{
		Description: "A sample tool for isolated testing",
		ToolType:    "calculator",
	})
	for _, dep := range tcc.Dependencies(step) {
		fillDeps(t, dep)
	}
	return t
}

func fillDeps(t *tcc.ToolConstructionContext, step tcc.Step) {
	for _, dep := range tcc.Dependencies(step) {
		fillDeps(t, dep)
	}
	if t.HasOutput(step) {
		return
	}
	_ = t.ApplyOutput(Output(step))
	rec := t.Record(step)
	rec.Status = tcc.StatusCompleted
}
