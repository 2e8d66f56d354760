package executor

import "github.com/uiforge/uiforge/internal/tcc"

// Fallback payloads are minimal, clearly tagged placeholders substituted when
// generation fails irrecoverably, so the run reaches completion instead of
// halting on a single bad generation. validate_code has no safe fallback: a
// fabricated verdict would be silent success, so that step fails instead.

const fallbackNotice = "/* error fallback: generation failed, placeholder substituted */"

// FallbackOutput returns the fallback payload for a step, or false when the
// step defines none.
func FallbackOutput(step tcc.Step) (tcc.StepOutput, bool) {
	out := tcc.StepOutput{Step: step}
	switch step {
	case tcc.StepPlanFunctions:
		out.FunctionSignatures = &tcc.FunctionSignatureSpec{
			Signatures: []tcc.FunctionSignature{
				{Name: "handleSubmit", Description: "placeholder handler"},
			},
			Fallback: true,
		}
	case tcc.StepDesignState:
		out.StateLogic = &tcc.StateLogicSpec{
			Variables: []tcc.StateVariable{
				{Name: "value", Type: "string", InitialValue: "''", Description: "placeholder state"},
			},
			Fallback: true,
		}
	case tcc.StepDesignLayout:
		out.Layout = &tcc.LayoutSpec{
			ComponentStructure: fallbackNotice + "\n<div data-fallback=\"true\"><p>Generation unavailable</p></div>",
			Fallback:           true,
		}
	case tcc.StepApplyStyling:
		out.Styling = &tcc.StylingSpec{
			StyledCode: fallbackNotice + "\n<div className=\"p-4\" data-fallback=\"true\"><p>Generation unavailable</p></div>",
			Fallback:   true,
		}
	case tcc.StepAssembleComponent:
		out.AssembledCode = &tcc.AssembledComponent{
			ComponentCode: fallbackNotice + "\nconst Tool = () => <div data-fallback=\"true\">Generation unavailable</div>;",
			Fallback:      true,
		}
	case tcc.StepFinalizeTool:
		out.FinalProduct = &tcc.FinalProduct{
			ComponentCode: fallbackNotice + "\nconst Tool = () => <div data-fallback=\"true\">Generation unavailable</div>;",
			ComponentName: "Tool",
			Fallback:      true,
		}
	default:
		return tcc.StepOutput{}, false
	}
	return out, true
}
