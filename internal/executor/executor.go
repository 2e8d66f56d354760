// Package executor wraps one agent's unit of work: precondition checks,
// model selection, the generation call, post-processing, and the
// degrade-gracefully fallback policy.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/models"
	"github.com/uiforge/uiforge/internal/sanitize"
	"github.com/uiforge/uiforge/internal/tcc"
	"github.com/uiforge/uiforge/internal/validate"
)

// PreconditionError reports a step invoked before its dependencies are
// present on the context. It is non-retryable without repairing run state
// and is distinct from an execution failure.
type PreconditionError struct {
	Step    tcc.Step
	Missing []tcc.Step
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies %v", e.Step, e.Missing)
}

// Request describes one step invocation.
type Request struct {
	Step             tcc.Step
	Context          *tcc.ToolConstructionContext
	ModelOverride    string
	Mode             agents.ExecutionMode
	EditInstructions string
}

// StepResult is the executor's status result: success with a payload, a
// fallback-substituted success, or a failure.
type StepResult struct {
	Step     tcc.Step       `json:"step"`
	Success  bool           `json:"success"`
	Fallback bool           `json:"fallback,omitempty"`
	Output   tcc.StepOutput `json:"output,omitempty"`
	Model    models.Choice  `json:"model"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
	// Sanitized lists the post-processing passes that rewrote the artifact.
	Sanitized []string `json:"sanitized,omitempty"`
}

// Executor runs steps. It never writes to the context store; the
// orchestrator owns the merge so transition logic stays in one place.
type Executor struct {
	selector    *models.Selector
	gen         agents.Generator
	log         *logrus.Entry
	maxRetries  int
	callTimeout time.Duration
}

// New creates an Executor.
func New(selector *models.Selector, gen agents.Generator, log *logrus.Entry) *Executor {
	return &Executor{
		selector:    selector,
		gen:         gen,
		log:         log,
		maxRetries:  2,
		callTimeout: 2 * time.Minute,
	}
}

// SetMaxRetries overrides the generation retry budget.
func (e *Executor) SetMaxRetries(n int) {
	e.maxRetries = n
}

// SetCallTimeout overrides the per-call generation timeout.
func (e *Executor) SetCallTimeout(d time.Duration) {
	e.callTimeout = d
}

// Execute runs one step against the given context. A PreconditionError is
// returned as an error; generation failures are folded into the result per
// the fallback policy.
func (e *Executor) Execute(ctx context.Context, req Request) (*StepResult, error) {
	if !tcc.KnownStep(req.Step) {
		return nil, fmt.Errorf("unknown step %q", req.Step)
	}
	mode := req.Mode
	if mode == "" {
		mode = agents.ModePipeline
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown execution mode %q", mode)
	}

	if missing := req.Context.MissingDependencies(req.Step); len(missing) > 0 {
		return nil, &PreconditionError{Step: req.Step, Missing: missing}
	}

	agent := tcc.AgentName(req.Step)
	choice := e.selector.Select(agent, req.ModelOverride, req.Context)
	log := e.log.WithFields(logrus.Fields{
		"job":   req.Context.JobID,
		"step":  req.Step,
		"agent": agent,
		"model": choice.Model,
	})

	start := time.Now()
	result := &StepResult{Step: req.Step, Model: choice}

	out, genErr := e.generate(ctx, agents.Request{
		Step:   req.Step,
		Agent:  agent,
		Prompt: agents.BuildPromptContext(req.Step, req.Context, mode, req.EditInstructions),
		Choice: choice,
	}, log)
	result.Duration = time.Since(start)

	if genErr != nil {
		fallbackOut, ok := FallbackOutput(req.Step)
		if !ok {
			log.WithError(genErr).Error("generation failed with no safe fallback")
			result.Error = genErr.Error()
			return result, nil
		}
		log.WithError(genErr).Warn("generation failed, substituting fallback payload")
		result.Success = true
		result.Fallback = true
		result.Output = fallbackOut
		result.Error = genErr.Error()
		return result, nil
	}

	out = e.sanitizeOutput(out, log, result)
	if req.Step == tcc.StepValidateCode {
		out = e.crossCheckValidation(out, req.Context, log)
	}
	result.Success = true
	result.Output = out
	return result, nil
}

// crossCheckValidation merges static check findings over the assembled code
// into the model's verdict. The model reviews; the checks are the floor. A
// verdict of valid cannot stand while a static check reports an error.
func (e *Executor) crossCheckValidation(out tcc.StepOutput, t *tcc.ToolConstructionContext, log *logrus.Entry) tcc.StepOutput {
	if out.ValidationResult == nil || t.AssembledCode == nil {
		return out
	}
	res := validate.Component(t.AssembledCode.ComponentCode)
	out.ValidationResult.Issues = append(out.ValidationResult.Issues, res.Issues()...)
	if !res.Passed {
		log.WithField("summary", res.Summary()).Warn("static checks contradict model verdict")
		out.ValidationResult.Valid = false
	}
	return out
}

// generate calls the collaborator, retrying up to the budget. Context
// cancellation is respected between attempts.
func (e *Executor) generate(ctx context.Context, req agents.Request, log *logrus.Entry) (tcc.StepOutput, error) {
	var lastErr error
	rerolled := false
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			log.WithField("attempt", attempt+1).Info("retrying generation")
		}
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		out, err := e.gen.Generate(callCtx, req)
		cancel()
		if err == nil {
			if verr := out.Validate(); verr != nil {
				lastErr = verr
				continue
			}
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return tcc.StepOutput{}, fmt.Errorf("generation canceled: %w", ctx.Err())
		}
		var genErr *agents.GenerationError
		if errors.As(err, &genErr) && !genErr.Transient {
			// Schema and provider-rejection errors rarely improve with a
			// bare retry. One re-roll is allowed, then the fallback policy
			// takes over; the full budget is reserved for transient errors.
			if rerolled {
				break
			}
			rerolled = true
		}
	}
	return tcc.StepOutput{}, lastErr
}

// sanitizeOutput applies the code normalization passes to artifacts that
// carry generated component code.
func (e *Executor) sanitizeOutput(out tcc.StepOutput, log *logrus.Entry, result *StepResult) tcc.StepOutput {
	apply := func(code string) string {
		r := sanitize.Component(code, log)
		if r.Changed() {
			result.Sanitized = append(result.Sanitized, r.Applied...)
		}
		return r.Code
	}

	switch {
	case out.Styling != nil && out.Styling.StyledCode != "":
		out.Styling.StyledCode = apply(out.Styling.StyledCode)
	case out.AssembledCode != nil && out.AssembledCode.ComponentCode != "":
		out.AssembledCode.ComponentCode = apply(out.AssembledCode.ComponentCode)
	case out.FinalProduct != nil && out.FinalProduct.ComponentCode != "":
		out.FinalProduct.ComponentCode = apply(out.FinalProduct.ComponentCode)
	}
	return out
}
