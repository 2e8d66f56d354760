// Package isolated runs a single step against a copied context, outside the
// pipeline. Nothing here advances a job or writes to the canonical store, so
// an isolated run can never corrupt run state.
package isolated

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/agents/agenttest"
	"github.com/uiforge/uiforge/internal/executor"
	"github.com/uiforge/uiforge/internal/progress"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Request describes one isolated run. Exactly one context source applies:
// an explicit Context, a JobID to copy from the store, or Mock to synthesize
// a context with canned dependency payloads.
type Request struct {
	Step             tcc.Step
	Context          *tcc.ToolConstructionContext
	JobID            string
	Mock             bool
	Mode             agents.ExecutionMode
	EditInstructions string
	ModelOverride    string
}

// Result carries the step result and the copied context the output was
// applied to. The copy is the caller's to inspect or discard.
type Result struct {
	StepResult *executor.StepResult
	Context    *tcc.ToolConstructionContext
}

// Runner executes isolated runs.
type Runner struct {
	store   tcc.Store
	exec    *executor.Executor
	emitter *progress.Emitter
	log     *logrus.Entry
}

// NewRunner creates a Runner. store may be nil when only explicit or mock
// contexts will be used.
func NewRunner(store tcc.Store, exec *executor.Executor, emitter *progress.Emitter, log *logrus.Entry) *Runner {
	return &Runner{store: store, exec: exec, emitter: emitter, log: log}
}

// Run executes req.Step once against a private copy of the source context.
// Progress events are emitted with the Isolated flag so pipeline consumers
// can tell them apart; the canonical store is never written.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if !tcc.KnownStep(req.Step) {
		return nil, fmt.Errorf("unknown step %q", req.Step)
	}
	mode := req.Mode
	if mode == "" {
		mode = agents.ModeIsolatedCreate
	}
	if mode == agents.ModePipeline {
		return nil, fmt.Errorf("isolated run cannot use mode %q", mode)
	}

	work, err := r.sourceContext(req)
	if err != nil {
		return nil, err
	}
	if mode == agents.ModeIsolatedEdit && !work.HasOutput(req.Step) {
		return nil, fmt.Errorf("edit run for %s needs an existing output on the source context", req.Step)
	}

	jobID := work.JobID
	r.emitter.Emit(progress.Event{
		JobID:    jobID,
		Step:     req.Step,
		Status:   tcc.StatusInProgress,
		Message:  fmt.Sprintf("isolated %s run of %s", mode, tcc.AgentName(req.Step)),
		Isolated: true,
	})

	res, err := r.exec.Execute(ctx, executor.Request{
		Step:             req.Step,
		Context:          work,
		Mode:             mode,
		EditInstructions: req.EditInstructions,
		ModelOverride:    req.ModelOverride,
	})
	if err != nil {
		r.emitter.Emit(progress.Event{
			JobID:    jobID,
			Step:     req.Step,
			Status:   tcc.StatusFailed,
			Message:  err.Error(),
			Isolated: true,
		})
		return nil, err
	}

	status := tcc.StatusCompleted
	msg := fmt.Sprintf("isolated %s run completed", tcc.AgentName(req.Step))
	if !res.Success {
		status = tcc.StatusFailed
		msg = res.Error
	} else if err := work.ApplyOutput(res.Output); err != nil {
		return nil, fmt.Errorf("apply isolated output: %w", err)
	}
	r.emitter.Emit(progress.Event{
		JobID:    jobID,
		Step:     req.Step,
		Status:   status,
		Message:  msg,
		Isolated: true,
	})

	return &Result{StepResult: res, Context: work}, nil
}

// sourceContext resolves the request's context source into a private copy.
func (r *Runner) sourceContext(req Request) (*tcc.ToolConstructionContext, error) {
	switch {
	case req.Context != nil:
		return req.Context.Clone()
	case req.JobID != "":
		if r.store == nil {
			return nil, fmt.Errorf("no store configured for job lookup")
		}
		t, err := r.store.Get(req.JobID)
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", req.JobID, err)
		}
		return t.Clone()
	case req.Mock:
		return agenttest.Scenario(req.Step), nil
	default:
		return nil, fmt.Errorf("no context source: set Context, JobID, or Mock")
	}
}
