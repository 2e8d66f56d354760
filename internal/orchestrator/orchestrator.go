// Package orchestrator owns the step sequence and transition rules,
// including the parallel-branch join. Computing the next step and running it
// are separate operations: the orchestrator decides, the dispatcher runs.
package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/executor"
	"github.com/uiforge/uiforge/internal/progress"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Action describes what an orchestrator operation did.
type Action string

const (
	// ActionAdvanced: the job moved to the next step.
	ActionAdvanced Action = "advanced"
	// ActionAwaitingSibling: one parallel sibling finished, the other has
	// not. This is the expected join state, not an error.
	ActionAwaitingSibling Action = "awaiting_sibling"
	// ActionCompleted: the terminal step finished; the job is done.
	ActionCompleted Action = "completed"
	// ActionHalted: the step failed and the job stops at it, resumable.
	ActionHalted Action = "halted"
	// ActionPaused: the result was merged but the job is paused, so
	// nothing is dispatched.
	ActionPaused Action = "paused"
	// ActionDuplicate: a redundant completion for a step that already
	// completed; state is untouched.
	ActionDuplicate Action = "duplicate"
)

// Decision is the outcome of one orchestrator operation. Dispatch lists the
// steps that should now run; the caller hands them to the trigger
// collaborator, the orchestrator never runs them itself.
type Decision struct {
	JobID    string     `json:"job_id"`
	Action   Action     `json:"action"`
	Step     tcc.Step   `json:"step,omitempty"`
	Next     tcc.Step   `json:"next,omitempty"`
	Dispatch []tcc.Step `json:"dispatch,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// errAlreadyCompleted aborts a store update when a redundant completion
// arrives; the abort leaves the persisted context byte-identical.
var errAlreadyCompleted = errors.New("step already completed")

// Orchestrator applies transitions to persisted contexts. All mutation goes
// through the store's read-modify-write so a redundant call or a concurrent
// sibling completion can never lose an update.
type Orchestrator struct {
	store   tcc.Store
	emitter *progress.Emitter
	log     *logrus.Entry
}

// New creates an Orchestrator.
func New(store tcc.Store, emitter *progress.Emitter, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{store: store, emitter: emitter, log: log}
}

// Eligible returns the steps that may run now for the given context: the
// current step, or whichever parallel siblings are still outstanding.
func Eligible(t *tcc.ToolConstructionContext) []tcc.Step {
	if t.JobStatus == tcc.JobCompleted || t.JobStatus == tcc.JobPaused {
		return nil
	}
	cur := t.CurrentStep
	if cur == tcc.StepAwaitParallel || tcc.IsParallelSibling(cur) {
		var out []tcc.Step
		for _, s := range tcc.ParallelSiblings {
			if !t.StepCompleted(s) {
				out = append(out, s)
			}
		}
		return out
	}
	if cur == "" || !tcc.KnownStep(cur) {
		return nil
	}
	return []tcc.Step{cur}
}

// MarkStarted records a step entering in_progress and emits the started
// event. It enforces monotonic status transitions.
func (o *Orchestrator) MarkStarted(jobID string, step tcc.Step) error {
	t, err := o.store.Update(jobID, func(t *tcc.ToolConstructionContext) error {
		rec := t.Record(step)
		if !tcc.CanTransition(rec.Status, tcc.StatusInProgress) {
			return fmt.Errorf("step %s cannot start from status %q", step, rec.Status)
		}
		rec.Status = tcc.StatusInProgress
		rec.StartedAt = time.Now().UTC().Format(time.RFC3339)
		rec.Attempts++
		if t.JobStatus == tcc.JobPending || t.JobStatus == tcc.JobHalted {
			t.JobStatus = tcc.JobRunning
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.emitter.Emit(progress.Event{
		JobID:    jobID,
		Step:     step,
		Status:   tcc.StatusInProgress,
		Message:  fmt.Sprintf("%s started", tcc.AgentName(step)),
		Snapshot: t,
	})
	return nil
}

// Advance merges a completed step's result, updates step status, and
// computes what runs next. It is idempotent: a redundant call for an
// already-completed step mutates nothing and dispatches nothing, so a retry
// racing a slow original can never double-advance past the join.
//
// An unsuccessful result (a failure with no safe fallback) is routed to the
// same halt path as Fail.
func (o *Orchestrator) Advance(jobID string, step tcc.Step, result *executor.StepResult) (*Decision, error) {
	if !result.Success {
		return o.halt(jobID, step, result.Error)
	}

	decision := &Decision{JobID: jobID, Step: step}
	t, err := o.store.Update(jobID, func(t *tcc.ToolConstructionContext) error {
		rec := t.Record(step)
		if rec.Status == tcc.StatusCompleted {
			return errAlreadyCompleted
		}
		if err := t.ApplyOutput(result.Output); err != nil {
			return fmt.Errorf("merge %s output: %w", step, err)
		}
		rec.Status = tcc.StatusCompleted
		rec.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		rec.Fallback = result.Fallback
		rec.Model = result.Model.Model
		rec.Error = result.Error

		// The finished artifact records its own provenance, so consumers
		// holding only the FinalProduct can still see degraded assembly.
		if step == tcc.StepFinalizeTool && t.FinalProduct != nil {
			t.FinalProduct.UsedFallbacks = t.UsedFallbacks()
		}

		o.computeNext(t, step, decision)
		return nil
	})
	if errors.Is(err, errAlreadyCompleted) {
		decision.Action = ActionDuplicate
		decision.Message = fmt.Sprintf("step %s already completed", step)
		return decision, nil
	}
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s completed", tcc.AgentName(step))
	if result.Fallback {
		msg += " (error fallback substituted)"
	}
	o.emitter.Emit(progress.Event{
		JobID:    jobID,
		Step:     step,
		Status:   tcc.StatusCompleted,
		Message:  msg,
		Snapshot: t,
	})

	// A pause requested mid-flight still merges the result, then holds.
	if t.JobStatus == tcc.JobPaused {
		decision.Action = ActionPaused
		decision.Dispatch = nil
	}
	return decision, nil
}

// computeNext applies the transition rules inside the store update, reading
// the latest persisted Steps map. Runs under the store's write lock.
func (o *Orchestrator) computeNext(t *tcc.ToolConstructionContext, step tcc.Step, decision *Decision) {
	if tcc.IsParallelSibling(step) {
		sibling := tcc.OtherSibling(step)
		if t.StepCompleted(sibling) {
			// Both branches done: the join is satisfied.
			t.CurrentStep = tcc.JoinStep
			decision.Action = ActionAdvanced
			decision.Next = tcc.JoinStep
			decision.Dispatch = []tcc.Step{tcc.JoinStep}
			return
		}
		t.CurrentStep = tcc.StepAwaitParallel
		decision.Action = ActionAwaitingSibling
		decision.Next = tcc.StepAwaitParallel
		return
	}

	next := tcc.NextInSequence(step)
	if next == "" {
		t.CurrentStep = ""
		t.JobStatus = tcc.JobCompleted
		decision.Action = ActionCompleted
		return
	}
	t.CurrentStep = next
	decision.Action = ActionAdvanced
	decision.Next = next
	if tcc.IsParallelSibling(next) {
		// Entering the parallel group dispatches both branches.
		decision.Dispatch = []tcc.Step{tcc.ParallelSiblings[0], tcc.ParallelSiblings[1]}
	} else {
		decision.Dispatch = []tcc.Step{next}
	}
}

// Fail marks a step failed and halts the job at it. CurrentStep does not
// advance, so the job stays resumable from the failed step.
func (o *Orchestrator) Fail(jobID string, step tcc.Step, stepErr error) (*Decision, error) {
	msg := ""
	if stepErr != nil {
		msg = stepErr.Error()
	}
	return o.halt(jobID, step, msg)
}

func (o *Orchestrator) halt(jobID string, step tcc.Step, msg string) (*Decision, error) {
	t, err := o.store.Update(jobID, func(t *tcc.ToolConstructionContext) error {
		rec := t.Record(step)
		if !tcc.CanTransition(rec.Status, tcc.StatusFailed) {
			return fmt.Errorf("step %s is %s, cannot fail", step, rec.Status)
		}
		rec.Status = tcc.StatusFailed
		rec.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		rec.Error = msg
		t.JobStatus = tcc.JobHalted
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{"job": jobID, "step": step}).
		WithField("error", msg).Warn("step failed, job halted")
	o.emitter.Emit(progress.Event{
		JobID:    jobID,
		Step:     step,
		Status:   tcc.StatusFailed,
		Message:  msg,
		Snapshot: t,
	})
	return &Decision{JobID: jobID, Action: ActionHalted, Step: step, Message: msg}, nil
}

// Resume re-reads the current step and returns it for dispatch; used after a
// pause or to retry a halted job. The caller triggers the returned steps.
func (o *Orchestrator) Resume(jobID string) (*Decision, error) {
	t, err := o.store.Update(jobID, func(t *tcc.ToolConstructionContext) error {
		switch t.JobStatus {
		case tcc.JobCompleted:
			return fmt.Errorf("job %s is already completed", jobID)
		case tcc.JobPaused, tcc.JobHalted:
			t.JobStatus = tcc.JobRunning
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatch := Eligible(t)
	if len(dispatch) == 0 {
		return &Decision{JobID: jobID, Action: ActionCompleted, Message: "nothing to run"}, nil
	}
	return &Decision{
		JobID:    jobID,
		Action:   ActionAdvanced,
		Next:     t.CurrentStep,
		Dispatch: dispatch,
	}, nil
}

// Pause stops further auto-advance. An in-flight step is allowed to finish
// and its result is still merged; the orchestrator then holds instead of
// dispatching.
func (o *Orchestrator) Pause(jobID string) error {
	_, err := o.store.Update(jobID, func(t *tcc.ToolConstructionContext) error {
		if t.JobStatus == tcc.JobCompleted {
			return fmt.Errorf("job %s is already completed", jobID)
		}
		t.JobStatus = tcc.JobPaused
		return nil
	})
	return err
}
