// Package controller is the single entry surface for job operations. The CLI
// and the web server both go through it; nothing else touches the
// orchestrator or the dispatcher directly.
package controller

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/dispatch"
	"github.com/uiforge/uiforge/internal/executor"
	"github.com/uiforge/uiforge/internal/isolated"
	"github.com/uiforge/uiforge/internal/orchestrator"
	"github.com/uiforge/uiforge/internal/progress"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Options carries the controller's dependencies.
type Options struct {
	Store    tcc.Store
	Executor *executor.Executor
	Emitter  *progress.Emitter
	Log      *logrus.Entry
	// Workers is the dispatch pool size; it must be at least 2 so both
	// parallel branches can run concurrently.
	Workers   int
	QueueSize int
}

// Controller coordinates job lifecycle operations.
type Controller struct {
	store   tcc.Store
	exec    *executor.Executor
	orch    *orchestrator.Orchestrator
	disp    *dispatch.Dispatcher
	runner  *isolated.Runner
	emitter *progress.Emitter
	log     *logrus.Entry
}

// New wires a Controller from its dependencies.
func New(opts Options) *Controller {
	if opts.Workers < 2 {
		opts.Workers = 2
	}
	c := &Controller{
		store:   opts.Store,
		exec:    opts.Executor,
		emitter: opts.Emitter,
		log:     opts.Log,
	}
	c.orch = orchestrator.New(opts.Store, opts.Emitter, opts.Log)
	c.disp = dispatch.New(c.runStep, opts.Workers, opts.QueueSize, opts.Log)
	c.runner = isolated.NewRunner(opts.Store, opts.Executor, opts.Emitter, opts.Log)
	return c
}

// Start launches the dispatch workers.
func (c *Controller) Start(ctx context.Context) {
	c.disp.Start(ctx)
}

// Stop drains the dispatcher and waits for pending progress deliveries.
func (c *Controller) Stop() {
	c.disp.Stop()
	c.emitter.Wait()
}

// StartJob creates a job from user input and triggers its first step.
func (c *Controller) StartJob(input tcc.UserInput) (*tcc.ToolConstructionContext, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("job needs a tool description")
	}
	t := tcc.New(input)
	t.CurrentStep = tcc.FirstStep()
	if err := c.store.Create(t); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	c.log.WithFields(logrus.Fields{"job": t.JobID, "tool_type": input.ToolType}).
		Info("job created")
	c.disp.Trigger(t.JobID, tcc.FirstStep())
	return t, nil
}

// Resume continues a paused or halted job from its current step.
func (c *Controller) Resume(jobID string) (*orchestrator.Decision, error) {
	dec, err := c.orch.Resume(jobID)
	if err != nil {
		return nil, err
	}
	for _, step := range dec.Dispatch {
		c.disp.Trigger(jobID, step)
	}
	return dec, nil
}

// StepForward runs exactly one step synchronously and then pauses the job,
// so nothing chains past it. When both parallel branches are outstanding it
// runs the first and leaves the other for the next call.
func (c *Controller) StepForward(ctx context.Context, jobID string) (*executor.StepResult, error) {
	dec, err := c.orch.Resume(jobID)
	if err != nil {
		return nil, err
	}
	if len(dec.Dispatch) == 0 {
		return nil, fmt.Errorf("job %s has nothing to run", jobID)
	}
	step := dec.Dispatch[0]

	res, _, err := c.executeStep(ctx, jobID, step)
	if err != nil {
		return nil, err
	}
	if after, getErr := c.store.Get(jobID); getErr == nil && after.JobStatus != tcc.JobCompleted && after.JobStatus != tcc.JobHalted {
		if pauseErr := c.orch.Pause(jobID); pauseErr != nil {
			c.log.WithField("job", jobID).WithError(pauseErr).Warn("pause after step-forward failed")
		}
	}
	return res, nil
}

// Pause stops a job from auto-advancing; an in-flight step finishes and its
// result is kept.
func (c *Controller) Pause(jobID string) error {
	return c.orch.Pause(jobID)
}

// RunIsolated runs one step against a copied context without touching run
// state.
func (c *Controller) RunIsolated(ctx context.Context, req isolated.Request) (*isolated.Result, error) {
	return c.runner.Run(ctx, req)
}

// Status returns the persisted context for a job.
func (c *Controller) Status(jobID string) (*tcc.ToolConstructionContext, error) {
	return c.store.Get(jobID)
}

// List returns jobs, optionally filtered by status ("" for all).
func (c *Controller) List(status tcc.JobStatus) ([]*tcc.ToolConstructionContext, error) {
	return c.store.List(status)
}

// runStep is the dispatch RunFunc: execute one pipeline step and return the
// follow-up steps the orchestrator decided on.
func (c *Controller) runStep(ctx context.Context, task dispatch.Task) []tcc.Step {
	_, dec, err := c.executeStep(ctx, task.JobID, task.Step)
	if err != nil {
		c.log.WithFields(logrus.Fields{"job": task.JobID, "step": task.Step}).
			WithError(err).Error("step run failed")
		return nil
	}
	if dec == nil {
		return nil
	}
	return dec.Dispatch
}

// executeStep performs one full step cycle: mark started, execute, advance.
// A PreconditionError or transport-level execution error halts the job.
func (c *Controller) executeStep(ctx context.Context, jobID string, step tcc.Step) (*executor.StepResult, *orchestrator.Decision, error) {
	if err := c.orch.MarkStarted(jobID, step); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", step, err)
	}

	t, err := c.store.Get(jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("load job %s: %w", jobID, err)
	}

	res, err := c.exec.Execute(ctx, executor.Request{Step: step, Context: t})
	if err != nil {
		if _, failErr := c.orch.Fail(jobID, step, err); failErr != nil {
			c.log.WithField("job", jobID).WithError(failErr).Error("recording step failure failed")
		}
		return nil, nil, err
	}

	dec, err := c.orch.Advance(jobID, step, res)
	if err != nil {
		return res, nil, fmt.Errorf("advance past %s: %w", step, err)
	}
	return res, dec, nil
}
