// Package dispatch runs steps off an explicit queue. Completions feed the
// next steps back into the same queue, which is what chains the pipeline:
// nothing runs unless something was triggered.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/tcc"
)

// Task identifies one unit of work: run this step for this job.
type Task struct {
	JobID string
	Step  tcc.Step
}

// RunFunc executes a task and returns the follow-up steps to enqueue. An
// empty return ends the chain for that job.
type RunFunc func(ctx context.Context, task Task) []tcc.Step

// Dispatcher owns the task queue and a fixed worker pool. The same task is
// never in flight twice: a redundant Trigger while the first run is still
// executing is dropped.
type Dispatcher struct {
	run     RunFunc
	queue   chan Task
	workers int
	log     *logrus.Entry

	mu       sync.Mutex
	inflight map[Task]bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Dispatcher. Start must be called before Trigger.
func New(run RunFunc, workers, buffer int, log *logrus.Entry) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	return &Dispatcher{
		run:      run,
		queue:    make(chan Task, buffer),
		workers:  workers,
		log:      log,
		inflight: make(map[Task]bool),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Trigger enqueues a task. It reports false when the task is already queued
// or running, or when the queue is full; both cases are logged and safe to
// ignore because the duplicate run would have been a no-op anyway.
func (d *Dispatcher) Trigger(jobID string, step tcc.Step) bool {
	if !tcc.KnownStep(step) {
		d.log.WithField("step", step).Warn("trigger for unknown step dropped")
		return false
	}
	task := Task{JobID: jobID, Step: step}

	d.mu.Lock()
	if d.inflight[task] {
		d.mu.Unlock()
		d.log.WithFields(logrus.Fields{"job": jobID, "step": step}).
			Debug("trigger dropped, task already in flight")
		return false
	}
	d.inflight[task] = true
	d.mu.Unlock()

	select {
	case d.queue <- task:
		return true
	default:
		d.clear(task)
		d.log.WithFields(logrus.Fields{"job": jobID, "step": step}).
			Warn("dispatch queue full, trigger dropped")
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-d.queue:
			d.process(ctx, task)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.clear(task)
			d.log.WithFields(logrus.Fields{"job": task.JobID, "step": task.Step}).
				Error(fmt.Sprintf("step run panicked: %v", r))
		}
	}()

	next := d.run(ctx, task)
	d.clear(task)
	for _, step := range next {
		d.Trigger(task.JobID, step)
	}
}

func (d *Dispatcher) clear(task Task) {
	d.mu.Lock()
	delete(d.inflight, task)
	d.mu.Unlock()
}
