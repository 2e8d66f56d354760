package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/uiforge/uiforge/internal/tcc"
)

func testLog() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

// collectRuns returns a RunFunc that records each task and chains through
// the given transition map.
func collectRuns(transitions map[tcc.Step][]tcc.Step) (RunFunc, func() []Task, chan struct{}) {
	var mu sync.Mutex
	var tasks []Task
	done := make(chan struct{}, 16)
	run := func(_ context.Context, task Task) []tcc.Step {
		mu.Lock()
		tasks = append(tasks, task)
		mu.Unlock()
		done <- struct{}{}
		return transitions[task.Step]
	}
	snapshot := func() []Task {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Task, len(tasks))
		copy(out, tasks)
		return out
	}
	return run, snapshot, done
}

func waitRuns(t *testing.T, done chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for run %d of %d", i+1, n)
		}
	}
}

func TestTriggerChainsFollowUps(t *testing.T) {
	run, snapshot, done := collectRuns(map[tcc.Step][]tcc.Step{
		tcc.StepPlanFunctions: {tcc.StepDesignState, tcc.StepDesignLayout},
		tcc.StepDesignState:   nil,
		tcc.StepDesignLayout:  {tcc.StepApplyStyling},
	})
	d := New(run, 2, 16, testLog())
	d.Start(context.Background())
	defer d.Stop()

	require.True(t, d.Trigger("job-1", tcc.StepPlanFunctions))
	waitRuns(t, done, 4)

	steps := make(map[tcc.Step]int)
	for _, task := range snapshot() {
		require.Equal(t, "job-1", task.JobID)
		steps[task.Step]++
	}
	require.Equal(t, map[tcc.Step]int{
		tcc.StepPlanFunctions: 1,
		tcc.StepDesignState:   1,
		tcc.StepDesignLayout:  1,
		tcc.StepApplyStyling:  1,
	}, steps)
}

func TestTriggerDropsInFlightDuplicate(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs int32
	var mu sync.Mutex
	run := func(_ context.Context, _ Task) []tcc.Step {
		mu.Lock()
		runs++
		mu.Unlock()
		started <- struct{}{}
		<-release
		return nil
	}
	d := New(run, 1, 16, testLog())
	d.Start(context.Background())
	defer d.Stop()

	require.True(t, d.Trigger("job-1", tcc.StepPlanFunctions))
	<-started
	// Same task while the first run is still executing.
	require.False(t, d.Trigger("job-1", tcc.StepPlanFunctions))
	// A different job is not deduplicated.
	require.True(t, d.Trigger("job-2", tcc.StepPlanFunctions))
	close(release)
	<-started

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int32(2), runs)
}

func TestTriggerAfterCompletionRunsAgain(t *testing.T) {
	run, snapshot, done := collectRuns(nil)
	d := New(run, 1, 16, testLog())
	d.Start(context.Background())
	defer d.Stop()

	require.True(t, d.Trigger("job-1", tcc.StepValidateCode))
	waitRuns(t, done, 1)
	require.True(t, d.Trigger("job-1", tcc.StepValidateCode))
	waitRuns(t, done, 1)

	require.Len(t, snapshot(), 2)
}

func TestTriggerRejectsUnknownStep(t *testing.T) {
	run, _, _ := collectRuns(nil)
	d := New(run, 1, 16, testLog())
	d.Start(context.Background())
	defer d.Stop()

	require.False(t, d.Trigger("job-1", tcc.Step("mystery")))
	require.False(t, d.Trigger("job-1", tcc.StepAwaitParallel))
}

func TestQueueFullDropsTrigger(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 4)
	run := func(_ context.Context, _ Task) []tcc.Step {
		started <- struct{}{}
		<-block
		return nil
	}
	d := New(run, 1, 1, testLog())
	d.Start(context.Background())
	defer func() {
		close(block)
		d.Stop()
	}()

	// First occupies the worker, second fills the one-slot buffer, third
	// must be rejected rather than blocking the caller.
	require.True(t, d.Trigger("job-1", tcc.StepPlanFunctions))
	<-started
	require.True(t, d.Trigger("job-2", tcc.StepPlanFunctions))

	require.Eventually(t, func() bool {
		return !d.Trigger("job-3", tcc.StepPlanFunctions)
	}, time.Second, 10*time.Millisecond)
}

func TestPanickingRunDoesNotKillWorker(t *testing.T) {
	var mu sync.Mutex
	var ran []Task
	done := make(chan struct{}, 4)
	run := func(_ context.Context, task Task) []tcc.Step {
		mu.Lock()
		ran = append(ran, task)
		mu.Unlock()
		done <- struct{}{}
		if task.JobID == "bad" {
			panic("boom")
		}
		return nil
	}
	d := New(run, 1, 16, testLog())
	d.Start(context.Background())
	defer d.Stop()

	require.True(t, d.Trigger("bad", tcc.StepPlanFunctions))
	waitRuns(t, done, 1)
	require.True(t, d.Trigger("good", tcc.StepPlanFunctions))
	waitRuns(t, done, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ran, 2)
}
