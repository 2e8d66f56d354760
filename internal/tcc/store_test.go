package tcc

import (
	"errors"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(t.TempDir())
}

func newTestContext() *ToolConstructionContext {
	return New(UserInput{
		Description: "A mortgage payment calculator",
		ToolType:    "calculator",
		Tags:        []string{"finance"},
	})
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	tc := newTestContext()
	if err := s.Create(tc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(tc.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.JobID != tc.JobID {
		t.Errorf("JobID = %q, want %q", got.JobID, tc.JobID)
	}
	if got.UserInput.Description != tc.UserInput.Description {
		t.Errorf("Description = %q, want %q", got.UserInput.Description, tc.UserInput.Description)
	}
	if got.CurrentStep != StepPlanFunctions {
		t.Errorf("CurrentStep = %q, want %q", got.CurrentStep, StepPlanFunctions)
	}
	if got.JobStatus != JobPending {
		t.Errorf("JobStatus = %q, want %q", got.JobStatus, JobPending)
	}
	if got.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}
	if len(got.Steps) != len(Sequence) {
		t.Errorf("Steps has %d entries, want %d", len(got.Steps), len(Sequence))
	}
	for _, step := range Sequence {
		if got.Steps[step].Status != StatusPending {
			t.Errorf("step %s status = %q, want pending", step, got.Steps[step].Status)
		}
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)

	tc := newTestContext()
	if err := s.Create(tc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(tc); err == nil {
		t.Error("Create on existing job should fail")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("no-such-job")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestUpdateBumpsVersion(t *testing.T) {
	s := newTestStore(t)

	tc := newTestContext()
	if err := s.Create(tc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := s.Update(tc.JobID, func(t *ToolConstructionContext) error {
		t.JobStatus = JobRunning
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != tc.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, tc.Version+1)
	}
	if updated.JobStatus != JobRunning {
		t.Errorf("JobStatus = %q, want running", updated.JobStatus)
	}

	got, err := s.Get(tc.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.JobStatus != JobRunning {
		t.Errorf("persisted JobStatus = %q, want running", got.JobStatus)
	}
}

func TestUpdateAborted(t *testing.T) {
	s := newTestStore(t)

	tc := newTestContext()
	if err := s.Create(tc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	wantErr := errors.New("nope")
	_, err := s.Update(tc.JobID, func(t *ToolConstructionContext) error {
		t.JobStatus = JobCompleted
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Update error = %v, want %v", err, wantErr)
	}

	got, err := s.Get(tc.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.JobStatus != JobPending {
		t.Errorf("aborted update should not persist, JobStatus = %q", got.JobStatus)
	}
	if got.Version != tc.Version {
		t.Errorf("aborted update should not bump version, got %d", got.Version)
	}
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	s := newTestStore(t)

	tc := newTestContext()
	if err := s.Create(tc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(tc.JobID, func(t *ToolConstructionContext) error {
				t.Record(StepPlanFunctions).Attempts++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get(tc.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Record(StepPlanFunctions).Attempts != writers {
		t.Errorf("Attempts = %d, want %d (lost updates)", got.Record(StepPlanFunctions).Attempts, writers)
	}
	if got.Version != writers {
		t.Errorf("Version = %d, want %d", got.Version, writers)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	s := newTestStore(t)

	running := newTestContext()
	running.JobStatus = JobRunning
	done := newTestContext()
	done.JobStatus = JobCompleted
	for _, tc := range []*ToolConstructionContext{running, done} {
		if err := s.Create(tc); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(\"\") returned %d, want 2", len(all))
	}

	completed, err := s.List(JobCompleted)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(completed) != 1 || completed[0].JobID != done.JobID {
		t.Errorf("List(completed) = %v, want only %s", completed, done.JobID)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	tc := newTestContext()
	if err := s.Create(tc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(tc.JobID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(tc.JobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(tc.JobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete twice = %v, want ErrNotFound", err)
	}
}
