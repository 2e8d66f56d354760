package tcc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no context exists for a job id.
var ErrNotFound = errors.New("job not found")

// ErrVersionConflict is returned when a compare-and-set update loses a race
// with a concurrent writer.
var ErrVersionConflict = errors.New("context version conflict")

// Store persists ToolConstructionContexts keyed by job id. Update must be a
// read-modify-write against the latest persisted state: the orchestrator's
// parallel-join logic depends on never overwriting a concurrent sibling
// update.
type Store interface {
	Create(t *ToolConstructionContext) error
	Get(jobID string) (*ToolConstructionContext, error)
	Update(jobID string, fn func(*ToolConstructionContext) error) (*ToolConstructionContext, error)
	List(statusFilter JobStatus) ([]*ToolConstructionContext, error)
	Delete(jobID string) error
}

// FileStore keeps one JSON document per job on disk.
type FileStore struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir, locks: make(map[string]*sync.Mutex)}
}

// DefaultFileStore returns a FileStore at ~/.uiforge/jobs, creating the
// directory if needed.
func DefaultFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".uiforge", "jobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return NewFileStore(dir), nil
}

// BaseDir returns the store's root directory.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

func (s *FileStore) jobDir(jobID string) string {
	return filepath.Join(s.baseDir, jobID)
}

func (s *FileStore) contextPath(jobID string) string {
	return filepath.Join(s.jobDir(jobID), "tcc.json")
}

// jobLock returns the per-job mutex, creating it on first use. All writes to
// one job serialize through it.
func (s *FileStore) jobLock(jobID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[jobID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[jobID] = l
	}
	return l
}

// writeDocument marshals t and lands it at path through a temp file plus
// rename, so a crash mid-write never leaves a torn document behind.
func writeDocument(path string, t *ToolConstructionContext) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tcc-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func readDocument(path string) (*ToolConstructionContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t ToolConstructionContext
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &t, nil
}

// Create persists a new context. The job must not already exist.
func (s *FileStore) Create(t *ToolConstructionContext) error {
	if t.JobID == "" {
		return fmt.Errorf("context has no job id")
	}
	lock := s.jobLock(t.JobID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.jobDir(t.JobID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("job %s already exists", t.JobID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return writeDocument(s.contextPath(t.JobID), t)
}

// Get reads the latest persisted context for a job.
func (s *FileStore) Get(jobID string) (*ToolConstructionContext, error) {
	t, err := readDocument(s.contextPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// Update performs an atomic read-modify-write of the context. fn receives the
// latest persisted state; returning an error aborts without writing. The
// version counter and UpdatedAt are bumped on every successful write.
func (s *FileStore) Update(jobID string, fn func(*ToolConstructionContext) error) (*ToolConstructionContext, error) {
	lock := s.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.Get(jobID)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	t.Version++
	t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := writeDocument(s.contextPath(jobID), t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns all contexts, optionally filtered by job status. Pass "" to
// return everything.
func (s *FileStore) List(statusFilter JobStatus) ([]*ToolConstructionContext, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var out []*ToolConstructionContext
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || t.JobStatus == statusFilter {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

// Delete removes all data for a job.
func (s *FileStore) Delete(jobID string) error {
	lock := s.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.jobDir(jobID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return os.RemoveAll(dir)
}
