package state

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle position of one task in a run.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusSkipped   TaskStatus = "skipped"
)

// Terminal reports whether the status can no longer change within a run.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// RunState is the completion state of a single run. It lives in memory only
// and is discarded when the run's report has been printed.
type RunState struct {
	RunID      string                `json:"run_id"`
	Roots      []string              `json:"roots"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitempty"`
	Status     string                `json:"status"` // "running", "completed", "failed"
	Tasks      map[string]*TaskState `json:"tasks"`

	mu  sync.Mutex
	seq int
}

// TaskState is the state of one task in a run. StartSeq and FinishSeq are
// positions on a single per-run counter, so they order events across tasks
// even when wall-clock timestamps collide.
type TaskState struct {
	Status     TaskStatus `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	StartSeq   int        `json:"start_seq,omitempty"`
	FinishSeq  int        `json:"finish_seq,omitempty"`
	Error      string     `json:"error,omitempty"`
	SkippedFor string     `json:"skipped_for,omitempty"` // failed upstream task
}

// New creates a RunState with every named task pending.
func New(roots []string, tasks []string) *RunState {
	s := &RunState{
		RunID:     uuid.NewString(),
		Roots:     append([]string(nil), roots...),
		StartedAt: time.Now(),
		Status:    "running",
		Tasks:     make(map[string]*TaskState, len(tasks)),
	}
	for _, name := range tasks {
		s.Tasks[name] = &TaskState{Status: StatusPending}
	}
	return s
}

func (s *RunState) next() int {
	s.seq++
	return s.seq
}

// MarkRunning records that a task's action has started.
func (s *RunState) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ts := s.task(name)
	ts.Status = StatusRunning
	ts.StartedAt = &now
	ts.StartSeq = s.next()
}

// MarkFinished records the outcome of a task's action.
func (s *RunState) MarkFinished(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ts := s.task(name)
	ts.FinishedAt = &now
	ts.FinishSeq = s.next()
	if err != nil {
		ts.Status = StatusFailed
		ts.Error = err.Error()
		return
	}
	ts.Status = StatusCompleted
}

// MarkSkipped records that a task never started because upstream failed.
func (s *RunState) MarkSkipped(name, failed string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ts := s.task(name)
	ts.Status = StatusSkipped
	ts.FinishedAt = &now
	ts.SkippedFor = failed
}

// SetStatus updates the overall run status.
func (s *RunState) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Status = status
	if status != "running" {
		s.FinishedAt = time.Now()
	}
}

// Get returns a copy of the state of one task, or nil if it is not part of
// the run.
func (s *RunState) Get(name string) *TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.Tasks[name]
	if !ok {
		return nil
	}
	cp := *ts
	return &cp
}

// Names returns the tasks of the run in lexical order.
func (s *RunState) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.Tasks))
	for name := range s.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithStatus returns the names of tasks currently in the given status,
// in lexical order.
func (s *RunState) WithStatus(status TaskStatus) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, ts := range s.Tasks {
		if ts.Status == status {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Duration returns the wall time of the run so far, or in total once it
// has finished.
func (s *RunState) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *RunState) task(name string) *TaskState {
	ts, ok := s.Tasks[name]
	if !ok {
		ts = &TaskState{Status: StatusPending}
		s.Tasks[name] = ts
	}
	return ts
}
