package service

import (
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/task"
)

// Local task states reported next to the vendor states.
const (
	StateTimeout   = "timeout"
	StateCancelled = "cancelled"
	StateError     = "error"
)

// TaskView is the caller-facing state of one image task. Live is true while
// the task is still being polled.
type TaskView struct {
	TaskID    string    `json:"task_id"`
	Prompt    string    `json:"prompt,omitempty"`
	State     string    `json:"state"`
	Attempt   int       `json:"attempt,omitempty"`
	Progress  float64   `json:"progress"`
	URLs      []string  `json:"urls,omitempty"`
	Error     string    `json:"error,omitempty"`
	Live      bool      `json:"live"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func viewFromRecord(rec *domain.TaskRecord) *TaskView {
	progress := 0.0
	if rec.State == string(domain.TaskStateSuccess) {
		progress = 1
	}
	return &TaskView{
		TaskID:    rec.TaskID,
		Prompt:    rec.Prompt,
		State:     rec.State,
		Progress:  progress,
		URLs:      rec.URLs,
		Error:     rec.FailReason,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.CompletedAt,
	}
}

// tracker holds the latest state of tasks being polled.
type tracker struct {
	mu    sync.RWMutex
	tasks map[string]*TaskView
}

func newTracker() *tracker {
	return &tracker{tasks: make(map[string]*TaskView)}
}

func (t *tracker) add(taskID, prompt string) *TaskView {
	now := time.Now().UTC()
	v := &TaskView{
		TaskID:    taskID,
		Prompt:    prompt,
		State:     string(domain.TaskStateWaiting),
		Live:      true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.mu.Lock()
	t.tasks[taskID] = v
	t.mu.Unlock()

	cp := *v
	return &cp
}

func (t *tracker) update(p task.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.tasks[p.TaskID]
	if !ok {
		return
	}
	v.State = string(p.State)
	v.Attempt = p.Attempt
	v.Progress = p.Fraction
	v.UpdatedAt = time.Now().UTC()
}

func (t *tracker) get(taskID string) (*TaskView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.tasks[taskID]
	if !ok {
		return nil, false
	}
	cp := *v
	return &cp, true
}

func (t *tracker) remove(taskID string) {
	t.mu.Lock()
	delete(t.tasks, taskID)
	t.mu.Unlock()
}

func (t *tracker) ids() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.tasks))
	for id := range t.tasks {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
