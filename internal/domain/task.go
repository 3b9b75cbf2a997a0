package domain

import "time"

// TaskState is the vendor-reported state of an image generation job.
type TaskState string

// Vendor task states. Unrecognized values are treated as still running.
const (
	TaskStateWaiting    TaskState = "waiting"
	TaskStateQueuing    TaskState = "queuing"
	TaskStateGenerating TaskState = "generating"
	TaskStateSuccess    TaskState = "success"
	TaskStateFail       TaskState = "fail"
)

// IsTerminal reports whether no further transitions can occur.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSuccess || s == TaskStateFail
}

// TaskResult holds the output of a successful job.
type TaskResult struct {
	URLs []string `json:"urls"`
}

// TaskStatus is a snapshot returned by the job status endpoint.
// It is produced by the job client only and never mutated locally.
type TaskStatus struct {
	TaskID       string         `json:"task_id"`
	Model        string         `json:"model,omitempty"`
	State        TaskState      `json:"state"`
	Result       *TaskResult    `json:"result,omitempty"`
	FailCode     string         `json:"fail_code,omitempty"`
	FailMsg      string         `json:"fail_msg,omitempty"`
	CostTime     int64          `json:"cost_time,omitempty"`
	CompleteTime int64          `json:"complete_time,omitempty"`
	CreateTime   int64          `json:"create_time,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
}

// URLs returns the result URLs, or nil when there is no result.
func (s *TaskStatus) URLs() []string {
	if s == nil || s.Result == nil {
		return nil
	}
	return s.Result.URLs
}

// TaskRecord is one entry of the persisted task history.
type TaskRecord struct {
	TaskID      string    `json:"task_id"`
	Prompt      string    `json:"prompt,omitempty"`
	State       string    `json:"state"`
	URLs        []string  `json:"urls,omitempty"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// BatchItem is the outcome of one prompt in a batch, tagged with its input position.
type BatchItem struct {
	Index  int      `json:"index"`
	Prompt string   `json:"prompt"`
	TaskID string   `json:"task_id,omitempty"`
	URLs   []string `json:"urls,omitempty"`
	Err    error    `json:"-"`
}

// Succeeded reports whether the item produced a result.
func (b BatchItem) Succeeded() bool {
	return b.Err == nil
}
