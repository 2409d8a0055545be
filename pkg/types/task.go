package types

import "time"

// TaskStatus is the lifecycle state of a background generation task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed out of the
// status. Terminal tasks cannot be cancelled.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// IsActive reports whether the task is still pending or running.
func (s TaskStatus) IsActive() bool {
	return s == TaskPending || s == TaskRunning
}

// TaskState is one background pipeline invocation's trackable record.
// It is written by exactly one pipeline invocation and read by polling
// clients through the tracker.
type TaskState struct {
	TaskID              string                 `json:"task_id"`
	Status              TaskStatus             `json:"status"`
	Progress            float64                `json:"progress"`
	Message             string                 `json:"message"`
	Result              map[string]interface{} `json:"result,omitempty"`
	WordsGenerated      *int                   `json:"words_generated,omitempty"`
	EstimatedTotalWords *int                   `json:"estimated_total_words,omitempty"`
	UpdatedAt           time.Time              `json:"updated_at"`
}
