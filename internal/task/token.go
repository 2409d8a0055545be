package task

import (
	"context"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// CancelToken lets a pipeline poll for cooperative cancellation at its
// checkpoints. It never interrupts in-flight work; an ongoing provider
// call completes even after cancellation is requested.
type CancelToken struct {
	tracker Tracker
	taskID  string
}

// NewCancelToken creates a token bound to one task
func NewCancelToken(tracker Tracker, taskID string) CancelToken {
	return CancelToken{tracker: tracker, taskID: taskID}
}

// Cancelled reports whether the task has been moved to cancelled. Lookup
// errors read as not-cancelled so a flaky backend cannot halt a pipeline.
func (t CancelToken) Cancelled(ctx context.Context) bool {
	if t.tracker == nil {
		return false
	}
	state, err := t.tracker.Get(ctx, t.taskID)
	if err != nil || state == nil {
		return false
	}
	return state.Status == types.TaskCancelled
}

// TaskID returns the bound task identifier
func (t CancelToken) TaskID() string {
	return t.taskID
}
