package api

import (
	"net/http"

	"github.com/narges-rzv/Lingolou/internal/task"
)

// TaskHandler handles task status and cancellation endpoints
type TaskHandler struct {
	tracker task.Tracker
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tracker task.Tracker) *TaskHandler {
	return &TaskHandler{tracker: tracker}
}

// GetTaskStatus handles GET /api/v1/tasks/:taskId
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := extractIDFromPath(r.URL.Path, "/api/v1/tasks/")
	if taskID == "" {
		respondError(w, "Task ID required", http.StatusBadRequest)
		return
	}

	state, err := h.tracker.Get(r.Context(), taskID)
	if err != nil {
		respondError(w, "Failed to look up task", http.StatusInternalServerError)
		return
	}
	if state == nil {
		respondError(w, "Task not found", http.StatusNotFound)
		return
	}

	respondJSON(w, state, http.StatusOK)
}

// CancelTask handles DELETE /api/v1/tasks/:taskId. Cancelling a task that
// already finished is not an error; the response reports the final status.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := extractIDFromPath(r.URL.Path, "/api/v1/tasks/")
	if taskID == "" {
		respondError(w, "Task ID required", http.StatusBadRequest)
		return
	}

	state, err := h.tracker.Get(r.Context(), taskID)
	if err != nil {
		respondError(w, "Failed to look up task", http.StatusInternalServerError)
		return
	}
	if state == nil {
		respondError(w, "Task not found", http.StatusNotFound)
		return
	}

	cancelled, err := h.tracker.Cancel(r.Context(), taskID)
	if err != nil {
		respondError(w, "Failed to cancel task", http.StatusInternalServerError)
		return
	}

	status := state.Status
	if cancelled {
		if updated, err := h.tracker.Get(r.Context(), taskID); err == nil && updated != nil {
			status = updated.Status
		}
	}

	respondJSON(w, map[string]interface{}{
		"task_id":   taskID,
		"cancelled": cancelled,
		"status":    status,
	}, http.StatusOK)
}
