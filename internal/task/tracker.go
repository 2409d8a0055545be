package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// Kind distinguishes the two pipeline task families
type Kind string

const (
	KindStory Kind = "story"
	KindAudio Kind = "audio"
)

// Extras carries optional TaskState fields for Update. Nil fields keep
// whatever value the entry already holds.
type Extras struct {
	Result              map[string]interface{}
	WordsGenerated      *int
	EstimatedTotalWords *int
}

// Tracker is the shared progress/cancellation store consumed by both
// pipelines and polled by the API layer. Implementations must behave
// identically whether state lives in process memory or a shared durable
// store; entries expire via backend TTL, never by explicit deletes.
type Tracker interface {
	// Update writes the task's status, progress and message. Updates to
	// a task already in a terminal state are ignored.
	Update(ctx context.Context, id string, status types.TaskStatus, progress float64, message string, extras *Extras) error

	// Get returns the task state, or nil when the id is unknown or expired
	Get(ctx context.Context, id string) (*types.TaskState, error)

	// FindActiveForOwner returns the most-recently-updated pending or
	// running task belonging to the owner, or nil when none is active
	FindActiveForOwner(ctx context.Context, ownerID string) (*types.TaskState, error)

	// Cancel transitions a pending or running task to cancelled and
	// reports whether it did. Terminal and unknown tasks return false.
	Cancel(ctx context.Context, id string) (bool, error)

	// Close releases backend resources
	Close() error
}

// NewTaskID mints a task identifier embedding its kind and owning entity,
// so owner lookups reduce to a prefix scan
func NewTaskID(kind Kind, ownerID string) string {
	return fmt.Sprintf("%s_%s_%s", kind, ownerID, uuid.NewString())
}

// ownedBy reports whether the task id belongs to the given owner
func ownedBy(taskID, ownerID string) bool {
	return strings.HasPrefix(taskID, string(KindStory)+"_"+ownerID+"_") ||
		strings.HasPrefix(taskID, string(KindAudio)+"_"+ownerID+"_")
}

// mostRecentActive picks the newest pending or running state from a set
func mostRecentActive(states []*types.TaskState) *types.TaskState {
	var best *types.TaskState
	for _, s := range states {
		if !s.Status.IsActive() {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	return best
}
