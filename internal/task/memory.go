package task

import (
	"context"
	"sync"
	"time"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// MemoryTracker keeps task state in a mutex-guarded map. Single process,
// volatile; entries expire after the configured TTL.
type MemoryTracker struct {
	mu    sync.Mutex
	tasks map[string]types.TaskState
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryTracker creates an in-process tracker
func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{
		tasks: make(map[string]types.TaskState),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Update writes the task's status, progress and message
func (m *MemoryTracker) Update(ctx context.Context, id string, status types.TaskStatus, progress float64, message string, extras *Extras) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()

	state, exists := m.tasks[id]
	if exists && state.Status.IsTerminal() {
		return nil
	}

	state.TaskID = id
	state.Status = status
	state.Progress = progress
	state.Message = message
	state.UpdatedAt = m.now()
	if extras != nil {
		if extras.Result != nil {
			state.Result = extras.Result
		}
		if extras.WordsGenerated != nil {
			state.WordsGenerated = extras.WordsGenerated
		}
		if extras.EstimatedTotalWords != nil {
			state.EstimatedTotalWords = extras.EstimatedTotalWords
		}
	}

	m.tasks[id] = state
	return nil
}

// Get returns the task state, or nil when unknown or expired
func (m *MemoryTracker) Get(ctx context.Context, id string) (*types.TaskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()

	state, exists := m.tasks[id]
	if !exists {
		return nil, nil
	}
	out := state
	return &out, nil
}

// FindActiveForOwner returns the newest active task for the owner
func (m *MemoryTracker) FindActiveForOwner(ctx context.Context, ownerID string) (*types.TaskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()

	var candidates []*types.TaskState
	for id, state := range m.tasks {
		if ownedBy(id, ownerID) {
			s := state
			candidates = append(candidates, &s)
		}
	}

	return mostRecentActive(candidates), nil
}

// Cancel transitions a pending or running task to cancelled
func (m *MemoryTracker) Cancel(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()

	state, exists := m.tasks[id]
	if !exists || !state.Status.IsActive() {
		return false, nil
	}

	state.Status = types.TaskCancelled
	state.Message = "cancelled"
	state.UpdatedAt = m.now()
	m.tasks[id] = state
	return true, nil
}

// Close releases backend resources
func (m *MemoryTracker) Close() error {
	return nil
}

// pruneLocked drops entries older than the TTL. Caller holds the mutex.
func (m *MemoryTracker) pruneLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for id, state := range m.tasks {
		if state.UpdatedAt.Before(cutoff) {
			delete(m.tasks, id)
		}
	}
}
