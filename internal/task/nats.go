package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// NATSTracker stores task state in a JetStream key-value bucket with a
// per-bucket TTL. Entries survive process restarts, are visible to every
// process sharing the bucket, and expire without application code.
type NATSTracker struct {
	conn *nats.Conn
	kv   nats.KeyValue
}

// NewNATSTracker connects to NATS and binds the task bucket, creating it
// with the given TTL when it does not exist yet
func NewNATSTracker(url, bucket string, ttl time.Duration) (*NATSTracker, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create-first; bind when the bucket already exists
	kv, err := js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucket,
		Description: "pipeline task state",
		TTL:         ttl,
	})
	if err != nil {
		kv, err = js.KeyValue(bucket)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to bind task bucket %q: %w", bucket, err)
		}
	}

	return &NATSTracker{conn: conn, kv: kv}, nil
}

// Update writes the task's status, progress and message
func (n *NATSTracker) Update(ctx context.Context, id string, status types.TaskStatus, progress float64, message string, extras *Extras) error {
	state, err := n.load(id)
	if err != nil {
		return err
	}
	if state != nil && state.Status.IsTerminal() {
		return nil
	}
	if state == nil {
		state = &types.TaskState{TaskID: id}
	}

	state.Status = status
	state.Progress = progress
	state.Message = message
	state.UpdatedAt = time.Now()
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

	return n.store(id, state)
}

// Get returns the task state, or nil when unknown or expired
func (n *NATSTracker) Get(ctx context.Context, id string) (*types.TaskState, error) {
	return n.load(id)
}

// FindActiveForOwner scans the bucket for the newest active task owned by
// the given entity
func (n *NATSTracker) FindActiveForOwner(ctx context.Context, ownerID string) (*types.TaskState, error) {
	keys, err := n.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list task keys: %w", err)
	}

	var candidates []*types.TaskState
	for _, key := range keys {
		if !ownedBy(key, ownerID) {
			continue
		}
		state, err := n.load(key)
		if err != nil {
			return nil, err
		}
		if state != nil {
			candidates = append(candidates, state)
		}
	}

	return mostRecentActive(candidates), nil
}

// Cancel transitions a pending or running task to cancelled
func (n *NATSTracker) Cancel(ctx context.Context, id string) (bool, error) {
	state, err := n.load(id)
	if err != nil {
		return false, err
	}
	if state == nil || !state.Status.IsActive() {
		return false, nil
	}

	state.Status = types.TaskCancelled
	state.Message = "cancelled"
	state.UpdatedAt = time.Now()
	if err := n.store(id, state); err != nil {
		return false, err
	}
	return true, nil
}

// Close drains the NATS connection
func (n *NATSTracker) Close() error {
	n.conn.Close()
	return nil
}

func (n *NATSTracker) load(id string) (*types.TaskState, error) {
	entry, err := n.kv.Get(id)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read task %q: %w", id, err)
	}

	var state types.TaskState
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return nil, fmt.Errorf("failed to decode task %q: %w", id, err)
	}
	return &state, nil
}

func (n *NATSTracker) store(id string, state *types.TaskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode task %q: %w", id, err)
	}
	if _, err := n.kv.Put(id, data); err != nil {
		return fmt.Errorf("failed to write task %q: %w", id, err)
	}
	return nil
}
