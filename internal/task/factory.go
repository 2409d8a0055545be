package task

import (
	"fmt"
	"time"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// NewTracker creates the tracker backend selected by configuration
func NewTracker(cfg types.TasksConfig) (Tracker, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryTracker(ttl), nil
	case "nats":
		return NewNATSTracker(cfg.NATSURL, cfg.Bucket, ttl)
	default:
		return nil, fmt.Errorf("unknown tracker backend: %s", cfg.Backend)
	}
}
