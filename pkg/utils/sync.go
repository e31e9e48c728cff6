package utils

import (
	"context"
)

// Sync waits for a sync point. Wait returns false if the
// context is done before.
type Sync interface {
	Wait(ctx context.Context) bool
}

type SyncTrigger interface {
	Done()
}

type syncPoint chan struct{}

// NewSyncPoint provides a sync point and its trigger.
// The trigger must be called exactly once.
func NewSyncPoint() (Sync, SyncTrigger) {
	s := make(syncPoint)
	return s, s
}

func (s syncPoint) Wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s:
		return true
	}
}

func (s syncPoint) Done() {
	close(s)
}
