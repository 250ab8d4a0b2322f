package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// sessionLocks serializes pre-resume state transitions per session:
// the follow-up ticker and the inbound handler must never mutate the
// same session concurrently.
type sessionLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[uuid.UUID]*sync.Mutex)}
}

// acquire locks the per-session mutex and returns its unlock func.
func (l *sessionLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}
