package service

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserLocks serializes per-user mutations. Assignment swaps, mesocycle
// replacement and cache invalidate+materialize for one user must never
// interleave; tasks for different users run fully in parallel. Both the
// direct API paths and the background workers share one instance.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUserLocks creates an empty lock table.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the user's mutex and returns the unlock function.
//
//	defer locks.Lock(userID)()
func (l *UserLocks) Lock(userID primitive.ObjectID) func() {
	key := userID.Hex()
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
