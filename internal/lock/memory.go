package lock

import (
	"context"
	"sync"
	"time"

	"github.com/costwise/keygate/internal/errs"
	"github.com/gofrs/uuid/v5"
)

// Memory is an in-process locker. It is correctness-preserving only under a
// single-instance deployment; use it solely as the degraded fallback behind
// Failover.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]memLock
}

type memLock struct {
	lockID    uuid.UUID
	expiresAt time.Time
}

// NewMemory constructs an in-process locker.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, held: make(map[string]memLock)}
}

// Acquire grants the lock unless an unexpired holder exists.
func (m *Memory) Acquire(_ context.Context, orgSlug string) (Handle, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Handle{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.held[orgSlug]; ok && cur.expiresAt.After(time.Now()) {
		return Handle{}, errs.ErrLockBusy
	}
	m.held[orgSlug] = memLock{lockID: id, expiresAt: time.Now().Add(m.ttl)}
	return Handle{OrgSlug: orgSlug, LockID: id, InMemory: true}, nil
}

// Release frees the lock if this handle still owns it.
func (m *Memory) Release(_ context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.held[h.OrgSlug]; ok && cur.lockID == h.LockID {
		delete(m.held, h.OrgSlug)
	}
	return nil
}
