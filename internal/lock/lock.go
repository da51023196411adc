// Package lock provides the per-organization rotation mutex.
//
// The durable implementation lives in a shared Postgres table so that
// horizontally scaled, stateless instances exclude each other. The in-memory
// implementation is a degraded single-instance fallback only.
package lock

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// Handle identifies a held lock. Release requires the same handle, so a holder
// cannot delete a lock reclaimed by someone else after expiry.
type Handle struct {
	OrgSlug  string
	LockID   uuid.UUID
	InMemory bool // set when the degraded fallback granted the lock
}

// Locker grants mutual exclusion per organization.
type Locker interface {
	// Acquire obtains the lock for an org or fails with errs.ErrLockBusy.
	// An expired lock is reclaimed transparently.
	Acquire(ctx context.Context, orgSlug string) (Handle, error)
	// Release frees a held lock. Safe to call after TTL expiry.
	Release(ctx context.Context, h Handle) error
}
