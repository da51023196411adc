package lock

import (
	"context"
	"errors"
	"time"

	"github.com/costwise/keygate/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is the PostgreSQL-backed rotation lock with a TTL crash-safety backstop.
type PG struct {
	pool pgxQuerier
	ttl  time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed locker.
func NewPG(pool *pgxpool.Pool, ttl time.Duration) *PG {
	return &PG{pool: pool, ttl: ttl}
}

// NewPGWithQuerier constructs a PostgreSQL-backed locker over any querier.
func NewPGWithQuerier(q pgxQuerier, ttl time.Duration) *PG {
	return &PG{pool: q, ttl: ttl}
}

// Acquire inserts the lock row, or takes over an expired one, in a single
// statement. The conditional upsert leaves no window between reclaiming a
// stale lock and re-creating it: a competing acquirer either gets the row or
// sees zero rows returned and reports busy.
func (l *PG) Acquire(ctx context.Context, orgSlug string) (Handle, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Handle{}, err
	}

	const q = `
INSERT INTO rotation_locks (org_slug, lock_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (org_slug) DO UPDATE
SET lock_id=EXCLUDED.lock_id, expires_at=EXCLUDED.expires_at
WHERE rotation_locks.expires_at < now()
RETURNING lock_id`
	var got uuid.UUID
	err = l.pool.QueryRow(ctx, q, orgSlug, id, time.Now().Add(l.ttl)).Scan(&got)
	switch {
	case err == nil:
		return Handle{OrgSlug: orgSlug, LockID: got}, nil
	case errors.Is(err, pgx.ErrNoRows):
		// existing lock, not yet expired
		return Handle{}, errs.ErrLockBusy
	default:
		return Handle{}, err
	}
}

// Release deletes the lock only if this handle still owns it.
func (l *PG) Release(ctx context.Context, h Handle) error {
	const q = `DELETE FROM rotation_locks WHERE org_slug=$1 AND lock_id=$2`
	_, err := l.pool.Exec(ctx, q, h.OrgSlug, h.LockID)
	return err
}
