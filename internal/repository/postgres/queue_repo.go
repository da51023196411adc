package postgres

import (
	"context"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// QueueRepo implements QueueRepository using PostgreSQL.
type QueueRepo struct{ db *DB }

// NewQueueRepo constructs a billing sync queue repository.
func NewQueueRepo(db *DB) *QueueRepo { return &QueueRepo{db: db} }

// Enqueue appends a new pending entry.
func (r *QueueRepo) Enqueue(ctx context.Context, e *model.SyncQueueEntry) error {
	const q = `
INSERT INTO billing_sync_queue (id, org_slug, org_id, sync_type, payload, error_message, status, retry_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0, now(), now())`
	_, err := r.db.Pool.Exec(ctx, q, e.ID, e.OrgSlug, e.OrgID, e.SyncType, e.Payload, e.ErrorMessage)
	return err
}

// FetchPending claims up to limit oldest pending entries. SKIP LOCKED keeps
// concurrent drains from double-claiming a row.
func (r *QueueRepo) FetchPending(ctx context.Context, limit int) ([]model.SyncQueueEntry, error) {
	const q = `
UPDATE billing_sync_queue SET status='processing', updated_at=now()
WHERE id IN (
  SELECT id FROM billing_sync_queue
  WHERE status='pending'
  ORDER BY created_at ASC
  LIMIT $1
  FOR UPDATE SKIP LOCKED)
RETURNING id, org_slug, org_id, sync_type, payload, error_message, retry_count, created_at`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SyncQueueEntry
	for rows.Next() {
		e := model.SyncQueueEntry{Status: model.SyncProcessing}
		if err := rows.Scan(&e.ID, &e.OrgSlug, &e.OrgID, &e.SyncType, &e.Payload, &e.ErrorMessage, &e.RetryCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkCompleted finalizes an entry. The status guard keeps completed entries
// from ever regressing.
func (r *QueueRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	const q = `
UPDATE billing_sync_queue
SET status='completed', error_message='', updated_at=now()
WHERE id=$1 AND status <> 'completed'`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkFailed records a failed re-attempt and increments retry_count.
func (r *QueueRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `
UPDATE billing_sync_queue
SET status='failed', error_message=$2, retry_count=retry_count+1, updated_at=now()
WHERE id=$1 AND status <> 'completed'`
	tag, err := r.db.Pool.Exec(ctx, q, id, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Stats reports queue depth and age in a single scan.
func (r *QueueRepo) Stats(ctx context.Context) (*model.QueueStats, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE status='pending'),
  COUNT(*) FILTER (WHERE status='processing'),
  COUNT(*) FILTER (WHERE status='failed'),
  COUNT(*) FILTER (WHERE status='completed' AND updated_at >= date_trunc('day', now())),
  MIN(created_at) FILTER (WHERE status='pending')
FROM billing_sync_queue`
	var st model.QueueStats
	row := r.db.Pool.QueryRow(ctx, q)
	if err := row.Scan(&st.Pending, &st.Processing, &st.Failed, &st.CompletedToday, &st.OldestPending); err != nil {
		return nil, err
	}
	return &st, nil
}
