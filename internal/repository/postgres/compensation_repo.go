package postgres

import (
	"context"

	"github.com/costwise/keygate/internal/model"
)

// CompensationRepo implements CompensationRepository using PostgreSQL.
type CompensationRepo struct{ db *DB }

// NewCompensationRepo constructs a pending-engine-sync repository.
func NewCompensationRepo(db *DB) *CompensationRepo { return &CompensationRepo{db: db} }

// Upsert creates or refreshes the repair record for an org. One row per org:
// a repeated failure replaces the previous record rather than stacking up.
func (r *CompensationRepo) Upsert(ctx context.Context, rec *model.CompensationRecord) error {
	const q = `
INSERT INTO pending_engine_syncs (org_slug, fingerprint, retry_count, last_error, status, created_at)
VALUES ($1, $2, $3, $4, 'pending', now())
ON CONFLICT (org_slug)
DO UPDATE SET fingerprint=EXCLUDED.fingerprint, retry_count=EXCLUDED.retry_count,
              last_error=EXCLUDED.last_error, status='pending'`
	_, err := r.db.Pool.Exec(ctx, q, rec.OrgSlug, rec.Fingerprint, rec.RetryCount, rec.LastError)
	return err
}
