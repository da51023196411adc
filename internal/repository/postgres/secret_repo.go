package postgres

import (
	"context"
	"errors"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/model"
	"github.com/jackc/pgx/v5"
)

// SecretRepo implements SecretRepository using PostgreSQL.
type SecretRepo struct{ db *DB }

// NewSecretRepo constructs a secret repository.
func NewSecretRepo(db *DB) *SecretRepo { return &SecretRepo{db: db} }

// Put creates or overwrites the secret for an org.
func (r *SecretRepo) Put(ctx context.Context, orgSlug, secret string) error {
	const q = `
INSERT INTO org_secrets (org_slug, secret_value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (org_slug)
DO UPDATE SET secret_value=EXCLUDED.secret_value, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, orgSlug, secret)
	return err
}

// Get loads the secret for an org. Absence is a normal state for new tenants.
func (r *SecretRepo) Get(ctx context.Context, orgSlug string) (*model.SecretRecord, error) {
	const q = `SELECT org_slug, secret_value, updated_at FROM org_secrets WHERE org_slug=$1`
	row := r.db.Pool.QueryRow(ctx, q, orgSlug)
	var rec model.SecretRecord
	if err := row.Scan(&rec.OrgSlug, &rec.Secret, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
