package postgres

import (
	"context"

	"github.com/costwise/keygate/internal/model"
)

// DirectoryRepo implements DirectoryRepository using PostgreSQL.
type DirectoryRepo struct{ db *DB }

// NewDirectoryRepo constructs an organization directory repository.
func NewDirectoryRepo(db *DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

// UpsertOrganization records (or refreshes) an onboarded org.
func (r *DirectoryRepo) UpsertOrganization(ctx context.Context, org *model.OrgRecord) error {
	const q = `
INSERT INTO organizations (slug, company_name, admin_email, plan, locale, key_fingerprint, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (slug)
DO UPDATE SET company_name=EXCLUDED.company_name, admin_email=EXCLUDED.admin_email,
              plan=EXCLUDED.plan, locale=EXCLUDED.locale,
              key_fingerprint=EXCLUDED.key_fingerprint, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, org.Slug, org.CompanyName, org.AdminEmail, org.Plan, org.Locale, org.KeyFingerprint)
	return err
}
