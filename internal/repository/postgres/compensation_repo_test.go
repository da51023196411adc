package postgres

import (
	"context"
	"testing"

	"github.com/costwise/keygate/internal/model"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestCompensationRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCompensationRepo(db)

	mock.ExpectExec(`INSERT INTO pending_engine_syncs`).
		WithArgs("acme", "sha256:a1b2c3d4e5f6", 3, "directory write: timeout").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.Upsert(context.Background(), &model.CompensationRecord{
		OrgSlug:     "acme",
		Fingerprint: "sha256:a1b2c3d4e5f6",
		RetryCount:  3,
		LastError:   "directory write: timeout",
	})
	require.NoError(t, err)
}

func TestDirectoryRepo_UpsertOrganization(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDirectoryRepo(db)

	mock.ExpectExec(`INSERT INTO organizations`).
		WithArgs("acme", "Acme Corp", "admin@acme.test", "starter", "en-US", "sha256:a1b2c3d4e5f6").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.UpsertOrganization(context.Background(), &model.OrgRecord{
		Slug:           "acme",
		CompanyName:    "Acme Corp",
		AdminEmail:     "admin@acme.test",
		Plan:           "starter",
		Locale:         "en-US",
		KeyFingerprint: "sha256:a1b2c3d4e5f6",
	})
	require.NoError(t, err)
}
