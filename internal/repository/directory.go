package repository

import (
	"context"

	"github.com/costwise/keygate/internal/model"
)

// DirectoryRepository is the local system of record mirroring onboarded
// organizations. It fails independently of the cost engine; the onboarding
// orchestrator owns reconciling the two.
type DirectoryRepository interface {
	// UpsertOrganization records (or refreshes) an onboarded org. Idempotent.
	UpsertOrganization(ctx context.Context, org *model.OrgRecord) error
}
