package repository

import (
	"context"

	"github.com/costwise/keygate/internal/model"
)

// CompensationRepository persists pending-engine-sync repair records. A record
// is written only after the engine-side operation has committed and the local
// mirroring write exhausted its bounded retries; a reconciliation job consumes it.
type CompensationRepository interface {
	// Upsert creates or refreshes the repair record for an org. Idempotent, so
	// repeated onboarding failures for the same org keep a single record.
	Upsert(ctx context.Context, rec *model.CompensationRecord) error
}
