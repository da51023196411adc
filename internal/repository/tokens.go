package repository

import (
	"context"

	"github.com/costwise/keygate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenRepository persists one-time reveal tokens.
type TokenRepository interface {
	// Insert stores a freshly issued token.
	Insert(ctx context.Context, t *model.RevealToken) error

	// Redeem atomically claims a token and returns its org slug. The lookup,
	// ownership check, expiry check and deletion happen in one transaction so a
	// concurrent second redeemer observes errs.ErrNotFound. Ownership is checked
	// before expiry (errs.ErrWrongUser wins over errs.ErrTokenExpired); expired
	// tokens are deleted as a side effect of the failed check.
	Redeem(ctx context.Context, token string, userID uuid.UUID) (orgSlug string, err error)

	// DeleteExpired sweeps tokens past their TTL and reports how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
