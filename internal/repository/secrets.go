// Package repository defines storage interfaces implemented by concrete backends.
//
// Every collection here is reachable only from privileged server-side code;
// nothing below this layer is exposed to a client-invokable path.
package repository

import (
	"context"

	"github.com/costwise/keygate/internal/model"
)

// SecretRepository persists the per-organization cost engine API key.
type SecretRepository interface {
	// Put creates or overwrites the secret for an org. Idempotent.
	Put(ctx context.Context, orgSlug, secret string) error
	// Get loads the secret for an org; errs.ErrNotFound when no key exists yet,
	// which is a normal state for new tenants.
	Get(ctx context.Context, orgSlug string) (*model.SecretRecord, error)
}
