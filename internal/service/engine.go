// Package service contains the credential lifecycle application services.
package service

import (
	"context"

	"github.com/costwise/keygate/internal/costengine"
)

// EngineClient is the slice of the cost engine API the services consume.
// Implemented by *costengine.Client.
type EngineClient interface {
	// Ready probes the engine bootstrap status.
	Ready(ctx context.Context) (bool, error)
	// CreateOrganization onboards an org and mints its key.
	CreateOrganization(ctx context.Context, req costengine.OnboardRequest) (*costengine.OnboardResponse, error)
	// RotateKey exchanges the current key for a fresh one.
	RotateKey(ctx context.Context, orgSlug, currentKey string) (string, error)
	// UpdateLimits pushes subscription limits for an org.
	UpdateLimits(ctx context.Context, orgSlug string, lim costengine.Limits) error
	// VerifyKey checks a key's continued validity.
	VerifyKey(ctx context.Context, key string) error
}
