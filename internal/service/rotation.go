package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/lock"
	"github.com/costwise/keygate/internal/metrics"
	"github.com/costwise/keygate/internal/model"
	"github.com/costwise/keygate/internal/repository"
	"github.com/costwise/keygate/internal/secrets"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// RotationService rotates the per-org cost engine key under mutual exclusion.
type RotationService interface {
	// Rotate exchanges the current key for a fresh one and returns a reveal
	// grant instead of the raw secret. Requires an existing key.
	Rotate(ctx context.Context, orgSlug string, userID uuid.UUID) (model.RotateResult, error)
	// KeyStatus reports the stored key's fingerprint and whether the engine
	// still accepts it.
	KeyStatus(ctx context.Context, orgSlug string) (model.KeyStatus, error)
}

type RotationServiceImpl struct {
	locks   lock.Locker
	secrets repository.SecretRepository
	engine  EngineClient
	reveal  RevealTokenService
	log     *zap.Logger
}

// NewRotationService constructs RotationService with required dependencies.
func NewRotationService(locks lock.Locker, secretRepo repository.SecretRepository, engine EngineClient, reveal RevealTokenService, log *zap.Logger) *RotationServiceImpl {
	return &RotationServiceImpl{locks: locks, secrets: secretRepo, engine: engine, reveal: reveal, log: log}
}

// Rotate performs the rotation protocol: acquire the org lock, call the engine
// authenticating with the current key, persist the replacement, issue a reveal
// token. The lock is released on every exit path; its TTL is only a crash
// backstop, never the normal release mechanism.
func (s *RotationServiceImpl) Rotate(ctx context.Context, orgSlug string, userID uuid.UUID) (out model.RotateResult, err error) {
	if orgSlug == "" || userID == uuid.Nil {
		return model.RotateResult{}, fmt.Errorf("empty org/user: %w", errs.ErrInvalidInput)
	}

	h, err := s.locks.Acquire(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, errs.ErrLockBusy) {
			metrics.RotationsTotal.WithLabelValues("busy").Inc()
		}
		return model.RotateResult{}, err
	}
	defer func() {
		if rerr := s.locks.Release(context.WithoutCancel(ctx), h); rerr != nil {
			s.log.Error("rotation lock release failed, TTL will reclaim",
				zap.String("org", orgSlug), zap.Error(rerr))
		}
	}()

	rec, err := s.secrets.Get(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			metrics.RotationsTotal.WithLabelValues("no_key").Inc()
			return model.RotateResult{}, errs.ErrNoKey
		}
		return model.RotateResult{}, err
	}

	newKey, err := s.engine.RotateKey(ctx, orgSlug, rec.Secret)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrEngineAuth):
			metrics.RotationsTotal.WithLabelValues("upstream_auth").Inc()
		default:
			metrics.RotationsTotal.WithLabelValues("error").Inc()
		}
		return model.RotateResult{}, err
	}

	if err := s.secrets.Put(ctx, orgSlug, newKey); err != nil {
		return model.RotateResult{}, fmt.Errorf("persist rotated key: %w", err)
	}

	grant, err := s.reveal.Issue(ctx, orgSlug, userID)
	if err != nil {
		return model.RotateResult{}, fmt.Errorf("issue reveal token: %w", err)
	}

	metrics.RotationsTotal.WithLabelValues("ok").Inc()
	s.log.Info("key rotated", zap.String("org", orgSlug))
	return model.RotateResult{
		OrgSlug:     orgSlug,
		Fingerprint: secrets.Fingerprint(newKey),
		Reveal:      grant,
	}, nil
}

// KeyStatus checks the stored key against the engine's locale probe.
func (s *RotationServiceImpl) KeyStatus(ctx context.Context, orgSlug string) (model.KeyStatus, error) {
	if orgSlug == "" {
		return model.KeyStatus{}, fmt.Errorf("empty org: %w", errs.ErrInvalidInput)
	}
	rec, err := s.secrets.Get(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.KeyStatus{}, errs.ErrNoKey
		}
		return model.KeyStatus{}, err
	}
	st := model.KeyStatus{Fingerprint: secrets.Fingerprint(rec.Secret)}
	switch err := s.engine.VerifyKey(ctx, rec.Secret); {
	case err == nil:
		st.Valid = true
	case errors.Is(err, errs.ErrEngineAuth):
		st.Valid = false
	default:
		return model.KeyStatus{}, err
	}
	return st, nil
}
