package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/model"
	"github.com/costwise/keygate/internal/repository"
	"github.com/costwise/keygate/internal/secrets"
	"github.com/gofrs/uuid/v5"
)

// RevealTokenService issues and redeems one-time secret reveal tokens.
// The raw secret never travels in the response that created it; only this
// narrow, short-lived, identity-bound token does.
type RevealTokenService interface {
	// Issue mints a single-use token bound to the org and requesting user.
	Issue(ctx context.Context, orgSlug string, userID uuid.UUID) (model.RevealGrant, error)
	// Redeem exchanges a token for the secret, exactly once.
	Redeem(ctx context.Context, token string, userID uuid.UUID) (string, error)
}

type RevealServiceImpl struct {
	tokens  repository.TokenRepository
	secrets repository.SecretRepository
	ttl     time.Duration
}

// NewRevealService constructs RevealTokenService. ttl <= 0 falls back to 15 minutes.
func NewRevealService(tokens repository.TokenRepository, secretRepo repository.SecretRepository, ttl time.Duration) *RevealServiceImpl {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RevealServiceImpl{tokens: tokens, secrets: secretRepo, ttl: ttl}
}

// Issue mints and stores a single-use token.
func (s *RevealServiceImpl) Issue(ctx context.Context, orgSlug string, userID uuid.UUID) (model.RevealGrant, error) {
	if orgSlug == "" || userID == uuid.Nil {
		return model.RevealGrant{}, fmt.Errorf("empty org/user: %w", errs.ErrInvalidInput)
	}
	tok, err := secrets.NewToken()
	if err != nil {
		return model.RevealGrant{}, err
	}
	exp := time.Now().Add(s.ttl)
	if err := s.tokens.Insert(ctx, &model.RevealToken{
		Token:     tok,
		OrgSlug:   orgSlug,
		UserID:    userID,
		ExpiresAt: exp,
	}); err != nil {
		return model.RevealGrant{}, err
	}
	return model.RevealGrant{Token: tok, ExpiresAt: exp}, nil
}

// Redeem claims the token atomically, then loads the secret it guards.
func (s *RevealServiceImpl) Redeem(ctx context.Context, token string, userID uuid.UUID) (string, error) {
	if token == "" || userID == uuid.Nil {
		return "", fmt.Errorf("empty token/user: %w", errs.ErrInvalidInput)
	}
	orgSlug, err := s.tokens.Redeem(ctx, token, userID)
	if err != nil {
		return "", err
	}
	rec, err := s.secrets.Get(ctx, orgSlug)
	if err != nil {
		// token outlived its secret; nothing to disclose
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return rec.Secret, nil
}
