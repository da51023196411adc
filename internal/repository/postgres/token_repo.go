package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a reveal token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// Insert stores a freshly issued token.
func (r *TokenRepo) Insert(ctx context.Context, t *model.RevealToken) error {
	const q = `
INSERT INTO reveal_tokens (token, org_slug, user_id, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, t.Token, t.OrgSlug, t.UserID, t.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Redeem claims a token inside a single transaction. The SELECT FOR UPDATE
// serializes concurrent redeemers on the row: whoever commits the delete first
// wins, the loser's lookup finds no row and reports NotFound. Ownership is
// checked before expiry; on a wrong user the transaction rolls back and the
// token survives for its rightful owner.
func (r *TokenRepo) Redeem(ctx context.Context, token string, userID uuid.UUID) (string, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op once committed

	const sel = `SELECT org_slug, user_id, expires_at FROM reveal_tokens WHERE token=$1 FOR UPDATE`
	var (
		orgSlug string
		owner   uuid.UUID
		exp     time.Time
	)
	if err := tx.QueryRow(ctx, sel, token).Scan(&orgSlug, &owner, &exp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	if owner != userID {
		return "", errs.ErrWrongUser
	}

	const del = `DELETE FROM reveal_tokens WHERE token=$1`
	if _, err := tx.Exec(ctx, del, token); err != nil {
		return "", err
	}
	if time.Now().After(exp) {
		// lazy cleanup: commit the delete even though redemption fails
		if err := tx.Commit(ctx); err != nil {
			return "", err
		}
		return "", errs.ErrTokenExpired
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return orgSlug, nil
}

// DeleteExpired sweeps tokens past their TTL.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM reveal_tokens WHERE expires_at < now()`
	tag, err := r.db.Pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
