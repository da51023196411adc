// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoKey indicates the organization has no API key on file yet.
	ErrNoKey = errors.New("no api key")

	// ErrLockBusy indicates another rotation currently holds the org lock.
	ErrLockBusy = errors.New("rotation in progress")

	// ErrTokenExpired indicates a reveal token past its TTL.
	ErrTokenExpired = errors.New("reveal token expired")

	// ErrWrongUser indicates a reveal token redeemed by a user other than its issuer.
	ErrWrongUser = errors.New("reveal token issued to another user")

	// ErrAlreadyExists indicates a unique constraint violation or an active duplicate upstream.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates missing or failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller acting outside its organization.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates malformed identifiers or request payloads.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEngineNotReady indicates the cost engine has not finished bootstrapping.
	ErrEngineNotReady = errors.New("cost engine not ready")

	// ErrEngineAuth indicates the cost engine rejected the presented credential.
	ErrEngineAuth = errors.New("cost engine rejected credentials")

	// ErrEngineTimeout indicates a cost engine call exceeded its deadline.
	ErrEngineTimeout = errors.New("cost engine timeout")

	// ErrEngineUnavailable indicates a cost engine transport or server failure.
	ErrEngineUnavailable = errors.New("cost engine unavailable")
)
