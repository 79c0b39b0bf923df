package models

import "errors"

// Sentinel errors shared across the auth and article layers. Handlers map
// these onto HTTP statuses; everything else surfaces as a 5xx.
var (
	// ErrStateMismatch means the OAuth callback state did not match the
	// nonce recorded for this session. The login attempt is abandoned.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrAuth means a token could not be refreshed or validated; the
	// request proceeds as unauthenticated.
	ErrAuth = errors.New("authentication failed")

	// ErrForbidden means the current user lacks the admin flag required
	// for the attempted action.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProvider means the identity provider returned an unexpected
	// response shape.
	ErrProvider = errors.New("unexpected provider response")
)
