package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and outbound clients return
// these (optionally wrapped) so services can translate them into domain errors
// or conversation replies.
//
// These represent factual states, not validation failures:
// - ErrNotFound: the upstream or store has no such record
// - ErrUnauthorized: the upstream rejected our credentials
// - ErrUnavailable: the upstream could not be reached or answered 5xx
// - ErrNotConfigured: credentials or keys required for the call are missing
//
// For per-field input problems, use the wizard's FieldErrors instead.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnavailable   = errors.New("unavailable")
	ErrNotConfigured = errors.New("not configured")
)
