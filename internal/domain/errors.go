package domain

import "errors"

// Integration error taxonomy. Each sentinel marks one failure class so
// callers can branch with errors.Is without parsing messages; the wrapped
// detail carries the backend's own wording.
var (
	// ErrMissingConfig: a required credential or endpoint is absent; detected
	// before any network call is attempted.
	ErrMissingConfig = errors.New("required configuration missing")
	// ErrInvalidDraft: the invoice draft violates a structural invariant
	// (totals mismatch, empty lines, bad identifiers).
	ErrInvalidDraft = errors.New("invalid invoice draft")
	// ErrTransport: connection, DNS or timeout failure; never interpreted as
	// a business rejection.
	ErrTransport = errors.New("transport failure")
	// ErrAuthentication: the handshake produced no usable session.
	ErrAuthentication = errors.New("authentication failed")
	// ErrSessionExpired: the backend signalled that a cached session is no
	// longer valid; the caller drops it and may authenticate again.
	ErrSessionExpired = errors.New("session expired")
)
