// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across gateway/session layers.
var (
	// ErrTokenExpired indicates the stored bearer token is missing or past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnauthorized indicates the backend rejected the credentials (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates access was denied for an authenticated caller (403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the backend throttled the request (429).
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates a backend-side failure (5xx).
	ErrServer = errors.New("server error")

	// ErrNetwork indicates no response reached the client at all.
	ErrNetwork = errors.New("network error")

	// ErrBackendRejected indicates a 2xx response that reports failure in its body.
	ErrBackendRejected = errors.New("backend rejected request")

	// ErrValidation indicates a client-side form check failed before any network call.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthenticated indicates an operation that requires a logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated (login required)")
)
