// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist, or its
	// TTL has elapsed. Expiry is a live predicate, not a deletion event,
	// so the two cases are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("not found or expired")

	// ErrValidation indicates a request with bad shape, size, or type.
	// Validation failures produce zero side effects.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited indicates the fingerprint posted within the cooldown window.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyReported indicates a second report for the same (fingerprint, post).
	ErrAlreadyReported = errors.New("already reported")

	// ErrUnauthorized indicates failed admin authentication.
	ErrUnauthorized = errors.New("unauthorized")
)

// Media pipeline failure taxonomy. Each step fails distinctly so callers
// can tell a rejected upload from a broken transcoder from a broken store.
var (
	// ErrInvalidType indicates a content type outside the image/video allowlist.
	ErrInvalidType = errors.New("invalid media type")

	// ErrTooLarge indicates an upload over the configured byte limit.
	ErrTooLarge = errors.New("file too large")

	// ErrTranscodeFailed indicates the transcoder exited nonzero.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrTranscodeTimeout indicates the transcoder hit its wall-clock bound.
	ErrTranscodeTimeout = errors.New("transcode timed out")

	// ErrStorageFailed indicates the durable object store rejected the upload.
	ErrStorageFailed = errors.New("storage failed")
)

// ErrInvalidSignature is the uniform rejection for webhook verification:
// parse failures, MAC mismatches and stale timestamps all map here.
var ErrInvalidSignature = errors.New("invalid signature")
