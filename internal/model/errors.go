package model

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses at
// the handler layer. Wrap them with fmt.Errorf("...: %w", Err...) so the
// original context survives errors.Is checks.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid argument")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrQuotaExceeded     = errors.New("monthly video quota exceeded")
	ErrDurationExceeded  = errors.New("duration exceeds tier limit")
	ErrFileSizeExceeded  = errors.New("file size exceeds tier limit")
	ErrConflictingJob    = errors.New("another render is already in progress")
	ErrUpstream          = errors.New("upstream service failure")
	ErrInvalidTransition = errors.New("invalid status transition")
)
