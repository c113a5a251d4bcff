package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned for missing, unknown or inactive credentials
	ErrUnauthorized = errors.New("invalid or missing API credential")
	// ErrRateLimited is returned when a client exceeds its request budget
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNotFound is returned by stores when a key has no entry
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects a request before any classification work
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a scan whose verdict was computed but not stored
type PersistenceError struct {
	ScanID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist scan %s: %v", e.ScanID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
