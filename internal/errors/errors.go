package errors

import (
	"errors"
	"fmt"
)

// Common error types for the academy portal
var (
	// Login errors
	ErrInvalidServerResponse = errors.New("invalid server response")
	ErrNotAuthenticated      = errors.New("not authenticated")

	// Role errors
	ErrUnknownRole  = errors.New("unknown role")
	ErrRoleMismatch = errors.New("role mismatch")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedRecord    = errors.New("malformed session record")

	// Upstream errors
	ErrUpstream = errors.New("upstream request failed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
