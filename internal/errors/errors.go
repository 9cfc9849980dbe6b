package errors

import (
	"errors"
	"fmt"
)

// Common error types for the ShareFile credential lifecycle
var (
	// Redirect validation errors
	ErrSignatureInvalid = errors.New("redirect signature invalid")
	ErrStateNotFound    = errors.New("auth state not found or expired")

	// Grant errors
	ErrExchangeFailed = errors.New("authorization code exchange failed")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// Gateway errors
	ErrUnauthorized = errors.New("unauthorized after token refresh")

	// Credential store errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrConflict           = errors.New("concurrent credential replacement")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
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
