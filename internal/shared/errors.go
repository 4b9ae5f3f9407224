package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("session token expired")
	ErrTokenInvalid     = fmt.Errorf("session token invalid")
	ErrSessionRevoked   = fmt.Errorf("session revoked")
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrInvalidState     = fmt.Errorf("invalid oauth state")
	ErrMissingCode      = fmt.Errorf("missing authorization code")

	// Upstream service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrChannelNotFound    = fmt.Errorf("channel not found")
	ErrEmptyCompletion    = fmt.Errorf("completion service returned no text")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingPrompt   = fmt.Errorf("prompt is required")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ValidationError reports a missing or malformed caller input. Maps to a 4xx response.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError reports a failure of the identity provider, backend store, or completion service.
// Maps to a 5xx response.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// AuthorizationError reports a missing, expired, or revoked session.
// HTML routes answer it with a redirect, JSON routes with 401.
type AuthorizationError struct {
	RedirectTo string
	Err        error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("unauthorized: %v", e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// NewValidationError wraps err as a [ValidationError] for field.
func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewUpstreamError wraps err as an [UpstreamError] raised by service.
func NewUpstreamError(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

// NewAuthorizationError wraps err as an [AuthorizationError] redirecting to the login page.
func NewAuthorizationError(err error) error {
	return &AuthorizationError{RedirectTo: LoginPath, Err: err}
}

// IsValidation reports whether err carries a [ValidationError].
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err carries an [UpstreamError].
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}

// IsAuthorization reports whether err carries an [AuthorizationError] or one of the session sentinels.
func IsAuthorization(err error) bool {
	var a *AuthorizationError
	if errors.As(err, &a) {
		return true
	}
	for _, target := range []error{ErrNotAuthenticated, ErrTokenExpired, ErrTokenInvalid, ErrSessionRevoked, ErrSessionNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
