package utils

import "fmt"

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Forum API errors
	ErrForumUnreachable = "FORUM_UNREACHABLE" // network-level, after bounded retries
	ErrForumStatus      = "FORUM_STATUS"      // application-level 4xx/5xx
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrTokenRaceLost    = "TOKEN_RACE_LOST" // lost a concurrent token refresh, retry the call
	ErrRateLimited      = "RATE_LIMITED"

	// Taxonomy errors
	ErrTaxonomyUnreachable = "TAXONOMY_UNREACHABLE"
	ErrTaxonomyLoad        = "TAXONOMY_LOAD"

	// Vault errors
	ErrVaultUnavailable = "VAULT_UNAVAILABLE"

	// Actor communication errors
	ErrActorTimeout    = "ACTOR_TIMEOUT"
	ErrActorNotFound   = "ACTOR_NOT_FOUND"
	ErrMessageRejected = "MESSAGE_REJECTED"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewForumUnreachableError(op string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrForumUnreachable,
		Message: "forum unreachable during " + op,
		Origin:  originalErr,
	}
}

func NewForumStatusError(op string, status int) *AppError {
	return &AppError{
		Code:    ErrForumStatus,
		Message: fmt.Sprintf("forum returned status %d during %s", status, op),
	}
}

// NewTokenRaceLostError marks a caller that observed an expired token but lost
// the refresh attempt to a concurrent caller. The whole call should be retried;
// this is not an HTTP failure and must never be reported as one.
func NewTokenRaceLostError() *AppError {
	return &AppError{
		Code:    ErrTokenRaceLost,
		Message: "lost the token refresh race",
	}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrActorNotFound:
		return 404
	case ErrInvalidInput:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrDuplicate:
		return 409
	case ErrRateLimited:
		return 429
	default:
		return 500
	}
}
