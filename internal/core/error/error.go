package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "key not found"
)

// Sentinel errors for the engine's failure taxonomy. AppError values wrap one
// of these so call sites can branch with errors.Is without inspecting status
// codes.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrValidation      = errors.New("validation failed")
	ErrLLMService      = errors.New("llm service unavailable")
	ErrPersistence     = errors.New("persistence failed")
	ErrDuplicate       = errors.New("duplicate record")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// SessionNotFound marks a session id that is unknown or has expired. This is a
// normal outcome for Get on an idle session, not a transport failure.
func SessionNotFound(sessionID string) *AppError {
	return New(fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID), http.StatusNotFound, "session not found")
}

// Validation marks malformed structured input. Never retried.
func Validation(cause error, message string) *AppError {
	if cause == nil {
		cause = ErrValidation
	} else {
		cause = fmt.Errorf("%w: %v", ErrValidation, cause)
	}
	return New(cause, http.StatusBadRequest, message)
}

// LLMService marks an LLM call that failed after the retry budget.
func LLMService(cause error) *AppError {
	return New(fmt.Errorf("%w: %v", ErrLLMService, cause), http.StatusBadGateway, "llm request failed")
}

// Persistence marks a database commit that failed after the retry budget.
func Persistence(cause error) *AppError {
	return New(fmt.Errorf("%w: %v", ErrPersistence, cause), http.StatusBadGateway, "persistence operation failed")
}

// Duplicate marks a record that already exists (same normalized phone).
func Duplicate(message string) *AppError {
	return New(ErrDuplicate, http.StatusConflict, message)
}

// Retryable reports whether an operation that produced err is worth retrying.
// Validation failures, duplicates and missing sessions are deterministic and
// retrying them cannot help.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrSessionNotFound):
		return false
	}
	return true
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
