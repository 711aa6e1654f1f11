package core

import (
	"errors"
	"fmt"
)

// ErrorCategory distinguishes external-service failures for user-facing
// status messages.
type ErrorCategory string

const (
	ErrorAuth        ErrorCategory = "authentication"
	ErrorRateLimited ErrorCategory = "rate-limited"
	ErrorTimeout     ErrorCategory = "timed-out"
	ErrorGeneric     ErrorCategory = "generic"
)

// ServiceError is a failure of the completion or classification backend.
type ServiceError struct {
	Category ErrorCategory
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error (%s): %v", e.Category, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err with a category.
func NewServiceError(category ErrorCategory, err error) *ServiceError {
	return &ServiceError{Category: category, Err: err}
}

// CategoryOf extracts the category from an error chain, defaulting to
// ErrorGeneric.
func CategoryOf(err error) ErrorCategory {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorGeneric
}

// StreamError is a history-stream failure mid-scan. Partial results
// accumulated before the failure are still usable.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("history stream: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ErrNoMessages is the normal terminal state of a scan that matched nothing.
// It is not a failure and must be reported to the user as such.
var ErrNoMessages = errors.New("no matching messages")
