package restore

import (
	"errors"
	"fmt"

	"github.com/roach88/cacherestore/internal/config"
)

// ErrorCode categorizes fatal restore errors.
type ErrorCode string

const (
	// ErrCodeInvalidEvent indicates the triggering event is not tied to a ref.
	ErrCodeInvalidEvent ErrorCode = "INVALID_EVENT"

	// ErrCodeNotFound indicates no cache was found and fail-on asked for a failure.
	ErrCodeNotFound ErrorCode = "CACHE_NOT_FOUND"

	// ErrCodeNotRestored indicates a cache was found but could not be restored,
	// and fail-on asked for a failure.
	ErrCodeNotRestored ErrorCode = "CACHE_NOT_RESTORED"
)

// Error is a fatal restore error. Its message is what the failure signal carries.
type Error struct {
	Code    ErrorCode
	Message string
	// Key is the key that was looked up or restored, if any.
	Key string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// IsInvalidEvent returns true if err is an invalid event error.
func IsInvalidEvent(err error) bool {
	return hasCode(err, ErrCodeInvalidEvent)
}

// IsNotFound returns true if err is a fail-on miss.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsNotRestored returns true if err is a fail-on restore failure.
func IsNotRestored(err error) bool {
	return hasCode(err, ErrCodeNotRestored)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewInvalidEventError creates the error for an event without a ref.
func NewInvalidEventError(event string) *Error {
	return &Error{
		Code: ErrCodeInvalidEvent,
		Message: fmt.Sprintf(
			"Event Validation Error: The event type %s is not supported because it's not tied to a branch or tag ref.",
			event),
	}
}

// NewNotFoundError creates the fail-on error for a miss.
func NewNotFoundError(key string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: failOnMessage("was found"), Key: key}
}

// NewNotRestoredError creates the fail-on error for a failed restore.
func NewNotRestoredError(key string) *Error {
	return &Error{Code: ErrCodeNotRestored, Message: failOnMessage("could be restored"), Key: key}
}

func failOnMessage(what string) string {
	return fmt.Sprintf("No cache with the given key %s. Exiting as the input %q is set.", what, config.InputFailOn)
}
