package config

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates an input value failed validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeConfigFile indicates the YAML config file could not be read or
	// does not satisfy the schema.
	ErrCodeConfigFile ErrorCode = "CONFIG_FILE"

	// ErrCodeEnvFile indicates the .env file could not be read.
	ErrCodeEnvFile ErrorCode = "ENV_FILE"
)

// Error is returned by Load and the input parsers.
type Error struct {
	Code    ErrorCode
	Input   string // input name, if the error concerns a single input
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Input != "" {
		msg = fmt.Sprintf("input %q: %s", e.Input, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidInput returns true if err is an input validation error.
func IsInvalidInput(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidInput
	}
	return false
}
