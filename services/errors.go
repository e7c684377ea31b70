package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an absent contact, rule or message.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation such as a duplicate phone.
	ErrConflict = errors.New("conflict")
)

// SendError wraps a messaging provider failure.
type SendError struct {
	Phone string
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Phone, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
