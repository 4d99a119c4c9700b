package core

import (
	"errors"
	"fmt"
)

// Error classes surfaced to the user at the CLI/HTTP boundary.
var (
	// ErrConfig marks a configuration error: the run halts, the host stays usable.
	ErrConfig = errors.New("configuration error")
	// ErrInput marks an unreadable or undecodable upload.
	ErrInput = errors.New("input error")
)

// NewConfigError wraps a message as a configuration error.
func NewConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// NewInputError wraps a message as an input error.
func NewInputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInput)
}
