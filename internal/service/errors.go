// Package service holds what the business services share.
package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks validation failures; handlers answer 400.
var ErrInvalidInput = errors.New("invalid input")

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
