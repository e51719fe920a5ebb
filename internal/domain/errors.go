package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the prediction path wraps one of these
// so the HTTP layer can pick a status with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrUpstreamModel   = errors.New("upstream model error")
	ErrDataUnavailable = errors.New("data unavailable")
)

// Validationf builds an ErrValidation with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps a scoring failure of the named model.
func Upstream(model string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamModel, model, err)
}

// Unavailable wraps a failure to load startup data.
func Unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDataUnavailable, what, err)
}
