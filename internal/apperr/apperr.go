// Error taxonomy shared by all modules. Handlers map these onto HTTP codes;
// callers branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input, rejected before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown booking/offer/driver id.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an action incompatible with the resource's current state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks an actor that does not own the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransient marks store/routing contention that is safe to retry with backoff.
	ErrTransient = errors.New("transient error")
	// ErrRouting marks a request for which no route exists; retrying the same inputs will not help.
	ErrRouting = errors.New("no route found")
)

// Validationf builds a validation error with a human-readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StatusConflict reports an action rejected because of the booking's current
// status. The status is included so callers can render a precise reason.
type StatusConflict struct {
	Action string
	Status string
}

func (e *StatusConflict) Error() string {
	return fmt.Sprintf("cannot %s: booking is %s", e.Action, e.Status)
}

func (e *StatusConflict) Unwrap() error { return ErrConflict }
