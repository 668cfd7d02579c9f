package scheduling

import (
	"fmt"

	"vaccine-tracker-server/internal/models"
)

// ValidationError indicates missing or malformed input. Recovered at the
// boundary as a 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates an id that does not resolve. Recovered at the
// boundary as a 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// InvalidTransitionError indicates the state machine rejected the requested
// move. Recovered at the boundary as a 400.
type InvalidTransitionError struct {
	Op   string
	From models.AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an appointment in status %q", e.Op, e.From)
}

// OwnershipError indicates the actor does not own the referenced child or
// appointment, or holds the wrong role. Recovered at the boundary as a 403.
type OwnershipError struct {
	Msg string
}

func (e *OwnershipError) Error() string { return e.Msg }

// DerivationError indicates the vaccination record could not be written
// during completion. The appointment's own transition is rolled back and the
// boundary reports a 500; the operation is safely retryable.
type DerivationError struct {
	Err error
}

func (e *DerivationError) Error() string { return "vaccination record derivation failed: " + e.Err.Error() }

func (e *DerivationError) Unwrap() error { return e.Err }
