package caisse

import (
	"errors"
	"fmt"

	"github.com/dakarlabs/caisse-bot/internal/domain/workflow"
)

var (
	// ErrCashBoxNotFound is returned when an operation other than
	// Submit runs before any cash box exists.
	ErrCashBoxNotFound = errors.New("caisse introuvable")

	// ErrRequestNotFound is returned when a request ID matches no
	// embedded funding request.
	ErrRequestNotFound = errors.New("demande de fonds introuvable")

	// ErrAlreadyFinalized is the duplicate-approval guard: once a
	// request is terminal it cannot be mutated again.
	ErrAlreadyFinalized = errors.New("demande déjà finalisée")
)

// ValidationError carries a user-facing corrective message. Validation
// failures never reach the store: no state mutation occurs.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a user-facing validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGuard reports whether err is a guard violation, an illegal stage
// transition or a lookup miss, all surfaced to the user as an ephemeral
// notice without mutation.
func IsGuard(err error) bool {
	return errors.Is(err, ErrAlreadyFinalized) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrCashBoxNotFound) ||
		errors.Is(err, workflow.ErrInvalidTransition) ||
		errors.Is(err, workflow.ErrGuardFailed)
}
