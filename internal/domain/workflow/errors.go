package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted
	// from the current stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrInvalidStage is returned when a stage is not a known workflow
	// stage.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrGuardFailed is returned when every candidate transition for a
	// trigger is blocked by its guard.
	ErrGuardFailed = errors.New("guard condition failed")
)
