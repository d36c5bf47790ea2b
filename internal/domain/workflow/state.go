package workflow

// Stage is the coarse-grained phase of a funding request.
type Stage string

const (
	StageInitialRequest   Stage = "initial_request"
	StagePreApproved      Stage = "pre_approved"
	StageDetailsSubmitted Stage = "details_submitted"
	StageApproved         Stage = "approved"
	StageRejected         Stage = "rejected"
)

var validStages = map[Stage]bool{
	StageInitialRequest:   true,
	StagePreApproved:      true,
	StageDetailsSubmitted: true,
	StageApproved:         true,
	StageRejected:         true,
}

var terminalStages = map[Stage]bool{
	StageApproved: true,
	StageRejected: true,
}

// IsTerminal returns true if no further transitions are allowed from
// the stage.
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// IsValid returns true if the stage is a known workflow stage.
func (s Stage) IsValid() bool {
	return validStages[s]
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}
