package workflow

var fundingBuilder = func() *Builder {
	b := NewBuilder()

	b.Configure(StageInitialRequest).
		Permit(TriggerPreApprove, StagePreApproved).
		Permit(TriggerReject, StageRejected)

	b.Configure(StagePreApproved).
		Permit(TriggerSubmitDetails, StageDetailsSubmitted).
		Permit(TriggerReject, StageRejected)

	// SUBMIT_DETAILS loops on details_submitted so finance can correct
	// details after a reported problem.
	b.Configure(StageDetailsSubmitted).
		Permit(TriggerSubmitDetails, StageDetailsSubmitted).
		Permit(TriggerApprove, StageApproved)

	return b
}()

// NewFundingMachine returns a machine for the funding-request lifecycle
// positioned at the given stage.
func NewFundingMachine(current Stage) *Machine {
	return fundingBuilder.Build(current)
}
