package workflow

// Trigger is an event that can cause a stage transition.
type Trigger string

const (
	TriggerPreApprove    Trigger = "PRE_APPROVE"
	TriggerSubmitDetails Trigger = "SUBMIT_DETAILS"
	TriggerApprove       Trigger = "APPROVE"
	TriggerReject        Trigger = "REJECT"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
