package lark

// Action IDs carried by card buttons. The button value is the request
// ID the action applies to.
const (
	ActionPreApprove    = "funding_preapprove"
	ActionFinalApprove  = "funding_approve"
	ActionOpenRejection = "funding_open_rejection"
	ActionOpenDetails   = "funding_open_details"
	ActionOpenProblem   = "funding_open_problem"
)

// Callback IDs of submitted modal forms. Private metadata carries the
// request ID for every form except the initial submission.
const (
	CallbackSubmitRequest  = "funding_submit"
	CallbackFinanceDetails = "funding_finance_details"
	CallbackRejection      = "funding_rejection"
	CallbackProblemReport  = "funding_problem_report"
)

// Form field block IDs.
const (
	FieldAmount        = "amount"
	FieldReason        = "reason"
	FieldRequestedDate = "requested_date"
	FieldMethod        = "method"
	FieldNotes         = "notes"
	FieldChequeNumber  = "cheque_number"
	FieldChequeBank    = "cheque_bank"
	FieldChequeDate    = "cheque_date"
	FieldChequeOrder   = "cheque_order"
	FieldChequeProofs  = "cheque_proofs"
	FieldRejectReason  = "rejection_reason"
	FieldProblemType   = "problem_type"
	FieldProblemDesc   = "problem_description"
)
