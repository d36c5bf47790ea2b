package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the user-visible status of a funding request. The
// machine-facing stage lives in Workflow.Stage; both advance together.
type RequestStatus string

const (
	StatusPending         RequestStatus = "En attente"
	StatusPreApproved     RequestStatus = "Pré-approuvé"
	StatusDetailsProvided RequestStatus = "Détails fournis"
	StatusValidated       RequestStatus = "Validé"
	StatusRejected        RequestStatus = "Rejeté"
)

// IsTerminal reports whether the status admits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// DisbursementMethod is how approved funds are paid out.
type DisbursementMethod string

const (
	MethodCash   DisbursementMethod = "cash"
	MethodCheque DisbursementMethod = "cheque"
)

// IsValid reports whether the method is one of the supported values.
func (m DisbursementMethod) IsValid() bool {
	return m == MethodCash || m == MethodCheque
}

// Display returns the French display form stored on the request.
func (m DisbursementMethod) Display() string {
	switch m {
	case MethodCash:
		return "Espèces"
	case MethodCheque:
		return "Chèque"
	default:
		return string(m)
	}
}

// ChequeDetails identifies the cheque used for disbursement. All four
// identifying fields are mandatory when the method is cheque.
type ChequeDetails struct {
	Number  string   `json:"number"`
	Bank    string   `json:"bank"`
	Date    string   `json:"date"`
	Order   string   `json:"order"`
	URLs    []string `json:"urls,omitempty"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// PaymentDetails is attached by finance once the disbursement method is
// finalized.
type PaymentDetails struct {
	Method     DisbursementMethod `json:"method"`
	Notes      string             `json:"notes,omitempty"`
	ApprovedBy string             `json:"approved_by"`
	ApprovedAt time.Time          `json:"approved_at"`
	Cheque     *ChequeDetails     `json:"cheque,omitempty"`
}

// Issue is a reported problem on a not-yet-finalized request.
type Issue struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	ReportedBy  string    `json:"reported_by"`
	ReportedAt  time.Time `json:"reported_at"`
}

// HistoryEntry is one append-only audit-trail record.
type HistoryEntry struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details,omitempty"`
}

// RequestWorkflow tracks the coarse machine stage and the audit trail.
type RequestWorkflow struct {
	Stage   string         `json:"stage"`
	History []HistoryEntry `json:"history"`
}

// FundingRequest is a requester's ask for cash replenishment, embedded
// in its owning CashBox and identified by RequestID
// (FUND/<year>/<month>/<sequence>).
type FundingRequest struct {
	RequestID     string          `json:"request_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      Currency        `json:"currency"`
	Reason        string          `json:"reason"`
	RequestedDate string          `json:"requested_date"`
	SubmittedBy   string          `json:"submitted_by"`
	SubmittedByID string          `json:"submitted_by_id"`

	Status   RequestStatus   `json:"status"`
	Workflow RequestWorkflow `json:"workflow"`

	PaymentDetails   *PaymentDetails `json:"payment_details,omitempty"`
	DisbursementType string          `json:"disbursement_type,omitempty"`

	Issues          []Issue `json:"issues,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`

	ApprovedBy    string     `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	PreApprovedBy string     `json:"pre_approved_by,omitempty"`
	PreApprovedAt *time.Time `json:"pre_approved_at,omitempty"`
}

// RecordHistory appends an audit-trail entry for the given stage.
func (r *FundingRequest) RecordHistory(stage string, actor, details string, at time.Time) {
	r.Workflow.History = append(r.Workflow.History, HistoryEntry{
		Stage:     stage,
		Timestamp: at,
		Actor:     actor,
		Details:   details,
	})
}
