package caisse

import (
	"time"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

// applyApproval credits the request amount to its currency balance and
// appends the Funding transaction. It is applied exactly once per
// request, enforced by the terminal-state guard upstream, and is the
// only operation that mutates balances.
func applyApproval(box *models.CashBox, req *models.FundingRequest, at time.Time) {
	box.Credit(req.Currency, req.Amount)
	box.Transactions = append(box.Transactions, models.Transaction{
		Type:      models.TransactionFunding,
		Amount:    req.Amount,
		Currency:  req.Currency,
		RequestID: req.RequestID,
		Details:   req.Reason,
		Timestamp: at,
	})
	box.LatestRequestID = req.RequestID
}
