package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code accepted by the caisse.
type Currency string

const (
	CurrencyXOF Currency = "XOF"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrencies is the funding currency whitelist used when the
// configuration does not override it.
var DefaultCurrencies = []Currency{CurrencyXOF, CurrencyUSD, CurrencyEUR}

// TransactionType classifies ledger transactions.
type TransactionType string

const (
	// TransactionFunding credits a currency balance when a funding
	// request reaches final approval.
	TransactionFunding TransactionType = "Funding"
)

// Transaction is one append-only ledger entry. Entries are never
// mutated or removed once recorded.
type Transaction struct {
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  Currency        `json:"currency"`
	RequestID string          `json:"request_id"`
	Details   string          `json:"details"`
	Timestamp time.Time       `json:"timestamp"`
}

// CashBox is the single ledger aggregate: multi-currency balances, the
// transaction history and every funding request ever submitted. It is
// persisted as one document; Version carries the optimistic-lock
// counter and is not part of the document body.
type CashBox struct {
	ID              string                       `json:"id"`
	Balances        map[Currency]decimal.Decimal `json:"balances"`
	Transactions    []Transaction                `json:"transactions"`
	LatestRequestID string                       `json:"latest_request_id,omitempty"`
	FundingRequests []*FundingRequest            `json:"funding_requests"`

	Version int64 `json:"-"`
}

// NewCashBox creates an empty cash box document.
func NewCashBox(id string) *CashBox {
	return &CashBox{
		ID:       id,
		Balances: make(map[Currency]decimal.Decimal),
	}
}

// FindRequest returns the embedded funding request with the given ID,
// or nil when no such request exists.
func (cb *CashBox) FindRequest(requestID string) *FundingRequest {
	for _, req := range cb.FundingRequests {
		if req.RequestID == requestID {
			return req
		}
	}
	return nil
}

// Credit increases the balance of the given currency. Funding never
// decreases a balance, so balances stay non-negative by construction.
func (cb *CashBox) Credit(currency Currency, amount decimal.Decimal) {
	if cb.Balances == nil {
		cb.Balances = make(map[Currency]decimal.Decimal)
	}
	cb.Balances[currency] = cb.Balances[currency].Add(amount)
}

// Balance returns the current balance for a currency, zero when the
// currency has never been funded.
func (cb *CashBox) Balance(currency Currency) decimal.Decimal {
	return cb.Balances[currency]
}
