package caisse

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

// memStore keeps the cash box document in memory with the same
// all-or-nothing mutation semantics as the SQLite repository: fn runs
// on a copy and only a successful fn replaces the stored document.
type memStore struct {
	box *models.CashBox
}

func (s *memStore) Get(ctx context.Context) (*models.CashBox, error) {
	if s.box == nil {
		return nil, nil
	}
	return s.copyBox(), nil
}

func (s *memStore) Mutate(ctx context.Context, fn func(box *models.CashBox) error) error {
	box := s.copyBox()
	if box == nil {
		box = models.NewCashBox("caisse")
	}
	if err := fn(box); err != nil {
		return err
	}
	s.box = box
	return nil
}

func (s *memStore) copyBox() *models.CashBox {
	if s.box == nil {
		return nil
	}
	raw, err := json.Marshal(s.box)
	if err != nil {
		panic(err)
	}
	var box models.CashBox
	if err := json.Unmarshal(raw, &box); err != nil {
		panic(err)
	}
	return &box
}

type memSequencer struct {
	seq int64
}

func (s *memSequencer) NextSeq(ctx context.Context, year, month int) (int64, error) {
	s.seq++
	return s.seq, nil
}

type memNotifier struct {
	messages []string
}

func (n *memNotifier) PostMessage(ctx context.Context, target, text string) error {
	n.messages = append(n.messages, target+": "+text)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *memStore, *memNotifier) {
	t.Helper()
	store := &memStore{}
	notifier := &memNotifier{}
	engine := NewEngine(store, &memSequencer{}, notifier, Config{
		Banks:          []string{"CBAO", "SGBS"},
		AdminChannel:   "oc_admin",
		FinanceChannel: "oc_finance",
	}, zap.NewNop())
	return engine, store, notifier
}

func submit(t *testing.T, e *Engine, amount string) *models.FundingRequest {
	t.Helper()
	req, err := e.Submit(context.Background(), SubmitInput{
		SubmittedBy:   "Awa",
		SubmittedByID: "ou_awa",
		Amount:        amount,
		Reason:        "Fournitures de bureau",
		RequestedDate: "2026-09-05",
	})
	require.NoError(t, err)
	return req
}

func cashDetails() FinanceDetailsInput {
	return FinanceDetailsInput{Actor: "Fatou", Method: models.MethodCash}
}

func chequeDetails() FinanceDetailsInput {
	return FinanceDetailsInput{
		Actor:  "Fatou",
		Method: models.MethodCheque,
		Cheque: &ChequeInput{
			Number: "0042317",
			Bank:   "CBAO",
			Date:   "2026-09-05",
			Order:  "DakarLabs SARL",
		},
	}
}

func TestEngine_SubmitAllocatesSequentialIDs(t *testing.T) {
	engine, store, notifier := newTestEngine(t)

	first := submit(t, engine, "1000 XOF")
	second := submit(t, engine, "200 USD")

	assert.Regexp(t, `^FUND/\d{4}/\d{2}/0001$`, first.RequestID)
	assert.Regexp(t, `^FUND/\d{4}/\d{2}/0002$`, second.RequestID)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, "initial_request", first.Workflow.Stage)
	assert.Len(t, first.Workflow.History, 1)

	box, err := store.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, box)
	assert.Len(t, box.FundingRequests, 2)
	assert.True(t, box.Balance(models.CurrencyXOF).IsZero(), "submission must not touch balances")
	assert.NotEmpty(t, notifier.messages)
}

func TestEngine_SubmitRejectsBadAmountWithoutMutation(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	_, err := engine.Submit(context.Background(), SubmitInput{
		SubmittedBy: "Awa", SubmittedByID: "ou_awa",
		Amount: "beaucoup", Reason: "x", RequestedDate: "2026-09-05",
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	box, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, box, "a validation failure must not create the cash box")
}

func TestEngine_FullApprovalCreditsBalance(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")

	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)

	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, cashDetails())
	require.NoError(t, err)

	approved, err := engine.FinalApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, approved.Status)
	assert.Equal(t, "approved", approved.Workflow.Stage)
	assert.Equal(t, "Moussa", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	box, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, box.Balance(models.CurrencyXOF).Equal(decimal.NewFromInt(1000)))
	require.Len(t, box.Transactions, 1)
	assert.Equal(t, models.TransactionFunding, box.Transactions[0].Type)
	assert.Equal(t, req.RequestID, box.Transactions[0].RequestID)
	assert.Equal(t, req.RequestID, box.LatestRequestID)
}

func TestEngine_DuplicateFinalApproveIsRejected(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)
	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, cashDetails())
	require.NoError(t, err)
	_, err = engine.FinalApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)

	_, err = engine.FinalApprove(ctx, req.RequestID, "Moussa")
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.True(t, IsGuard(err))

	box, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, box.Balance(models.CurrencyXOF).Equal(decimal.NewFromInt(1000)),
		"balance must be credited exactly once")
	assert.Len(t, box.Transactions, 1)
}

func TestEngine_RejectBeforePreApproval(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "500 EUR")
	rejected, err := engine.Reject(ctx, req.RequestID, "Moussa", "Budget épuisé")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "rejected", rejected.Workflow.Stage)
	assert.Equal(t, "Budget épuisé", rejected.RejectionReason)

	box, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, box.Balance(models.CurrencyEUR).IsZero())
	assert.Empty(t, box.Transactions)
	assert.Empty(t, box.LatestRequestID)
}

func TestEngine_RejectRequiresReason(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	req := submit(t, engine, "500 EUR")

	_, err := engine.Reject(context.Background(), req.RequestID, "Moussa", "  ")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestEngine_ChequeRequiresAllFields(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)

	in := chequeDetails()
	in.Cheque.Bank = ""
	in.Cheque.Order = ""
	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, in)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "banque")
	assert.Contains(t, err.Error(), "ordre")

	stored, err := engine.GetRequest(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "pre_approved", stored.Workflow.Stage, "failed validation must not advance the stage")
	assert.Nil(t, stored.PaymentDetails)
}

func TestEngine_ChequeRejectsUnknownBank(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)

	in := chequeDetails()
	in.Cheque.Bank = "Banque Fantôme"
	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, in)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "CBAO")
}

func TestEngine_ChequeDetailsAreStored(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)

	updated, err := engine.SubmitFinanceDetails(ctx, req.RequestID, chequeDetails())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDetailsProvided, updated.Status)
	assert.Equal(t, "Chèque", updated.DisbursementType)
	require.NotNil(t, updated.PaymentDetails)
	require.NotNil(t, updated.PaymentDetails.Cheque)
	assert.Equal(t, "0042317", updated.PaymentDetails.Cheque.Number)
	assert.Equal(t, "CBAO", updated.PaymentDetails.Cheque.Bank)
}

func TestEngine_ProblemReportAndCorrectionLoop(t *testing.T) {
	engine, _, notifier := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)
	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, chequeDetails())
	require.NoError(t, err)

	reported, err := engine.ReportProblem(ctx, req.RequestID, ProblemInput{
		Reporter:    "Awa",
		Type:        "cheque",
		Description: "Le numéro de chèque est erroné",
	})
	require.NoError(t, err)
	require.Len(t, reported.Issues, 1)
	assert.Equal(t, "details_submitted", reported.Workflow.Stage, "a report must not change the stage")

	// Finance corrects the details without leaving details_submitted.
	fixed := chequeDetails()
	fixed.Cheque.Number = "0042318"
	corrected, err := engine.SubmitFinanceDetails(ctx, req.RequestID, fixed)
	require.NoError(t, err)
	assert.Equal(t, "details_submitted", corrected.Workflow.Stage)
	assert.Equal(t, "0042318", corrected.PaymentDetails.Cheque.Number)

	approved, err := engine.FinalApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, approved.Status)
	assert.NotEmpty(t, notifier.messages)
}

func TestEngine_ProblemReportBlockedOnceValidated(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)
	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, cashDetails())
	require.NoError(t, err)
	_, err = engine.FinalApprove(ctx, req.RequestID, "Moussa")
	require.NoError(t, err)

	_, err = engine.ReportProblem(ctx, req.RequestID, ProblemInput{
		Reporter: "Awa", Description: "Trop tard",
	})
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestEngine_ProblemReportAllowedOnRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")
	_, err := engine.Reject(ctx, req.RequestID, "Moussa", "Doublon")
	require.NoError(t, err)

	reported, err := engine.ReportProblem(ctx, req.RequestID, ProblemInput{
		Reporter: "Awa", Description: "Ce n'était pas un doublon",
	})
	require.NoError(t, err)
	assert.Len(t, reported.Issues, 1)
	assert.Equal(t, models.StatusRejected, reported.Status)
}

func TestEngine_InvalidTransitionsSurfaceAsGuards(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := submit(t, engine, "1000 XOF")

	// Final approval straight from submission skips two stages.
	_, err := engine.FinalApprove(ctx, req.RequestID, "Moussa")
	require.Error(t, err)
	assert.True(t, IsGuard(err))

	// Details before pre-approval.
	_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, cashDetails())
	require.Error(t, err)
	assert.True(t, IsGuard(err))

	stored, err := engine.GetRequest(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "initial_request", stored.Workflow.Stage)
}

func TestEngine_UnknownRequest(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	submit(t, engine, "1000 XOF")

	_, err := engine.PreApprove(ctx, "FUND/2026/09/9999", "Moussa")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = engine.GetRequest(ctx, "FUND/2026/09/9999")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestEngine_GetCashBoxBeforeFirstSubmission(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.GetCashBox(context.Background())
	assert.ErrorIs(t, err, ErrCashBoxNotFound)
}

func TestEngine_MultiCurrencyBalancesAreIndependent(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	approve := func(amount string) {
		req := submit(t, engine, amount)
		_, err := engine.PreApprove(ctx, req.RequestID, "Moussa")
		require.NoError(t, err)
		_, err = engine.SubmitFinanceDetails(ctx, req.RequestID, cashDetails())
		require.NoError(t, err)
		_, err = engine.FinalApprove(ctx, req.RequestID, "Moussa")
		require.NoError(t, err)
	}

	approve("1000 XOF")
	approve("250.50 EUR")
	approve("2500 XOF")

	box, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, box.Balance(models.CurrencyXOF).Equal(decimal.NewFromInt(3500)))
	assert.True(t, box.Balance(models.CurrencyEUR).Equal(decimal.RequireFromString("250.5")))
	assert.True(t, box.Balance(models.CurrencyUSD).IsZero())
	assert.Len(t, box.Transactions, 3)
}
