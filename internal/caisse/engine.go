package caisse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/domain/workflow"
	"github.com/dakarlabs/caisse-bot/internal/models"
)

// Config is the immutable engine configuration, loaded once at process
// start. Option lists (currencies, banks) are injected here rather than
// living as package-level mutable state.
type Config struct {
	Currencies     []models.Currency
	Banks          []string
	AdminChannel   string
	FinanceChannel string
}

// Engine owns the funding-request workflow: stage transitions, guards,
// ledger mutation and the follow-up notifications owed to the chat
// gateway. Persisted mutations are the source of truth; notification
// failures are logged and never roll anything back.
type Engine struct {
	store    Store
	seq      Sequencer
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
}

// NewEngine creates a workflow engine.
func NewEngine(store Store, seq Sequencer, notifier Notifier, cfg Config, logger *zap.Logger) *Engine {
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = models.DefaultCurrencies
	}
	return &Engine{
		store:    store,
		seq:      seq,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// SubmitInput is a requester's funding submission.
type SubmitInput struct {
	SubmittedBy   string
	SubmittedByID string
	Amount        string
	Reason        string
	RequestedDate string
}

// Submit validates the submission, allocates a request ID and appends
// the request in its initial stage. The cash box is created lazily on
// the first valid submission; a validation failure mutates nothing.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (*models.FundingRequest, error) {
	parsed, err := ParseAmount(in.Amount, e.cfg.Currencies)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seq, err := e.seq.NextSeq(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return nil, fmt.Errorf("allocate request sequence: %w", err)
	}
	requestID := fmt.Sprintf("FUND/%04d/%02d/%04d", now.Year(), int(now.Month()), seq)

	req := &models.FundingRequest{
		RequestID:     requestID,
		Amount:        parsed.Amount,
		Currency:      parsed.Currency,
		Reason:        in.Reason,
		RequestedDate: in.RequestedDate,
		SubmittedBy:   in.SubmittedBy,
		SubmittedByID: in.SubmittedByID,
		Status:        models.StatusPending,
		Workflow: models.RequestWorkflow{
			Stage: workflow.StageInitialRequest.String(),
		},
	}
	req.RecordHistory(workflow.StageInitialRequest.String(), in.SubmittedBy, "Demande soumise", now)

	err = e.store.Mutate(ctx, func(box *models.CashBox) error {
		e.ensureBalances(box)
		if box.FindRequest(requestID) != nil {
			return fmt.Errorf("request %s already exists", requestID)
		}
		box.FundingRequests = append(box.FundingRequests, req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, e.cfg.AdminChannel, fmt.Sprintf(
		"Nouvelle demande de fonds %s : %s %s — %s (par %s)",
		requestID, parsed.Amount.String(), parsed.Currency, in.Reason, in.SubmittedBy))
	return req, nil
}

// PreApprove moves a pending request to pre-approved. No balance
// change; finance is prompted for disbursement details.
func (e *Engine) PreApprove(ctx context.Context, requestID, actor string) (*models.FundingRequest, error) {
	req, err := e.transition(ctx, requestID, workflow.TriggerPreApprove,
		func(box *models.CashBox, req *models.FundingRequest, now time.Time) error {
			req.Status = models.StatusPreApproved
			req.PreApprovedBy = actor
			req.PreApprovedAt = &now
			req.RecordHistory(workflow.StagePreApproved.String(), actor, "Pré-approbation", now)
			return nil
		})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, e.cfg.FinanceChannel, fmt.Sprintf(
		"La demande %s est pré-approuvée. Merci de renseigner les détails de décaissement.", requestID))
	return req, nil
}

// ChequeInput carries the cheque bundle required when the disbursement
// method is cheque.
type ChequeInput struct {
	Number  string
	Bank    string
	Date    string
	Order   string
	URLs    []string
	FileIDs []string
}

// FinanceDetailsInput is the finance collaborator's disbursement form.
type FinanceDetailsInput struct {
	Actor  string
	Method models.DisbursementMethod
	Notes  string
	Cheque *ChequeInput
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(needle)) {
			return true
		}
	}
	return false
}

// missingChequeFields lists the empty mandatory cheque fields.
func missingChequeFields(in *ChequeInput) []string {
	if in == nil {
		return []string{"numéro", "banque", "date", "ordre"}
	}
	var missing []string
	if strings.TrimSpace(in.Number) == "" {
		missing = append(missing, "numéro")
	}
	if strings.TrimSpace(in.Bank) == "" {
		missing = append(missing, "banque")
	}
	if strings.TrimSpace(in.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(in.Order) == "" {
		missing = append(missing, "ordre")
	}
	return missing
}

// SubmitFinanceDetails attaches the disbursement method to a
// pre-approved request. Cheque disbursement requires number, bank, date
// and order; missing fields abort before any mutation. The transition
// re-enters from details_submitted so reported problems can be fixed.
func (e *Engine) SubmitFinanceDetails(ctx context.Context, requestID string, in FinanceDetailsInput) (*models.FundingRequest, error) {
	if !in.Method.IsValid() {
		return nil, validationf("Méthode de décaissement %q non reconnue (cash ou cheque).", in.Method)
	}

	var cheque *models.ChequeDetails
	if in.Method == models.MethodCheque {
		missing := missingChequeFields(in.Cheque)
		if len(missing) > 0 {
			return nil, validationf(
				"Champs obligatoires manquants pour un décaissement par chèque : %s.",
				strings.Join(missing, ", "))
		}
		if len(e.cfg.Banks) > 0 && !containsFold(e.cfg.Banks, in.Cheque.Bank) {
			return nil, validationf("Banque %q non reconnue. Banques acceptées : %s.",
				in.Cheque.Bank, strings.Join(e.cfg.Banks, ", "))
		}
		cheque = &models.ChequeDetails{
			Number:  in.Cheque.Number,
			Bank:    in.Cheque.Bank,
			Date:    in.Cheque.Date,
			Order:   in.Cheque.Order,
			URLs:    in.Cheque.URLs,
			FileIDs: in.Cheque.FileIDs,
		}
	}

	req, err := e.transition(ctx, requestID, workflow.TriggerSubmitDetails,
		func(box *models.CashBox, req *models.FundingRequest, now time.Time) error {
			req.PaymentDetails = &models.PaymentDetails{
				Method:     in.Method,
				Notes:      in.Notes,
				ApprovedBy: in.Actor,
				ApprovedAt: now,
				Cheque:     cheque,
			}
			req.DisbursementType = in.Method.Display()
			req.Status = models.StatusDetailsProvided
			req.RecordHistory(workflow.StageDetailsSubmitted.String(), in.Actor,
				"Détails de décaissement : "+in.Method.Display(), now)
			return nil
		})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, e.cfg.AdminChannel, fmt.Sprintf(
		"Détails fournis pour la demande %s (%s). En attente de validation finale.",
		requestID, in.Method.Display()))
	return req, nil
}

// FinalApprove validates the request and, within the same document
// save, credits the currency balance and appends the Funding
// transaction. The terminal-state guard makes a second call a no-op
// rejection.
func (e *Engine) FinalApprove(ctx context.Context, requestID, actor string) (*models.FundingRequest, error) {
	req, err := e.transition(ctx, requestID, workflow.TriggerApprove,
		func(box *models.CashBox, req *models.FundingRequest, now time.Time) error {
			req.Status = models.StatusValidated
			req.ApprovedBy = actor
			req.ApprovedAt = &now
			req.RecordHistory(workflow.StageApproved.String(), actor, "Validation finale", now)
			applyApproval(box, req, now)
			return nil
		})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, req.SubmittedByID, fmt.Sprintf(
		"Votre demande %s a été validée : %s %s crédités à la caisse.",
		requestID, req.Amount.String(), req.Currency))
	return req, nil
}

// Reject refuses a request before final approval, recording the reason
// and the rejecting actor. No balance change.
func (e *Engine) Reject(ctx context.Context, requestID, actor, reason string) (*models.FundingRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, validationf("Merci d'indiquer le motif du rejet.")
	}

	req, err := e.transition(ctx, requestID, workflow.TriggerReject,
		func(box *models.CashBox, req *models.FundingRequest, now time.Time) error {
			req.Status = models.StatusRejected
			req.RejectionReason = reason
			req.ApprovedBy = actor
			req.ApprovedAt = &now
			req.RecordHistory(workflow.StageRejected.String(), actor, "Rejet : "+reason, now)
			return nil
		})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, req.SubmittedByID, fmt.Sprintf(
		"Votre demande %s a été rejetée : %s", requestID, reason))
	return req, nil
}

// ProblemInput is a reported problem on a request.
type ProblemInput struct {
	Reporter    string
	Type        string
	Description string
}

// ReportProblem appends an issue to a not-yet-validated request. The
// stage does not change; the admin is notified so finance can re-enter
// the details form.
func (e *Engine) ReportProblem(ctx context.Context, requestID string, in ProblemInput) (*models.FundingRequest, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, validationf("Merci de décrire le problème rencontré.")
	}

	var reported *models.FundingRequest
	err := e.store.Mutate(ctx, func(box *models.CashBox) error {
		req := box.FindRequest(requestID)
		if req == nil {
			return ErrRequestNotFound
		}
		if req.Status == models.StatusValidated {
			return ErrAlreadyFinalized
		}
		now := time.Now().UTC()
		req.Issues = append(req.Issues, models.Issue{
			Type:        in.Type,
			Description: in.Description,
			ReportedBy:  in.Reporter,
			ReportedAt:  now,
		})
		req.RecordHistory(req.Workflow.Stage, in.Reporter, "Problème signalé : "+in.Description, now)
		reported = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, e.cfg.AdminChannel, fmt.Sprintf(
		"Problème signalé sur la demande %s par %s : %s",
		requestID, in.Reporter, in.Description))
	return reported, nil
}

// GetRequest returns a funding request by ID.
func (e *Engine) GetRequest(ctx context.Context, requestID string) (*models.FundingRequest, error) {
	box, err := e.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if box == nil {
		return nil, ErrCashBoxNotFound
	}
	req := box.FindRequest(requestID)
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// GetCashBox returns the current cash box document.
func (e *Engine) GetCashBox(ctx context.Context) (*models.CashBox, error) {
	box, err := e.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if box == nil {
		return nil, ErrCashBoxNotFound
	}
	return box, nil
}

// transition runs one machine-guarded stage transition inside a single
// document mutation. The effect callback only runs when the trigger is
// legal from the request's current stage.
func (e *Engine) transition(
	ctx context.Context,
	requestID string,
	trigger workflow.Trigger,
	effect func(box *models.CashBox, req *models.FundingRequest, now time.Time) error,
) (*models.FundingRequest, error) {
	var result *models.FundingRequest
	err := e.store.Mutate(ctx, func(box *models.CashBox) error {
		req := box.FindRequest(requestID)
		if req == nil {
			return ErrRequestNotFound
		}
		if req.Status.IsTerminal() {
			return ErrAlreadyFinalized
		}

		stage := workflow.Stage(req.Workflow.Stage)
		if !stage.IsValid() {
			return fmt.Errorf("demande %s : %w: %q", requestID, workflow.ErrInvalidStage, req.Workflow.Stage)
		}
		machine := workflow.NewFundingMachine(stage)
		if err := machine.Fire(ctx, trigger); err != nil {
			return fmt.Errorf("demande %s : %w", requestID, err)
		}

		now := time.Now().UTC()
		if err := effect(box, req, now); err != nil {
			return err
		}
		req.Workflow.Stage = machine.Stage().String()
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ensureBalances seeds every whitelisted currency at zero so the first
// document carries the full balance map.
func (e *Engine) ensureBalances(box *models.CashBox) {
	if box.Balances == nil {
		box.Balances = make(map[models.Currency]decimal.Decimal, len(e.cfg.Currencies))
	}
	for _, c := range e.cfg.Currencies {
		if _, ok := box.Balances[c]; !ok {
			box.Balances[c] = decimal.Zero
		}
	}
}

// notify posts a follow-up chat message, logging failures instead of
// propagating them.
func (e *Engine) notify(ctx context.Context, target, text string) {
	if target == "" || e.notifier == nil {
		return
	}
	if err := e.notifier.PostMessage(ctx, target, text); err != nil {
		e.logger.Warn("Follow-up notification failed",
			zap.String("target", target),
			zap.Error(err))
	}
}
