package worker

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/attachment"
	"github.com/dakarlabs/caisse-bot/internal/caisse"
	"github.com/dakarlabs/caisse-bot/internal/lark"
	"github.com/dakarlabs/caisse-bot/internal/models"
	"github.com/dakarlabs/caisse-bot/internal/screening"
	"github.com/dakarlabs/caisse-bot/internal/webhook"
)

const interactionQueueSize = 128

// Gateway is the outbound chat surface the worker needs.
type Gateway interface {
	PostMessage(ctx context.Context, target, text string) error
	PostCard(ctx context.Context, target string, card lark.Card) error
	UpdateCard(ctx context.Context, messageID string, card lark.Card) error
}

// MirrorEnqueuer schedules a best-effort spreadsheet sync.
type MirrorEnqueuer interface {
	Enqueue(requestID string) bool
}

// Config holds the channels the worker notifies.
type Config struct {
	AdminChannel   string
	FinanceChannel string
}

// InteractionWorker drains the interaction queue filled by the webhook
// handler and dispatches each payload to the matching workflow
// operation. Validation and guard errors become corrective messages to
// the acting user; internal errors are logged.
type InteractionWorker struct {
	engine     *caisse.Engine
	gateway    Gateway
	mirror     MirrorEnqueuer
	screener   *screening.Screener
	downloader *attachment.Downloader
	validator  *attachment.Validator
	cfg        Config
	queue      chan *webhook.Interaction
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInteractionWorker creates the interaction worker. screener,
// downloader and validator may be nil to disable the corresponding
// best-effort step.
func NewInteractionWorker(
	engine *caisse.Engine,
	gateway Gateway,
	mirror MirrorEnqueuer,
	screener *screening.Screener,
	downloader *attachment.Downloader,
	validator *attachment.Validator,
	cfg Config,
	logger *zap.Logger,
) *InteractionWorker {
	return &InteractionWorker{
		engine:     engine,
		gateway:    gateway,
		mirror:     mirror,
		screener:   screener,
		downloader: downloader,
		validator:  validator,
		cfg:        cfg,
		queue:      make(chan *webhook.Interaction, interactionQueueSize),
		logger:     logger,
	}
}

// Name implements Worker.
func (w *InteractionWorker) Name() string { return "interactions" }

// Start implements Worker.
func (w *InteractionWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop implements Worker.
func (w *InteractionWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Enqueue implements webhook.Enqueuer.
func (w *InteractionWorker) Enqueue(itc *webhook.Interaction) bool {
	select {
	case w.queue <- itc:
		return true
	default:
		return false
	}
}

func (w *InteractionWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case itc := <-w.queue:
			w.process(ctx, itc)
		}
	}
}

func (w *InteractionWorker) process(ctx context.Context, itc *webhook.Interaction) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic while processing interaction", zap.Any("panic", r))
		}
	}()

	switch itc.Type {
	case webhook.TypeViewSubmission:
		w.processView(ctx, itc)
	case webhook.TypeBlockActions:
		for _, action := range itc.Actions {
			w.processAction(ctx, itc, action)
		}
	}
}

func (w *InteractionWorker) processView(ctx context.Context, itc *webhook.Interaction) {
	values := itc.View.Values
	requestID := itc.View.PrivateMetadata

	switch itc.View.CallbackID {
	case lark.CallbackSubmitRequest:
		w.handleSubmit(ctx, itc, values)

	case lark.CallbackFinanceDetails:
		w.handleFinanceDetails(ctx, itc, requestID, values)

	case lark.CallbackRejection:
		req, err := w.engine.Reject(ctx, requestID, itc.User.Name, values[lark.FieldRejectReason])
		if w.reportError(ctx, itc.User.ID, err, "rejet") {
			return
		}
		w.mirrorSync(req.RequestID)

	case lark.CallbackProblemReport:
		req, err := w.engine.ReportProblem(ctx, requestID, caisse.ProblemInput{
			Reporter:    itc.User.Name,
			Type:        values[lark.FieldProblemType],
			Description: values[lark.FieldProblemDesc],
		})
		if w.reportError(ctx, itc.User.ID, err, "signalement") {
			return
		}
		w.postCard(ctx, w.cfg.AdminChannel,
			lark.CorrectionCard(req.RequestID, values[lark.FieldProblemDesc]))

	default:
		w.logger.Warn("Unknown form callback", zap.String("callback_id", itc.View.CallbackID))
	}
}

func (w *InteractionWorker) handleSubmit(ctx context.Context, itc *webhook.Interaction, values map[string]string) {
	req, err := w.engine.Submit(ctx, caisse.SubmitInput{
		SubmittedBy:   itc.User.Name,
		SubmittedByID: itc.User.ID,
		Amount:        values[lark.FieldAmount],
		Reason:        values[lark.FieldReason],
		RequestedDate: values[lark.FieldRequestedDate],
	})
	if w.reportError(ctx, itc.User.ID, err, "soumission") {
		return
	}

	w.postMessage(ctx, itc.User.ID,
		"Votre demande "+req.RequestID+" a bien été enregistrée.")
	w.postCard(ctx, w.cfg.AdminChannel, lark.ApprovalPromptCard(req))
	w.screen(ctx, req)
	w.mirrorSync(req.RequestID)
}

func (w *InteractionWorker) handleFinanceDetails(ctx context.Context, itc *webhook.Interaction, requestID string, values map[string]string) {
	in := caisse.FinanceDetailsInput{
		Actor:  itc.User.Name,
		Method: models.DisbursementMethod(strings.ToLower(strings.TrimSpace(values[lark.FieldMethod]))),
		Notes:  values[lark.FieldNotes],
	}
	if in.Method == models.MethodCheque {
		in.Cheque = &caisse.ChequeInput{
			Number: values[lark.FieldChequeNumber],
			Bank:   values[lark.FieldChequeBank],
			Date:   values[lark.FieldChequeDate],
			Order:  values[lark.FieldChequeOrder],
			URLs:   splitProofURLs(values[lark.FieldChequeProofs]),
		}
	}

	req, err := w.engine.SubmitFinanceDetails(ctx, requestID, in)
	if w.reportError(ctx, itc.User.ID, err, "détails de décaissement") {
		return
	}

	if in.Cheque != nil {
		w.checkProofs(ctx, itc.User.ID, req.RequestID, in.Cheque.URLs)
	}
	w.postCard(ctx, w.cfg.AdminChannel, lark.FinalApprovalCard(req))
	w.mirrorSync(req.RequestID)
}

func (w *InteractionWorker) processAction(ctx context.Context, itc *webhook.Interaction, action webhook.Action) {
	requestID := action.Value

	switch action.ActionID {
	case lark.ActionPreApprove:
		req, err := w.engine.PreApprove(ctx, requestID, itc.User.Name)
		if w.reportError(ctx, itc.User.ID, err, "pré-approbation") {
			return
		}
		w.postCard(ctx, w.cfg.FinanceChannel, lark.FinanceDetailsCard(req.RequestID))
		w.mirrorSync(req.RequestID)

	case lark.ActionFinalApprove:
		req, err := w.engine.FinalApprove(ctx, requestID, itc.User.Name)
		if w.reportError(ctx, itc.User.ID, err, "validation") {
			return
		}
		// Replace the action buttons on the prompting card with the
		// outcome when the platform told us which card was clicked.
		if itc.MessageID != "" {
			w.updateCard(ctx, itc.MessageID, lark.DecisionCard(req))
		} else {
			w.postCard(ctx, w.cfg.AdminChannel, lark.DecisionCard(req))
		}
		w.mirrorSync(req.RequestID)

	case lark.ActionOpenRejection:
		w.postCard(ctx, itc.User.ID, lark.RejectionFormCard(requestID))

	case lark.ActionOpenDetails:
		w.postCard(ctx, itc.User.ID, lark.FinanceDetailsCard(requestID))

	case lark.ActionOpenProblem:
		w.postCard(ctx, itc.User.ID, lark.ProblemFormCard(requestID))

	default:
		w.logger.Warn("Unknown action", zap.String("action_id", action.ActionID))
	}
}

// reportError translates workflow errors into user-facing messages and
// reports whether processing should stop.
func (w *InteractionWorker) reportError(ctx context.Context, userID string, err error, operation string) bool {
	if err == nil {
		return false
	}
	if caisse.IsValidation(err) || caisse.IsGuard(err) {
		w.postMessage(ctx, userID, err.Error())
		return true
	}
	w.logger.Error("Workflow operation failed",
		zap.String("operation", operation),
		zap.Error(err))
	w.postMessage(ctx, userID,
		"Une erreur interne est survenue. Merci de contacter un administrateur.")
	return true
}

// screen posts the best-effort screening note alongside the admin
// prompt; failures are logged only.
func (w *InteractionWorker) screen(ctx context.Context, req *models.FundingRequest) {
	if w.screener == nil {
		return
	}
	note, err := w.screener.Screen(ctx, req)
	if err != nil {
		w.logger.Warn("Request screening failed",
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return
	}
	if note != "" {
		w.postMessage(ctx, w.cfg.AdminChannel,
			"Note de contrôle pour "+req.RequestID+" : "+note)
	}
}

// checkProofs downloads and validates cheque proof documents. A bad
// proof warns the submitter but never blocks the workflow.
func (w *InteractionWorker) checkProofs(ctx context.Context, userID, requestID string, urls []string) {
	if w.downloader == nil || w.validator == nil {
		return
	}
	for _, url := range urls {
		path, err := w.downloader.Fetch(ctx, url)
		if err == nil {
			err = w.validator.Validate(path)
		}
		if err != nil {
			w.logger.Warn("Cheque proof validation failed",
				zap.String("request_id", requestID),
				zap.String("url", url),
				zap.Error(err))
			w.postMessage(ctx, userID,
				"Le justificatif "+url+" de la demande "+requestID+
					" n'a pas pu être vérifié. Merci de le re-téléverser.")
		}
	}
}

func (w *InteractionWorker) postMessage(ctx context.Context, target, text string) {
	if err := w.gateway.PostMessage(ctx, target, text); err != nil {
		w.logger.Warn("Failed to post message", zap.String("target", target), zap.Error(err))
	}
}

func (w *InteractionWorker) postCard(ctx context.Context, target string, card lark.Card) {
	if err := w.gateway.PostCard(ctx, target, card); err != nil {
		w.logger.Warn("Failed to post card", zap.String("target", target), zap.Error(err))
	}
}

func (w *InteractionWorker) updateCard(ctx context.Context, messageID string, card lark.Card) {
	if err := w.gateway.UpdateCard(ctx, messageID, card); err != nil {
		w.logger.Warn("Failed to update card", zap.String("message_id", messageID), zap.Error(err))
	}
}

func (w *InteractionWorker) mirrorSync(requestID string) {
	if w.mirror == nil {
		return
	}
	if !w.mirror.Enqueue(requestID) {
		w.logger.Warn("Mirror queue saturated, sync skipped",
			zap.String("request_id", requestID))
	}
}

func splitProofURLs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}
