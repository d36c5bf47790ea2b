package lark

import (
	"encoding/json"
	"fmt"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

// Card is an interactive card body. The layout is deliberately plain;
// the workflow core never sees card structure.
type Card map[string]interface{}

// Render serializes the card for the messaging API.
func (c Card) Render() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode card: %w", err)
	}
	return string(b), nil
}

func header(title string) map[string]interface{} {
	return map[string]interface{}{
		"title": map[string]string{"tag": "plain_text", "content": title},
	}
}

func textBlock(text string) map[string]interface{} {
	return map[string]interface{}{
		"tag":  "div",
		"text": map[string]string{"tag": "lark_md", "content": text},
	}
}

func button(label, actionID, value string) map[string]interface{} {
	return map[string]interface{}{
		"tag":  "button",
		"text": map[string]string{"tag": "plain_text", "content": label},
		"type": "primary",
		"value": map[string]string{
			"action_id": actionID,
			"value":     value,
		},
	}
}

func actionsBlock(buttons ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"tag": "action", "actions": buttons}
}

// ApprovalPromptCard asks an admin to pre-approve or reject a freshly
// submitted request.
func ApprovalPromptCard(req *models.FundingRequest) Card {
	body := fmt.Sprintf("**%s**\n%s %s — %s\nDemandé par %s pour le %s",
		req.RequestID, req.Amount.String(), req.Currency, req.Reason,
		req.SubmittedBy, req.RequestedDate)
	return Card{
		"header": header("Nouvelle demande de fonds"),
		"elements": []interface{}{
			textBlock(body),
			actionsBlock(
				button("Pré-approuver", ActionPreApprove, req.RequestID),
				button("Rejeter", ActionOpenRejection, req.RequestID),
			),
		},
	}
}

// FinalApprovalCard asks an admin to validate a request whose
// disbursement details are in. Rejection is not offered here: once
// details are submitted the request can only be validated or sent back
// through a problem report.
func FinalApprovalCard(req *models.FundingRequest) Card {
	body := fmt.Sprintf("**%s**\n%s %s — %s\nDécaissement : %s",
		req.RequestID, req.Amount.String(), req.Currency, req.Reason, req.DisbursementType)
	return Card{
		"header": header("Validation finale"),
		"elements": []interface{}{
			textBlock(body),
			actionsBlock(
				button("Valider", ActionFinalApprove, req.RequestID),
				button("Signaler un problème", ActionOpenProblem, req.RequestID),
			),
		},
	}
}

// FinanceDetailsCard prompts finance for the disbursement form of a
// pre-approved request.
func FinanceDetailsCard(requestID string) Card {
	return Card{
		"header": header("Détails de décaissement"),
		"elements": []interface{}{
			textBlock(fmt.Sprintf(
				"La demande **%s** est pré-approuvée. Renseignez la méthode "+
					"(espèces ou chèque) et, pour un chèque, le numéro, la banque, "+
					"la date et l'ordre.", requestID)),
			actionsBlock(button("Renseigner les détails", ActionOpenDetails, requestID)),
		},
	}
}

// CorrectionCard is posted to admins after a problem report so finance
// can re-open the details form.
func CorrectionCard(requestID, description string) Card {
	return Card{
		"header": header("Problème signalé"),
		"elements": []interface{}{
			textBlock(fmt.Sprintf("Demande **%s** : %s", requestID, description)),
			actionsBlock(button("Corriger les détails", ActionOpenDetails, requestID)),
		},
	}
}

// RejectionFormCard prompts the actor for a rejection reason.
func RejectionFormCard(requestID string) Card {
	return Card{
		"header": header("Motif du rejet"),
		"elements": []interface{}{
			textBlock(fmt.Sprintf(
				"Indiquez le motif du rejet de la demande **%s** via le formulaire de rejet.", requestID)),
		},
	}
}

// ProblemFormCard prompts the actor to describe a problem on a request.
func ProblemFormCard(requestID string) Card {
	return Card{
		"header": header("Signaler un problème"),
		"elements": []interface{}{
			textBlock(fmt.Sprintf(
				"Décrivez le problème rencontré sur la demande **%s** via le formulaire de signalement.", requestID)),
		},
	}
}

// DecisionCard replaces an action card once the request is finalized.
func DecisionCard(req *models.FundingRequest) Card {
	return Card{
		"header": header("Demande " + string(req.Status)),
		"elements": []interface{}{
			textBlock(fmt.Sprintf("**%s** — %s %s (%s)",
				req.RequestID, req.Amount.String(), req.Currency, req.Status)),
		},
	}
}
