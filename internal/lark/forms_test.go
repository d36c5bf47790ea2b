package lark

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

func testRequest() *models.FundingRequest {
	return &models.FundingRequest{
		RequestID:        "FUND/2026/09/0001",
		Amount:           decimal.NewFromInt(1000),
		Currency:         models.CurrencyXOF,
		Reason:           "Fournitures",
		RequestedDate:    "2026-09-05",
		SubmittedBy:      "Awa",
		Status:           models.StatusDetailsProvided,
		DisbursementType: "Espèces",
	}
}

func TestApprovalPromptCard_Buttons(t *testing.T) {
	rendered, err := ApprovalPromptCard(testRequest()).Render()
	require.NoError(t, err)
	assert.Contains(t, rendered, ActionPreApprove)
	assert.Contains(t, rendered, ActionOpenRejection)
	assert.Contains(t, rendered, "FUND/2026/09/0001")
}

func TestFinalApprovalCard_OffersOnlyReachableActions(t *testing.T) {
	rendered, err := FinalApprovalCard(testRequest()).Render()
	require.NoError(t, err)
	assert.Contains(t, rendered, ActionFinalApprove)
	assert.Contains(t, rendered, ActionOpenProblem)
	assert.NotContains(t, rendered, ActionOpenRejection,
		"a request with submitted details can no longer be rejected")
}

func TestDecisionCard_CarriesStatus(t *testing.T) {
	req := testRequest()
	req.Status = models.StatusValidated
	rendered, err := DecisionCard(req).Render()
	require.NoError(t, err)
	assert.Contains(t, rendered, "Validé")
	assert.Contains(t, rendered, req.RequestID)
}
