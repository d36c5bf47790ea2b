package mirror

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

func testBox(requestID string) *models.CashBox {
	box := models.NewCashBox("caisse")
	box.Balances[models.CurrencyXOF] = decimal.NewFromInt(1000)
	box.FundingRequests = append(box.FundingRequests, &models.FundingRequest{
		RequestID:     requestID,
		Amount:        decimal.NewFromInt(1000),
		Currency:      models.CurrencyXOF,
		Reason:        "Fournitures",
		RequestedDate: "2026-09-05",
		SubmittedBy:   "Awa",
		Status:        models.StatusPending,
	})
	return box
}

func TestSpreadsheet_CreatesWorkbookOnFirstUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	s := NewSpreadsheet(path, zap.NewNop())
	box := testBox("FUND/2026/09/0001")

	require.NoError(t, s.Upsert(box, "FUND/2026/09/0001"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Demandes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Référence", rows[0][0])
	assert.Equal(t, "FUND/2026/09/0001", rows[1][0])
	assert.Equal(t, "En attente", rows[1][6])

	balances, err := f.GetRows("Soldes")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "XOF", balances[1][0])
	assert.Equal(t, "1000", balances[1][1])
}

func TestSpreadsheet_UpsertReplacesExistingRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	s := NewSpreadsheet(path, zap.NewNop())
	box := testBox("FUND/2026/09/0001")

	require.NoError(t, s.Upsert(box, "FUND/2026/09/0001"))

	box.FundingRequests[0].Status = models.StatusValidated
	box.FundingRequests[0].DisbursementType = "Espèces"
	require.NoError(t, s.Upsert(box, "FUND/2026/09/0001"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Demandes")
	require.NoError(t, err)
	require.Len(t, rows, 2, "upsert must not append a duplicate row")
	assert.Equal(t, "Validé", rows[1][6])
	assert.Equal(t, "Espèces", rows[1][7])
}

func TestSpreadsheet_MarksMostRecentlySyncedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	s := NewSpreadsheet(path, zap.NewNop())

	box := testBox("FUND/2026/09/0001")
	box.FundingRequests = append(box.FundingRequests, &models.FundingRequest{
		RequestID:   "FUND/2026/09/0002",
		Amount:      decimal.NewFromInt(500),
		Currency:    models.CurrencyXOF,
		SubmittedBy: "Fatou",
		Status:      models.StatusPending,
	})

	require.NoError(t, s.Upsert(box, "FUND/2026/09/0001"))
	require.NoError(t, s.Upsert(box, "FUND/2026/09/0002"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	first, err := f.GetCellValue("Demandes", "L2")
	require.NoError(t, err)
	second, err := f.GetCellValue("Demandes", "L3")
	require.NoError(t, err)
	assert.Empty(t, first, "previous sync marker must be cleared")
	assert.Equal(t, "oui", second)
}

func TestSpreadsheet_UnknownRequest(t *testing.T) {
	s := NewSpreadsheet(filepath.Join(t.TempDir(), "audit.xlsx"), zap.NewNop())
	err := s.Upsert(models.NewCashBox("caisse"), "FUND/2026/09/9999")
	assert.Error(t, err)
}
