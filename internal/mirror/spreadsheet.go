package mirror

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

const (
	requestsSheet = "Demandes"
	balancesSheet = "Soldes"

	// requestIDColumn addresses rows by request ID; currentMarkColumn
	// flags the most recently synced row so a stale previous row is
	// visible in the audit trail.
	requestIDColumn   = "A"
	currentMarkColumn = "L"
)

var requestsHeader = []interface{}{
	"Référence", "Date demandée", "Demandeur", "Montant", "Devise",
	"Motif", "Statut", "Décaissement", "Approuvé par", "Approuvé le",
	"Notes", "Dernière synchro",
}

// Spreadsheet maintains the audit workbook: one row per funding request
// plus a balances sheet refreshed on every sync.
type Spreadsheet struct {
	path   string
	logger *zap.Logger
}

// NewSpreadsheet creates a workbook writer for the given path.
func NewSpreadsheet(path string, logger *zap.Logger) *Spreadsheet {
	return &Spreadsheet{path: path, logger: logger}
}

// Upsert replicates the request's current state into its workbook row
// and rewrites the balances sheet.
func (s *Spreadsheet) Upsert(box *models.CashBox, requestID string) error {
	req := box.FindRequest(requestID)
	if req == nil {
		return fmt.Errorf("request %s not in cash box", requestID)
	}

	f, isNew, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if isNew {
		if err := s.initSheets(f); err != nil {
			return err
		}
	}

	row, err := s.findRow(f, requestID)
	if err != nil {
		return err
	}

	if err := s.writeRequestRow(f, row, req); err != nil {
		return err
	}
	if err := s.markLatest(f, row); err != nil {
		return err
	}
	if err := s.writeBalances(f, box); err != nil {
		return err
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	s.logger.Debug("Mirror row updated",
		zap.String("request_id", requestID),
		zap.Int("row", row))
	return nil
}

func (s *Spreadsheet) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return excelize.NewFile(), true, nil
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open workbook: %w", err)
	}
	return f, false, nil
}

func (s *Spreadsheet) initSheets(f *excelize.File) error {
	if _, err := f.NewSheet(requestsSheet); err != nil {
		return fmt.Errorf("failed to create requests sheet: %w", err)
	}
	if _, err := f.NewSheet(balancesSheet); err != nil {
		return fmt.Errorf("failed to create balances sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if err := f.SetSheetRow(requestsSheet, "A1", &requestsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// findRow returns the row for the request ID, or the first free row.
func (s *Spreadsheet) findRow(f *excelize.File, requestID string) (int, error) {
	rows, err := f.GetRows(requestsSheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read requests sheet: %w", err)
	}
	for i, row := range rows {
		if len(row) > 0 && row[0] == requestID {
			return i + 1, nil
		}
	}
	return len(rows) + 1, nil
}

func (s *Spreadsheet) writeRequestRow(f *excelize.File, row int, req *models.FundingRequest) error {
	approvedBy := req.ApprovedBy
	approvedAt := ""
	if req.ApprovedAt != nil {
		approvedAt = req.ApprovedAt.Format("2006-01-02 15:04")
	}
	notes := ""
	if req.PaymentDetails != nil {
		notes = req.PaymentDetails.Notes
	}

	values := []interface{}{
		req.RequestID, req.RequestedDate, req.SubmittedBy,
		req.Amount.String(), string(req.Currency), req.Reason,
		string(req.Status), req.DisbursementType, approvedBy, approvedAt,
		notes, "",
	}
	cell := fmt.Sprintf("%s%d", requestIDColumn, row)
	if err := f.SetSheetRow(requestsSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write request row: %w", err)
	}
	return nil
}

// markLatest moves the freshness marker to the given row, leaving the
// previously synced row visibly stale.
func (s *Spreadsheet) markLatest(f *excelize.File, row int) error {
	rows, err := f.GetRows(requestsSheet)
	if err != nil {
		return fmt.Errorf("failed to scan for stale marker: %w", err)
	}
	for i := range rows {
		cell := fmt.Sprintf("%s%d", currentMarkColumn, i+1)
		mark := ""
		if i+1 == row {
			mark = "oui"
		}
		if i == 0 {
			continue
		}
		if err := f.SetCellValue(requestsSheet, cell, mark); err != nil {
			return fmt.Errorf("failed to set freshness marker: %w", err)
		}
	}
	return nil
}

func (s *Spreadsheet) writeBalances(f *excelize.File, box *models.CashBox) error {
	if err := f.SetSheetRow(balancesSheet, "A1", &[]interface{}{"Devise", "Solde"}); err != nil {
		return fmt.Errorf("failed to write balances header: %w", err)
	}
	row := 2
	for _, currency := range models.DefaultCurrencies {
		balance, ok := box.Balances[currency]
		if !ok {
			continue
		}
		values := []interface{}{string(currency), balance.String()}
		if err := f.SetSheetRow(balancesSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("failed to write balance row: %w", err)
		}
		row++
	}
	return nil
}
