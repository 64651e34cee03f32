package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// Export kinds and formats.
const (
	ExportTransactions = "transactions"
	ExportCustomers    = "customers"
	ExportSessions     = "sessions"

	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportFilter narrows an export. Dates apply to transactions only.
type ExportFilter struct {
	CustomerID *int64
	From       *time.Time
	To         *time.Time
}

// ExportFile is a rendered export ready to be served as a download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	customers *CustomerService
	ledger    *LedgerService
	sessions  *SessionService
	location  *time.Location
	now       func() time.Time
}

func NewExportService(customers *CustomerService, ledger *LedgerService, sessions *SessionService, location *time.Location) *ExportService {
	if location == nil {
		location = time.UTC
	}
	return &ExportService{
		customers: customers,
		ledger:    ledger,
		sessions:  sessions,
		location:  location,
		now:       time.Now,
	}
}

// table is an export in tabular form plus the records it was built from.
type table struct {
	sheet   string
	headers []string
	rows    [][]string
	records any
}

// Export renders kind in format.
func (s *ExportService) Export(ctx context.Context, kind, format string, filter ExportFilter) (*ExportFile, error) {
	switch format {
	case FormatJSON, FormatCSV, FormatXLSX:
	default:
		return nil, &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}

	var t *table
	var err error
	switch kind {
	case ExportTransactions:
		t, err = s.transactionsTable(ctx, filter)
	case ExportCustomers:
		t, err = s.customersTable(ctx, filter)
	case ExportSessions:
		t, err = s.sessionsTable(ctx, filter)
	default:
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown export %q", kind)}
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s.%s", kind, s.now().In(s.location).Format("20060102_150405"), format)
	switch format {
	case FormatCSV:
		data, err := renderCSV(t)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: filename, ContentType: "text/csv; charset=utf-8", Data: data}, nil
	case FormatXLSX:
		data, err := renderXLSX(t)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    filename,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		data, err := json.Marshal(t.records)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: filename, ContentType: "application/json", Data: data}, nil
	}
}

func (s *ExportService) transactionsTable(ctx context.Context, filter ExportFilter) (*table, error) {
	items, err := s.ledger.ListTransactions(ctx, TransactionFilter{
		CustomerID: filter.CustomerID,
		From:       filter.From,
		To:         filter.To,
	})
	if err != nil {
		return nil, err
	}

	t := &table{
		sheet:   "Transactions",
		headers: []string{"ID", "Date", "Customer", "Mobile", "Type", "Amount", "Payment Mode", "Admin ID"},
		records: items,
	}
	for _, item := range items {
		t.rows = append(t.rows, []string{
			strconv.FormatInt(item.ID, 10),
			s.formatTime(&item.CreatedAt),
			item.CustomerSummary.Name,
			item.CustomerSummary.MobileNumber,
			string(item.Type),
			item.SignedAmount().StringFixed(2),
			deref(item.PaymentMode),
			formatID(item.AdminID),
		})
	}
	return t, nil
}

func (s *ExportService) customersTable(ctx context.Context, filter ExportFilter) (*table, error) {
	var ids []int64
	if filter.CustomerID != nil {
		ids = []int64{*filter.CustomerID}
	}
	customers, _, err := s.customers.ListCustomers(ctx, CustomerFilter{IDs: ids})
	if err != nil {
		return nil, err
	}

	t := &table{
		sheet:   "Customers",
		headers: []string{"ID", "Name", "Mobile", "Birthdate", "Balance", "Joined"},
		records: customers,
	}
	for _, c := range customers {
		birthdate := "-"
		if c.Birthdate != nil {
			birthdate = c.Birthdate.Format("2006-01-02")
		}
		t.rows = append(t.rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.MobileNumber,
			birthdate,
			c.CurrentBalance.StringFixed(2),
			s.formatTime(&c.CreatedAt),
		})
	}
	return t, nil
}

func (s *ExportService) sessionsTable(ctx context.Context, filter ExportFilter) (*table, error) {
	items, _, err := s.sessions.ListSessions(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	if filter.CustomerID != nil {
		kept := items[:0]
		for _, item := range items {
			if item.CustomerID == *filter.CustomerID {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	t := &table{
		sheet: "Sessions",
		headers: []string{"ID", "Customer", "Mobile", "Start", "Expected End", "Actual End",
			"Status", "Children", "Adults", "Actual Cost", "Discount %", "Cost Deducted"},
		records: items,
	}
	for _, item := range items {
		t.rows = append(t.rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.CustomerSummary.Name,
			item.CustomerSummary.MobileNumber,
			s.formatTime(&item.StartTime),
			s.formatTime(&item.ExpectedEndTime),
			s.formatTime(item.ActualEndTime),
			string(item.Status),
			strconv.Itoa(item.Children),
			strconv.Itoa(item.Adults),
			item.ActualCost.StringFixed(2),
			item.DiscountPercentage.StringFixed(2),
			item.CostDeducted.StringFixed(2),
		})
	}
	return t, nil
}

func (s *ExportService) formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(s.location).Format("02/01/2006 03:04 PM")
}

func renderCSV(t *table) ([]byte, error) {
	var buf bytes.Buffer
	// UTF-8 BOM so spreadsheet apps detect the encoding
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(&buf)
	if err := w.Write(t.headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(t *table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(t.sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := writeSheetRow(f, t.sheet, 1, t.headers); err != nil {
		return nil, err
	}
	for i, row := range t.rows {
		if err := writeSheetRow(f, t.sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	last, err := excelize.ColumnNumberToName(len(t.headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(t.sheet, "A", last, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
