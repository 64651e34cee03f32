package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestExports(t *testing.T) (*ExportService, sqlmock.Sqlmock) {
	customers, sqlMock, _ := newTestCustomers(t)
	service := NewExportService(customers, customers.ledger, NewSessionService(customers.db, customers.ledger, customers.catalog, customers.audit, nil), time.UTC)
	service.now = func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) }
	return service, sqlMock
}

func expectTransactions(sqlMock sqlmock.Sqlmock) {
	sqlMock.ExpectQuery("FROM transactions t INNER JOIN customers c").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "admin_id", "transaction_type", "amount", "payment_mode", "created_at", "name", "mobile_number",
		}).
			AddRow(2, 1, nil, "SESSION_DEDUCT", "60", nil, testCreated, "Asha Rao", "9876543210").
			AddRow(1, 1, 7, "RECHARGE", "100", "CASH", testCreated, "Asha Rao", "9876543210"))
}

func TestExportService_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("transactions as csv", func(t *testing.T) {
		service, sqlMock := newTestExports(t)
		expectTransactions(sqlMock)

		file, err := service.Export(ctx, ExportTransactions, FormatCSV, ExportFilter{})
		require.NoError(t, err)
		assert.Equal(t, "transactions_20250301_103000.csv", file.Filename)
		assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

		records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(file.Data, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "Type", records[0][4])
		assert.Equal(t, "-60.00", records[1][5])
		assert.Equal(t, "", records[1][6])
		assert.Equal(t, "CASH", records[2][6])
		assert.Equal(t, "7", records[2][7])
	})

	t.Run("transactions as xlsx", func(t *testing.T) {
		service, sqlMock := newTestExports(t)
		expectTransactions(sqlMock)

		file, err := service.Export(ctx, ExportTransactions, FormatXLSX, ExportFilter{})
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(file.Data))
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{"Transactions"}, f.GetSheetList())
		rows, err := f.GetRows("Transactions")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Asha Rao", rows[1][2])
		assert.Equal(t, "100.00", rows[2][5])
	})

	t.Run("customers as json", func(t *testing.T) {
		service, sqlMock := newTestExports(t)
		sqlMock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM customers").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		sqlMock.ExpectQuery("FROM customers ORDER BY created_at DESC").WillReturnRows(customerRow(1, "40", 2))

		file, err := service.Export(ctx, ExportCustomers, FormatJSON, ExportFilter{})
		require.NoError(t, err)
		assert.Equal(t, "application/json", file.ContentType)

		var out []map[string]any
		require.NoError(t, json.Unmarshal(file.Data, &out))
		require.Len(t, out, 1)
		assert.Equal(t, "Asha Rao", out[0]["name"])
		assert.NotContains(t, out[0], "version")
	})

	t.Run("unknown kind", func(t *testing.T) {
		service, _ := newTestExports(t)

		_, err := service.Export(ctx, "admins", FormatCSV, ExportFilter{})
		assert.True(t, IsValidation(err))
	})

	t.Run("pdf is not offered", func(t *testing.T) {
		service, _ := newTestExports(t)

		_, err := service.Export(ctx, ExportSessions, "pdf", ExportFilter{})
		assert.True(t, IsValidation(err))
	})
}
