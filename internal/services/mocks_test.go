package services

import (
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dazzlersden/backend/internal/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogLedgerEntry(transactionID, customerID int64, txType string, amount decimal.Decimal, adminID *int64) {
	m.Called(transactionID, customerID, txType, amount.StringFixed(2), adminID)
}

func (m *MockAuditLogger) LogSession(sessionID, customerID int64, operation string, amount decimal.Decimal, adminID *int64) {
	m.Called(sessionID, customerID, operation, amount.StringFixed(2), adminID)
}

func (m *MockAuditLogger) LogError(operation string, customerID int64, err error) {
	m.Called(operation, customerID, err)
}

func testVenueConfig() *config.VenueConfig {
	return &config.VenueConfig{
		DefaultPaymentMode: "CASH",
		PaymentModes:       []string{"CASH", "CARD", "UPI"},
		QRCodeTTL:          5 * time.Minute,
		QRCodeSize:         256,
		DefaultPageSize:    10,
		MaxPageSize:        100,
		ExportTimezone:     "UTC",
	}
}

var (
	customerCols = []string{"id", "qr_code_uuid", "name", "mobile_number", "birthdate", "current_balance", "version", "created_at", "updated_at"}
	offerCols    = []string{"id", "trigger_amount", "bonus_amount", "description", "is_active"}
	planCols     = []string{"id", "name", "duration_minutes", "price", "included_adults", "is_active"}

	testToken   = uuid.MustParse("5f0c6c1e-7d0e-4c3a-9a59-0a8a3f6f2b11")
	testCreated = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	lockCustomerSQL  = regexp.QuoteMeta("FROM customers WHERE id = $1 FOR UPDATE")
	lockByTokenSQL   = regexp.QuoteMeta("FROM customers WHERE qr_code_uuid = $1 FOR UPDATE")
	matchOfferSQL    = regexp.QuoteMeta("FROM recharge_offers WHERE trigger_amount = $1 AND is_active = TRUE")
	insertEntrySQL   = regexp.QuoteMeta("INSERT INTO transactions (customer_id, admin_id, transaction_type, amount, payment_mode, created_at)")
	updateBalanceSQL = regexp.QuoteMeta("UPDATE customers SET current_balance = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4")
)

func customerRow(id int64, balance string, version int) *sqlmock.Rows {
	return sqlmock.NewRows(customerCols).
		AddRow(id, testToken.String(), "Asha Rao", "9876543210", nil, balance, version, testCreated, testCreated)
}

func entryRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, time.Now())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func int64Ptr(v int64) *int64 {
	return &v
}
