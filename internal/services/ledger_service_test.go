package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dazzlersden/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*LedgerService, sqlmock.Sqlmock, *MockAuditLogger) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	auditLogger := new(MockAuditLogger)
	service := NewLedgerService(db, NewCatalogService(db), auditLogger, testVenueConfig(), nil)
	return service, sqlMock, auditLogger
}

func TestValidateAppend(t *testing.T) {
	tests := []struct {
		name  string
		req   AppendRequest
		field string
	}{
		{"unknown type", AppendRequest{Type: "REFUND", Amount: dec("10"), PaymentMode: "CASH"}, "transaction_type"},
		{"zero amount", AppendRequest{Type: models.TransactionRecharge, Amount: dec("0"), PaymentMode: "CASH"}, "amount"},
		{"negative amount", AppendRequest{Type: models.TransactionSessionDeduct, Amount: dec("-5")}, "amount"},
		{"three decimals", AppendRequest{Type: models.TransactionRecharge, Amount: dec("10.005"), PaymentMode: "CASH"}, "amount"},
		{"recharge without mode", AppendRequest{Type: models.TransactionRecharge, Amount: dec("10")}, "payment_mode"},
		{"deduct with mode", AppendRequest{Type: models.TransactionSessionDeduct, Amount: dec("10"), PaymentMode: "CASH"}, "payment_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAppend(tt.req)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("valid entries", func(t *testing.T) {
		assert.NoError(t, ValidateAppend(AppendRequest{Type: models.TransactionRecharge, Amount: dec("10.50"), PaymentMode: "UPI"}))
		assert.NoError(t, ValidateAppend(AppendRequest{Type: models.TransactionSessionDeduct, Amount: dec("60")}))
		assert.NoError(t, ValidateAppend(AppendRequest{Type: models.TransactionBonus, Amount: dec("100"), PaymentMode: models.PaymentModeSystem}))
	})
}

func TestLedgerService_AppendTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("debit moves balance and writes one entry", func(t *testing.T) {
		service, sqlMock, auditLogger := newTestLedger(t)

		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(1)).WillReturnRows(customerRow(1, "100", 3))
		sqlMock.ExpectQuery(insertEntrySQL).
			WithArgs(int64(1), nil, "SESSION_DEDUCT", dec("60"), nil, sqlmock.AnyArg()).
			WillReturnRows(entryRow(10))
		sqlMock.ExpectExec(updateBalanceSQL).
			WithArgs(dec("40"), sqlmock.AnyArg(), int64(1), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectCommit()

		auditLogger.On("LogLedgerEntry", int64(10), int64(1), "SESSION_DEDUCT", "60.00", (*int64)(nil)).Return()

		entry, err := service.AppendTransaction(ctx, AppendRequest{
			CustomerID: 1,
			Type:       models.TransactionSessionDeduct,
			Amount:     dec("60"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), entry.ID)
		assert.Nil(t, entry.PaymentMode)
		assert.True(t, entry.SignedAmount().Equal(dec("-60")))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		auditLogger.AssertExpectations(t)
	})

	t.Run("insufficient balance leaves ledger untouched", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(1)).WillReturnRows(customerRow(1, "50", 1))
		sqlMock.ExpectRollback()

		_, err := service.AppendTransaction(ctx, AppendRequest{
			CustomerID: 1,
			Type:       models.TransactionSessionDeduct,
			Amount:     dec("70"),
		})

		var funds *InsufficientFundsError
		require.True(t, errors.As(err, &funds))
		assert.True(t, funds.Required.Equal(dec("70")))
		assert.True(t, funds.Available.Equal(dec("50")))
		assert.Equal(t, "insufficient balance: required 70.00, available 50.00", err.Error())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown customer", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(99)).WillReturnRows(sqlmock.NewRows(customerCols))
		sqlMock.ExpectRollback()

		_, err := service.AppendTransaction(ctx, AppendRequest{
			CustomerID:  99,
			Type:        models.TransactionRecharge,
			Amount:      dec("10"),
			PaymentMode: "CASH",
		})
		assert.True(t, IsNotFound(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("invalid request never opens a transaction", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		_, err := service.AppendTransaction(ctx, AppendRequest{
			CustomerID:  1,
			Type:        models.TransactionSessionDeduct,
			Amount:      dec("10"),
			PaymentMode: "CASH",
		})
		assert.True(t, IsValidation(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("stale version rolls back", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(1)).WillReturnRows(customerRow(1, "100", 2))
		sqlMock.ExpectQuery(insertEntrySQL).WillReturnRows(entryRow(11))
		sqlMock.ExpectExec(updateBalanceSQL).
			WithArgs(dec("110"), sqlmock.AnyArg(), int64(1), 2).
			WillReturnResult(sqlmock.NewResult(0, 0))
		sqlMock.ExpectRollback()

		_, err := service.AppendTransaction(ctx, AppendRequest{
			CustomerID:  1,
			Type:        models.TransactionRecharge,
			Amount:      dec("10"),
			PaymentMode: "cash",
		})
		assert.ErrorIs(t, err, errConcurrentUpdate)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestLedgerService_Recharge(t *testing.T) {
	ctx := context.Background()

	t.Run("matching offer adds a bonus entry", func(t *testing.T) {
		service, sqlMock, auditLogger := newTestLedger(t)
		admin := int64Ptr(7)

		sqlMock.ExpectQuery(matchOfferSQL).WithArgs(dec("2000")).
			WillReturnRows(sqlmock.NewRows(offerCols).AddRow(2, "2000", "300", "Pay 2000 get 300", true))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(1)).WillReturnRows(customerRow(1, "0", 0))
		sqlMock.ExpectQuery(insertEntrySQL).
			WithArgs(int64(1), int64(7), "RECHARGE", dec("2000"), "CASH", sqlmock.AnyArg()).
			WillReturnRows(entryRow(21))
		sqlMock.ExpectExec(updateBalanceSQL).
			WithArgs(dec("2000"), sqlmock.AnyArg(), int64(1), 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectQuery(insertEntrySQL).
			WithArgs(int64(1), int64(7), "BONUS", dec("300"), "SYSTEM", sqlmock.AnyArg()).
			WillReturnRows(entryRow(22))
		sqlMock.ExpectExec(updateBalanceSQL).
			WithArgs(dec("2300"), sqlmock.AnyArg(), int64(1), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectCommit()

		auditLogger.On("LogLedgerEntry", int64(21), int64(1), "RECHARGE", "2000.00", admin).Return()
		auditLogger.On("LogLedgerEntry", int64(22), int64(1), "BONUS", "300.00", admin).Return()

		result, err := service.Recharge(ctx, RechargeRequest{
			CustomerID:  1,
			Amount:      dec("2000"),
			PaymentMode: "cash",
			AdminID:     admin,
		})
		require.NoError(t, err)
		require.NotNil(t, result.Bonus)
		assert.Equal(t, models.TransactionBonus, result.Bonus.Type)
		assert.Equal(t, models.PaymentModeSystem, *result.Bonus.PaymentMode)
		assert.True(t, result.NewBalance.Equal(dec("2300")))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		auditLogger.AssertExpectations(t)
	})

	t.Run("no offer", func(t *testing.T) {
		service, sqlMock, auditLogger := newTestLedger(t)

		sqlMock.ExpectQuery(matchOfferSQL).WithArgs(dec("750")).WillReturnRows(sqlmock.NewRows(offerCols))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(1)).WillReturnRows(customerRow(1, "40", 4))
		sqlMock.ExpectQuery(insertEntrySQL).
			WithArgs(int64(1), nil, "RECHARGE", dec("750"), "UPI", sqlmock.AnyArg()).
			WillReturnRows(entryRow(30))
		sqlMock.ExpectExec(updateBalanceSQL).
			WithArgs(dec("790"), sqlmock.AnyArg(), int64(1), 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectCommit()

		auditLogger.On("LogLedgerEntry", int64(30), int64(1), "RECHARGE", "750.00", (*int64)(nil)).Return()

		result, err := service.Recharge(ctx, RechargeRequest{CustomerID: 1, Amount: dec("750"), PaymentMode: "UPI"})
		require.NoError(t, err)
		assert.Nil(t, result.Bonus)
		assert.True(t, result.NewBalance.Equal(dec("790")))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("payment mode outside the configured set", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		_, err := service.Recharge(ctx, RechargeRequest{CustomerID: 1, Amount: dec("100"), PaymentMode: "CHEQUE"})
		assert.True(t, IsValidation(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("missing customer is audited as an error", func(t *testing.T) {
		service, sqlMock, auditLogger := newTestLedger(t)

		sqlMock.ExpectQuery(matchOfferSQL).WillReturnRows(sqlmock.NewRows(offerCols))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(lockCustomerSQL).WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(customerCols))
		sqlMock.ExpectRollback()

		_, err := service.Recharge(ctx, RechargeRequest{CustomerID: 5, Amount: dec("100"), PaymentMode: "CASH"})
		assert.True(t, IsNotFound(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		auditLogger.AssertNotCalled(t, "LogError", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLedgerService_ListTransactions(t *testing.T) {
	service, sqlMock, _ := newTestLedger(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	customerID := int64(1)

	sqlMock.ExpectQuery(regexp.QuoteMeta("WHERE t.customer_id = $1 AND t.transaction_type = $2 AND t.created_at >= $3 ORDER BY t.created_at DESC, t.id DESC LIMIT $4")).
		WithArgs(customerID, "RECHARGE", from, 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "admin_id", "transaction_type", "amount", "payment_mode", "created_at", "name", "mobile_number",
		}).
			AddRow(3, 1, 7, "RECHARGE", "500", "CARD", testCreated, "Asha Rao", "9876543210").
			AddRow(1, 1, nil, "RECHARGE", "100", "CASH", testCreated, "Asha Rao", "9876543210"))

	items, err := service.ListTransactions(context.Background(), TransactionFilter{
		CustomerID: &customerID,
		Type:       models.TransactionRecharge,
		From:       &from,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Asha Rao", items[0].CustomerSummary.Name)
	assert.Equal(t, int64(7), *items[0].AdminID)
	assert.Nil(t, items[1].AdminID)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestLedgerService_VerifyBalance(t *testing.T) {
	ctx := context.Background()
	sumsSQL := regexp.QuoteMeta("SELECT transaction_type, COALESCE(SUM(amount), 0) FROM transactions WHERE customer_id = $1 GROUP BY transaction_type")

	t.Run("cached balance equals ledger projection", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		sqlMock.ExpectQuery("SELECT current_balance FROM customers").WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow("40"))
		sqlMock.ExpectQuery(sumsSQL).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_type", "sum"}).
				AddRow("RECHARGE", "100").
				AddRow("SESSION_DEDUCT", "60"))

		report, err := service.VerifyBalance(ctx, 1)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.True(t, report.LedgerBalance.Equal(dec("40")))
	})

	t.Run("drift is reported", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		sqlMock.ExpectQuery("SELECT current_balance FROM customers").WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow("500"))
		sqlMock.ExpectQuery(sumsSQL).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_type", "sum"}).
				AddRow("RECHARGE", "1000").
				AddRow("BONUS", "100").
				AddRow("SESSION_DEDUCT", "700"))

		report, err := service.VerifyBalance(ctx, 1)
		require.NoError(t, err)
		assert.False(t, report.Consistent)
		assert.True(t, report.LedgerBalance.Equal(dec("400")))
	})

	t.Run("unknown customer", func(t *testing.T) {
		service, sqlMock, _ := newTestLedger(t)

		sqlMock.ExpectQuery("SELECT current_balance FROM customers").WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"current_balance"}))

		_, err := service.VerifyBalance(ctx, 9)
		assert.True(t, IsNotFound(err))
	})
}
