package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dazzlersden/backend/internal/config"
	"github.com/dazzlersden/backend/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditLogger records money and session movements for later review.
type AuditLogger interface {
	LogLedgerEntry(transactionID, customerID int64, txType string, amount decimal.Decimal, adminID *int64)
	LogSession(sessionID, customerID int64, operation string, amount decimal.Decimal, adminID *int64)
	LogError(operation string, customerID int64, err error)
}

// LedgerService appends ledger entries and keeps the customer's cached
// balance in step with them. It is the only writer of current_balance.
type LedgerService struct {
	db      *sql.DB
	catalog *CatalogService
	audit   AuditLogger
	config  *config.VenueConfig
	log     *zap.Logger
}

// AppendRequest describes one ledger entry.
type AppendRequest struct {
	CustomerID  int64
	Type        models.TransactionType
	Amount      decimal.Decimal
	PaymentMode string
	AdminID     *int64
}

// RechargeRequest represents a wallet top-up
type RechargeRequest struct {
	CustomerID  int64           `json:"customer_id" validate:"required,gt=0" example:"1"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number" example:"1000"`
	PaymentMode string          `json:"payment_mode" example:"CASH"`
	AdminID     *int64          `json:"-"`
}

// RechargeResult is the outcome of a recharge, including any offer bonus.
type RechargeResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Bonus       *models.Transaction `json:"bonus,omitempty"`
	NewBalance  decimal.Decimal     `json:"new_balance"`
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	CustomerID *int64
	Type       models.TransactionType
	From       *time.Time
	To         *time.Time
	Limit      int
}

// BalanceReport compares the cached balance with the ledger projection.
type BalanceReport struct {
	CustomerID    int64           `json:"customer_id"`
	CachedBalance decimal.Decimal `json:"cached_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Consistent    bool            `json:"consistent"`
}

func NewLedgerService(db *sql.DB, catalog *CatalogService, audit AuditLogger, cfg *config.VenueConfig, log *zap.Logger) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{
		db:      db,
		catalog: catalog,
		audit:   audit,
		config:  cfg,
		log:     log.Named("ledger"),
	}
}

// ValidateAppend checks the preconditions of a ledger append.
func ValidateAppend(req AppendRequest) error {
	if !req.Type.Valid() {
		return &ValidationError{Field: "transaction_type", Message: fmt.Sprintf("unknown type %q", req.Type)}
	}
	if !req.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if req.Amount.Exponent() < -2 && !req.Amount.Equal(req.Amount.Round(2)) {
		return &ValidationError{Field: "amount", Message: "at most two decimal places"}
	}
	if req.Type.IsCredit() && strings.TrimSpace(req.PaymentMode) == "" {
		return &ValidationError{Field: "payment_mode", Message: "required for " + string(req.Type)}
	}
	if req.Type == models.TransactionSessionDeduct && req.PaymentMode != "" {
		return &ValidationError{Field: "payment_mode", Message: "must be empty for " + string(req.Type)}
	}
	return nil
}

// AppendTransaction appends one ledger entry in its own database transaction.
func (s *LedgerService) AppendTransaction(ctx context.Context, req AppendRequest) (*models.Transaction, error) {
	if err := ValidateAppend(req); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.AppendTransactionTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger entry: %w", err)
	}

	s.audit.LogLedgerEntry(entry.ID, entry.CustomerID, string(entry.Type), entry.Amount, entry.AdminID)
	return entry, nil
}

// AppendTransactionTx locks the customer row, inserts the ledger entry and
// moves the cached balance by the signed amount, all inside tx.
func (s *LedgerService) AppendTransactionTx(ctx context.Context, tx *sql.Tx, req AppendRequest) (*models.Transaction, error) {
	if err := ValidateAppend(req); err != nil {
		return nil, err
	}

	customer, err := s.lockCustomer(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	return s.appendLocked(ctx, tx, customer, req)
}

// appendLocked expects customer to be locked FOR UPDATE in tx. On success
// customer reflects the new balance and version.
func (s *LedgerService) appendLocked(ctx context.Context, tx *sql.Tx, customer *models.Customer, req AppendRequest) (*models.Transaction, error) {
	amount := req.Amount.Round(2)
	entry := &models.Transaction{
		CustomerID: customer.ID,
		AdminID:    req.AdminID,
		Type:       req.Type,
		Amount:     amount,
	}
	if req.PaymentMode != "" {
		mode := strings.ToUpper(req.PaymentMode)
		entry.PaymentMode = &mode
	}

	newBalance := customer.CurrentBalance.Add(entry.SignedAmount())
	if newBalance.IsNegative() {
		return nil, &InsufficientFundsError{Required: amount, Available: customer.CurrentBalance}
	}

	if err := s.insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.updateCustomerBalance(ctx, tx, customer.ID, newBalance, customer.Version); err != nil {
		return nil, err
	}

	customer.CurrentBalance = newBalance
	customer.Version++
	return entry, nil
}

// Recharge credits a customer's wallet. An active offer whose trigger equals
// the amount adds a BONUS entry in the same database transaction.
func (s *LedgerService) Recharge(ctx context.Context, req RechargeRequest) (*RechargeResult, error) {
	mode := strings.ToUpper(strings.TrimSpace(req.PaymentMode))
	if mode == "" {
		return nil, &ValidationError{Field: "payment_mode", Message: "required for RECHARGE"}
	}
	if !s.config.IsPaymentModeAllowed(mode) {
		return nil, &ValidationError{Field: "payment_mode", Message: fmt.Sprintf("%q is not an accepted payment mode", mode)}
	}
	if err := ValidateAppend(AppendRequest{Type: models.TransactionRecharge, Amount: req.Amount, PaymentMode: mode}); err != nil {
		return nil, err
	}

	offer, err := s.catalog.MatchOffer(ctx, req.Amount)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	customer, err := s.lockCustomer(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	result, err := s.creditLocked(ctx, tx, customer, req.Amount, mode, offer, req.AdminID)
	if err != nil {
		s.audit.LogError("LEDGER_RECHARGE", req.CustomerID, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recharge: %w", err)
	}

	s.auditResult(result)
	s.log.Info("wallet recharged",
		zap.Int64("customer_id", req.CustomerID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("new_balance", result.NewBalance.StringFixed(2)))
	return result, nil
}

// creditLocked appends a RECHARGE and, when offer is set, a BONUS entry.
func (s *LedgerService) creditLocked(ctx context.Context, tx *sql.Tx, customer *models.Customer, amount decimal.Decimal, mode string, offer *models.RechargeOffer, adminID *int64) (*RechargeResult, error) {
	recharge, err := s.appendLocked(ctx, tx, customer, AppendRequest{
		CustomerID:  customer.ID,
		Type:        models.TransactionRecharge,
		Amount:      amount,
		PaymentMode: mode,
		AdminID:     adminID,
	})
	if err != nil {
		return nil, err
	}

	result := &RechargeResult{Transaction: recharge}
	if offer != nil && offer.BonusAmount.IsPositive() {
		bonus, err := s.appendLocked(ctx, tx, customer, AppendRequest{
			CustomerID:  customer.ID,
			Type:        models.TransactionBonus,
			Amount:      offer.BonusAmount,
			PaymentMode: models.PaymentModeSystem,
			AdminID:     adminID,
		})
		if err != nil {
			return nil, err
		}
		result.Bonus = bonus
	}

	result.NewBalance = customer.CurrentBalance
	return result, nil
}

func (s *LedgerService) auditResult(result *RechargeResult) {
	for _, entry := range []*models.Transaction{result.Transaction, result.Bonus} {
		if entry != nil {
			s.audit.LogLedgerEntry(entry.ID, entry.CustomerID, string(entry.Type), entry.Amount, entry.AdminID)
		}
	}
}

// ListTransactions returns ledger entries newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.TransactionListItem, error) {
	var conditions []string
	var args []any
	argIndex := 1

	baseQuery := `
		SELECT t.id, t.customer_id, t.admin_id, t.transaction_type, t.amount, t.payment_mode, t.created_at,
		       c.name, c.mobile_number
		FROM transactions t
		INNER JOIN customers c ON c.id = t.customer_id
	`

	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("t.customer_id = $%d", argIndex))
		args = append(args, *filter.CustomerID)
		argIndex++
	}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("t.transaction_type = $%d", argIndex))
		args = append(args, string(filter.Type))
		argIndex++
	}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.TransactionListItem{}
	for rows.Next() {
		var item models.TransactionListItem
		var txType string
		if err := rows.Scan(
			&item.ID, &item.CustomerID, &item.AdminID, &txType, &item.Amount, &item.PaymentMode, &item.CreatedAt,
			&item.CustomerSummary.Name, &item.CustomerSummary.MobileNumber,
		); err != nil {
			return nil, err
		}
		item.Type = models.TransactionType(txType)
		items = append(items, item)
	}

	return items, rows.Err()
}

// VerifyBalance recomputes the wallet from the ledger and compares it with
// the cached balance.
func (s *LedgerService) VerifyBalance(ctx context.Context, customerID int64) (*BalanceReport, error) {
	report := &BalanceReport{CustomerID: customerID}

	err := s.db.QueryRowContext(ctx, `SELECT current_balance FROM customers WHERE id = $1`, customerID).
		Scan(&report.CachedBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "customer", ID: customerID}
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_type, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE customer_id = $1
		GROUP BY transaction_type`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var txType string
		var total decimal.Decimal
		if err := rows.Scan(&txType, &total); err != nil {
			return nil, err
		}
		sign := models.TransactionType(txType).Sign()
		if sign == 0 {
			return nil, fmt.Errorf("unknown transaction type %q in ledger of customer %d", txType, customerID)
		}
		report.LedgerBalance = report.LedgerBalance.Add(total.Mul(decimal.NewFromInt(int64(sign))))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.Consistent = report.CachedBalance.Equal(report.LedgerBalance)
	if !report.Consistent {
		s.log.Error("wallet balance drifted from ledger",
			zap.Int64("customer_id", customerID),
			zap.String("cached", report.CachedBalance.StringFixed(2)),
			zap.String("ledger", report.LedgerBalance.StringFixed(2)))
	}
	return report, nil
}

func (s *LedgerService) lockCustomer(ctx context.Context, tx *sql.Tx, customerID int64) (*models.Customer, error) {
	customer, err := scanCustomer(tx.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
		FOR UPDATE`, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "customer", ID: customerID}
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *LedgerService) insertTransaction(ctx context.Context, tx *sql.Tx, entry *models.Transaction) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (customer_id, admin_id, transaction_type, amount, payment_mode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		entry.CustomerID, entry.AdminID, string(entry.Type), entry.Amount, entry.PaymentMode, time.Now()).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (s *LedgerService) updateCustomerBalance(ctx context.Context, tx *sql.Tx, customerID int64, newBalance decimal.Decimal, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET current_balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), customerID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w for customer %d", errConcurrentUpdate, customerID)
	}

	return nil
}
