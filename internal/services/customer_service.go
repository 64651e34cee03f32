package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dazzlersden/backend/internal/config"
	"github.com/dazzlersden/backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegisterCustomerRequest represents a new customer at the counter
type RegisterCustomerRequest struct {
	Name           string          `json:"name" validate:"required,min=1,max=100" example:"Asha Rao"`
	MobileNumber   string          `json:"mobile_number" validate:"required,numeric,min=10,max=15" example:"9876543210"`
	Birthdate      *time.Time      `json:"birthdate,omitempty" example:"2018-04-12T00:00:00Z"`
	InitialBalance decimal.Decimal `json:"initial_balance" swaggertype:"number" example:"1000"`
	PaymentMode    string          `json:"payment_mode,omitempty" example:"CASH"`
	AdminID        *int64          `json:"-"`
}

// UpdateCustomerRequest edits a customer's display attributes. A nil
// Birthdate keeps the stored one.
type UpdateCustomerRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=100" example:"Asha Rao"`
	MobileNumber string     `json:"mobile_number" validate:"required,numeric,min=10,max=15" example:"9876543210"`
	Birthdate    *time.Time `json:"birthdate,omitempty" example:"2018-04-12T00:00:00Z"`
}

// RegisterCustomerResult is the new customer with any opening ledger entries.
type RegisterCustomerResult struct {
	Customer *models.Customer `json:"customer"`
	Recharge *RechargeResult  `json:"recharge,omitempty"`
}

// CustomerFilter narrows ListCustomers. Search matches name or mobile
// number as a substring, or the id when numeric.
type CustomerFilter struct {
	Search string
	IDs    []int64
	Skip   int
	Limit  int
}

// BirthdayFilter narrows ListBirthdays. Month is 1-12.
type BirthdayFilter struct {
	Month  int
	Search string
	Skip   int
	Limit  int
}

type CustomerService struct {
	db      *sql.DB
	ledger  *LedgerService
	catalog *CatalogService
	audit   AuditLogger
	config  *config.VenueConfig
	log     *zap.Logger
}

func NewCustomerService(db *sql.DB, ledger *LedgerService, catalog *CatalogService, audit AuditLogger, cfg *config.VenueConfig, log *zap.Logger) *CustomerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerService{
		db:      db,
		ledger:  ledger,
		catalog: catalog,
		audit:   audit,
		config:  cfg,
		log:     log.Named("customers"),
	}
}

// RegisterCustomer creates the customer with a fresh scannable token and,
// when an initial balance is given, the opening RECHARGE (plus any offer
// BONUS) in the same database transaction.
func (s *CustomerService) RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (*RegisterCustomerResult, error) {
	name := strings.TrimSpace(req.Name)
	mobile := strings.TrimSpace(req.MobileNumber)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if mobile == "" {
		return nil, &ValidationError{Field: "mobile_number", Message: "is required"}
	}
	if req.InitialBalance.IsNegative() {
		return nil, &ValidationError{Field: "initial_balance", Message: "cannot be negative"}
	}

	mode := strings.ToUpper(strings.TrimSpace(req.PaymentMode))
	if mode == "" {
		mode = s.config.DefaultPaymentMode
	}

	var offer *models.RechargeOffer
	if req.InitialBalance.IsPositive() {
		if !s.config.IsPaymentModeAllowed(mode) {
			return nil, &ValidationError{Field: "payment_mode", Message: fmt.Sprintf("%q is not an accepted payment mode", mode)}
		}
		if err := ValidateAppend(AppendRequest{Type: models.TransactionRecharge, Amount: req.InitialBalance, PaymentMode: mode}); err != nil {
			return nil, err
		}
		var err error
		if offer, err = s.catalog.MatchOffer(ctx, req.InitialBalance); err != nil {
			return nil, err
		}
	}

	var taken bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE mobile_number = $1)`, mobile).
		Scan(&taken); err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrMobileRegistered
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	customer, err := scanCustomer(tx.QueryRowContext(ctx, `
		INSERT INTO customers (qr_code_uuid, name, mobile_number, birthdate, current_balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $5)
		RETURNING `+customerColumns,
		uuid.New(), name, mobile, req.Birthdate, now))
	if err != nil {
		return nil, mapConstraintError(err)
	}

	result := &RegisterCustomerResult{Customer: customer}
	if req.InitialBalance.IsPositive() {
		result.Recharge, err = s.ledger.creditLocked(ctx, tx, customer, req.InitialBalance, mode, offer, req.AdminID)
		if err != nil {
			s.audit.LogError("CUSTOMER_REGISTER", customer.ID, err)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapConstraintError(fmt.Errorf("commit registration: %w", err))
	}

	if result.Recharge != nil {
		s.ledger.auditResult(result.Recharge)
	}
	s.log.Info("customer registered",
		zap.Int64("customer_id", customer.ID),
		zap.String("opening_balance", customer.CurrentBalance.StringFixed(2)))
	return result, nil
}

// UpdateCustomer changes name, mobile number and birthdate. The balance,
// token and ledger are never touched; a mobile number held by another
// customer is a ConflictError.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, req UpdateCustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	mobile := strings.TrimSpace(req.MobileNumber)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if mobile == "" {
		return nil, &ValidationError{Field: "mobile_number", Message: "is required"}
	}

	customer, err := scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $1, mobile_number = $2, birthdate = COALESCE($3, birthdate), updated_at = $4
		WHERE id = $5
		RETURNING `+customerColumns,
		name, mobile, req.Birthdate, time.Now(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "customer", ID: id}
	}
	if err != nil {
		return nil, mapConstraintError(err)
	}

	s.log.Info("customer updated", zap.Int64("customer_id", id))
	return customer, nil
}

// ListCustomers returns one page of customers, newest first, and the total
// matching the filter.
func (s *CustomerService) ListCustomers(ctx context.Context, filter CustomerFilter) ([]models.Customer, int, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if len(filter.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.IDs))
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		clause := fmt.Sprintf("name ILIKE $%d OR mobile_number ILIKE $%d", argIndex, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
		if id, err := strconv.ParseInt(search, 10, 64); err == nil {
			clause += fmt.Sprintf(" OR id = $%d", argIndex)
			args = append(args, id)
			argIndex++
		}
		conditions = append(conditions, "("+clause+")")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.Limit, filter.Skip)
	}

	customers, err := s.queryCustomers(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// GetCustomer returns the customer with the given id.
func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "customer", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomerByToken resolves a scanned token. Malformed tokens are reported
// as not found.
func (s *CustomerService) GetCustomerByToken(ctx context.Context, raw string) (*models.Customer, error) {
	token, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &NotFoundError{Entity: "customer with QR code", ID: raw}
	}

	customer, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE qr_code_uuid = $1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "customer with QR code", ID: raw}
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// ListBirthdays returns customers born in the given month, ordered by day.
func (s *CustomerService) ListBirthdays(ctx context.Context, filter BirthdayFilter) ([]models.Customer, int, error) {
	if filter.Month < 1 || filter.Month > 12 {
		return nil, 0, &ValidationError{Field: "month", Message: "must be between 1 and 12"}
	}

	search := strings.TrimSpace(filter.Search)
	where := `
		WHERE birthdate IS NOT NULL
		AND EXTRACT(MONTH FROM birthdate) = $1
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR mobile_number ILIKE '%' || $2 || '%')`

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`+where, filter.Month, search).
		Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.config.DefaultPageSize
	}
	customers, err := s.queryCustomers(ctx, `SELECT `+customerColumns+` FROM customers`+where+`
		ORDER BY EXTRACT(DAY FROM birthdate) ASC, name ASC
		LIMIT $3 OFFSET $4`, filter.Month, search, limit, filter.Skip)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (s *CustomerService) queryCustomers(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	return customers, rows.Err()
}

const customerColumns = `id, qr_code_uuid, name, mobile_number, birthdate, current_balance, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(
		&c.ID, &c.QRToken, &c.Name, &c.MobileNumber, &c.Birthdate,
		&c.CurrentBalance, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// lockCustomerByToken resolves a scanned token and locks the row in tx.
func lockCustomerByToken(ctx context.Context, tx *sql.Tx, token uuid.UUID) (*models.Customer, error) {
	customer, err := scanCustomer(tx.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE qr_code_uuid = $1
		FOR UPDATE`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "customer with QR code", ID: token.String()}
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}
