package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dazzlersden/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricingInput selects how a session is priced: FixedPlan or AdHocPricing.
type PricingInput interface {
	isPricingInput()
}

// FixedPlan prices a session from the catalog.
type FixedPlan struct {
	PlanID int64
}

// AdHocPricing prices a session from a counter quote with an optional discount.
type AdHocPricing struct {
	ActualCost         decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountReason     string
	DurationMinutes    int
}

func (FixedPlan) isPricingInput()    {}
func (AdHocPricing) isPricingInput() {}

var hundred = decimal.NewFromInt(100)

// DiscountedCost returns actual × (1 − pct/100), rounded to two places.
func (p AdHocPricing) DiscountedCost() decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(p.DiscountPercentage.Div(hundred))
	return p.ActualCost.Mul(factor).Round(2)
}

// StartSessionRequest is the input of StartSession.
type StartSessionRequest struct {
	QRToken  string
	Pricing  PricingInput
	Children int
	Adults   int
	AdminID  *int64
}

// quote is a resolved price for a session about to start.
type quote struct {
	planID             *int64
	durationMinutes    int
	duration           time.Duration
	actualCost         decimal.Decimal
	discountPercentage decimal.Decimal
	discountReason     *string
	cost               decimal.Decimal
}

// SessionService owns the NONE -> ACTIVE -> COMPLETED lifecycle and couples
// session creation to the ledger deduction.
type SessionService struct {
	db      *sql.DB
	ledger  *LedgerService
	catalog *CatalogService
	audit   AuditLogger
	log     *zap.Logger
	now     func() time.Time
}

func NewSessionService(db *sql.DB, ledger *LedgerService, catalog *CatalogService, audit AuditLogger, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{
		db:      db,
		ledger:  ledger,
		catalog: catalog,
		audit:   audit,
		log:     log.Named("sessions"),
		now:     time.Now,
	}
}

// StartSession prices the visit, resolves the customer by scannable token,
// checks there is no active session, deducts the cost and opens the session.
// Pricing reads the catalog before the transaction begins so a start never
// holds two pooled connections. The customer row stays locked from the checks
// until commit, so concurrent starts for one customer are serialized; the
// partial unique index on active sessions backs this up at the store level.
func (s *SessionService) StartSession(ctx context.Context, req StartSessionRequest) (*models.Session, error) {
	token, err := uuid.Parse(strings.TrimSpace(req.QRToken))
	if err != nil {
		return nil, &NotFoundError{Entity: "customer with QR code", ID: req.QRToken}
	}
	if req.Pricing == nil {
		return nil, &ValidationError{Field: "pricing", Message: "plan_id or actual_cost is required"}
	}
	if req.Children < 0 || req.Adults < 0 {
		return nil, &ValidationError{Field: "party", Message: "children and adults cannot be negative"}
	}

	q, err := s.resolvePricing(ctx, req.Pricing)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	customer, err := lockCustomerByToken(ctx, tx, token)
	if err != nil {
		return nil, err
	}

	session, err := s.startLocked(ctx, tx, customer, q, req)
	if err == nil {
		err = tx.Commit()
		if err != nil {
			err = mapConstraintError(fmt.Errorf("commit session start: %w", err))
		}
	}
	if err != nil {
		s.audit.LogError("SESSION_START", customer.ID, err)
		return nil, err
	}

	session.Customer = customer
	s.audit.LogSession(session.ID, customer.ID, "START", q.cost, req.AdminID)
	s.log.Info("session started",
		zap.Int64("session_id", session.ID),
		zap.Int64("customer_id", customer.ID),
		zap.String("cost", q.cost.StringFixed(2)),
		zap.Time("expected_end_time", session.ExpectedEndTime))
	return session, nil
}

// startLocked runs the checks and writes of a start against a locked customer.
func (s *SessionService) startLocked(ctx context.Context, tx *sql.Tx, customer *models.Customer, q *quote, req StartSessionRequest) (*models.Session, error) {
	active, err := s.hasActiveSession(ctx, tx, customer.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveSessionExists
	}

	if customer.CurrentBalance.LessThan(q.cost) {
		return nil, &InsufficientFundsError{Required: q.cost, Available: customer.CurrentBalance}
	}

	if q.cost.IsPositive() {
		if _, err := s.ledger.appendLocked(ctx, tx, customer, AppendRequest{
			CustomerID: customer.ID,
			Type:       models.TransactionSessionDeduct,
			Amount:     q.cost,
			AdminID:    req.AdminID,
		}); err != nil {
			return nil, err
		}
	}

	start := s.now()
	session := &models.Session{
		CustomerID:         customer.ID,
		PlanID:             q.planID,
		Children:           req.Children,
		Adults:             req.Adults,
		DurationMinutes:    q.durationMinutes,
		ActualCost:         q.actualCost,
		DiscountPercentage: q.discountPercentage,
		DiscountReason:     q.discountReason,
		CostDeducted:       q.cost,
		StartTime:          start,
		ExpectedEndTime:    start.Add(q.duration),
		Status:             models.SessionActive,
	}

	if err := s.insertSession(ctx, tx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// EndSession marks an active session COMPLETED. Ending a completed session
// is a ConflictError and changes nothing.
func (s *SessionService) EndSession(ctx context.Context, sessionID int64, adminID *int64) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	session, err := scanSession(tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
		FOR UPDATE`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}
	if err != nil {
		return nil, err
	}

	if session.Status != models.SessionActive {
		return nil, ErrSessionClosed
	}

	end := s.now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET actual_end_time = $1, status = $2
		WHERE id = $3`, end, string(models.SessionCompleted), sessionID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session exit: %w", err)
	}

	session.ActualEndTime = &end
	session.Status = models.SessionCompleted
	s.audit.LogSession(session.ID, session.CustomerID, "END", decimal.Zero, adminID)
	return session, nil
}

// ListActiveSessions returns all ACTIVE sessions, newest first.
func (s *SessionService) ListActiveSessions(ctx context.Context) ([]models.SessionListItem, error) {
	return s.querySessions(ctx, `
		WHERE s.status = 'ACTIVE'
		ORDER BY s.start_time DESC`)
}

// ListOverdueSessions returns ACTIVE sessions past their expected end, most
// overdue first.
func (s *SessionService) ListOverdueSessions(ctx context.Context, now time.Time) ([]models.SessionListItem, error) {
	return s.querySessions(ctx, `
		WHERE s.status = 'ACTIVE' AND s.expected_end_time < $1
		ORDER BY s.expected_end_time ASC`, now)
}

// ListSessions returns one page of session history and the total count.
// A non-positive limit returns the whole history.
func (s *SessionService) ListSessions(ctx context.Context, skip, limit int) ([]models.SessionListItem, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	// LIMIT NULL returns every row
	var pageLimit any
	if limit > 0 {
		pageLimit = limit
	}
	items, err := s.querySessions(ctx, `
		ORDER BY s.start_time DESC
		LIMIT $1 OFFSET $2`, pageLimit, skip)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *SessionService) querySessions(ctx context.Context, where string, args ...any) ([]models.SessionListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedSessionColumns+`, c.name, c.mobile_number
		FROM sessions s
		INNER JOIN customers c ON c.id = s.customer_id
		`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.SessionListItem{}
	for rows.Next() {
		var item models.SessionListItem
		var status string
		if err := rows.Scan(append(sessionDest(&item.Session, &status),
			&item.CustomerSummary.Name, &item.CustomerSummary.MobileNumber)...); err != nil {
			return nil, err
		}
		item.Status = models.SessionStatus(status)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SessionService) resolvePricing(ctx context.Context, input PricingInput) (*quote, error) {
	switch p := input.(type) {
	case FixedPlan:
		plan, err := s.catalog.GetPlan(ctx, p.PlanID)
		if err != nil {
			return nil, err
		}
		planID := plan.ID
		return &quote{
			planID:             &planID,
			durationMinutes:    plan.DurationMinutes,
			duration:           plan.Duration(),
			actualCost:         plan.Price,
			discountPercentage: decimal.Zero,
			cost:               plan.Price.Round(2),
		}, nil

	case AdHocPricing:
		if p.ActualCost.IsNegative() {
			return nil, &ValidationError{Field: "actual_cost", Message: "cannot be negative"}
		}
		if p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred) {
			return nil, &ValidationError{Field: "discount_percentage", Message: "must be between 0 and 100"}
		}
		if p.DurationMinutes <= 0 {
			return nil, &ValidationError{Field: "duration", Message: "must be positive"}
		}
		q := &quote{
			durationMinutes:    p.DurationMinutes,
			duration:           time.Duration(p.DurationMinutes) * time.Minute,
			actualCost:         p.ActualCost.Round(2),
			discountPercentage: p.DiscountPercentage,
			cost:               p.DiscountedCost(),
		}
		if reason := strings.TrimSpace(p.DiscountReason); reason != "" {
			q.discountReason = &reason
		}
		return q, nil

	default:
		return nil, &ValidationError{Field: "pricing", Message: fmt.Sprintf("unsupported pricing input %T", input)}
	}
}

func (s *SessionService) hasActiveSession(ctx context.Context, tx *sql.Tx, customerID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sessions
			WHERE customer_id = $1 AND status = 'ACTIVE'
		)`, customerID).Scan(&exists)
	return exists, err
}

func (s *SessionService) insertSession(ctx context.Context, tx *sql.Tx, session *models.Session) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO sessions
		(customer_id, plan_id, children, adults, duration_minutes, actual_cost, discount_percentage,
		 discount_reason, cost_deducted, start_time, expected_end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		session.CustomerID, session.PlanID, session.Children, session.Adults, session.DurationMinutes,
		session.ActualCost, session.DiscountPercentage, session.DiscountReason, session.CostDeducted,
		session.StartTime, session.ExpectedEndTime, string(session.Status)).Scan(&session.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

const sessionColumns = `id, customer_id, plan_id, children, adults, duration_minutes, actual_cost,
		discount_percentage, discount_reason, cost_deducted, start_time, expected_end_time, actual_end_time, status`

const prefixedSessionColumns = `s.id, s.customer_id, s.plan_id, s.children, s.adults, s.duration_minutes, s.actual_cost,
		s.discount_percentage, s.discount_reason, s.cost_deducted, s.start_time, s.expected_end_time, s.actual_end_time, s.status`

func sessionDest(session *models.Session, status *string) []any {
	return []any{
		&session.ID, &session.CustomerID, &session.PlanID, &session.Children, &session.Adults,
		&session.DurationMinutes, &session.ActualCost, &session.DiscountPercentage, &session.DiscountReason,
		&session.CostDeducted, &session.StartTime, &session.ExpectedEndTime, &session.ActualEndTime, status,
	}
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var session models.Session
	var status string
	if err := row.Scan(sessionDest(&session, &status)...); err != nil {
		return nil, err
	}
	session.Status = models.SessionStatus(status)
	return &session, nil
}
