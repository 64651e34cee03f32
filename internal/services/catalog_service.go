package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dazzlersden/backend/internal/models"
	"github.com/shopspring/decimal"
)

// PlanRequest creates or edits a price plan. A nil IsActive keeps the
// stored flag on update and means active on create.
type PlanRequest struct {
	Name            string          `json:"name" validate:"required,max=100" example:"1 Hour"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,gt=0" example:"60"`
	Price           decimal.Decimal `json:"price" swaggertype:"number" example:"600"`
	IncludedAdults  int             `json:"included_adults" validate:"gte=0" example:"1"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

// OfferRequest creates or edits a recharge offer.
type OfferRequest struct {
	TriggerAmount decimal.Decimal `json:"trigger_amount" swaggertype:"number" example:"1000"`
	BonusAmount   decimal.Decimal `json:"bonus_amount" swaggertype:"number" example:"100"`
	Description   string          `json:"description" validate:"max=200" example:"Pay 1000 get 100"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

// CatalogService manages price plans and recharge offers. Rows are never
// deleted: sessions reference plans, so retiring one means deactivating it.
// Sessions snapshot their cost, so price edits never reach past sessions.
type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetPlan returns an active plan or a NotFoundError.
func (s *CatalogService) GetPlan(ctx context.Context, planID int64) (*models.PricePlan, error) {
	plan, err := scanPlan(s.db.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM price_plans
		WHERE id = $1 AND is_active = TRUE`, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "price plan", ID: planID}
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListPlans returns active plans, cheapest first.
func (s *CatalogService) ListPlans(ctx context.Context) ([]models.PricePlan, error) {
	return s.queryPlans(ctx, `WHERE is_active = TRUE`)
}

// ListAllPlans includes deactivated plans.
func (s *CatalogService) ListAllPlans(ctx context.Context) ([]models.PricePlan, error) {
	return s.queryPlans(ctx, ``)
}

func (s *CatalogService) queryPlans(ctx context.Context, where string) ([]models.PricePlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM price_plans
		`+where+`
		ORDER BY price ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []models.PricePlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// ListOffers returns every recharge offer ordered by trigger amount.
func (s *CatalogService) ListOffers(ctx context.Context) ([]models.RechargeOffer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offerColumns+`
		FROM recharge_offers
		ORDER BY trigger_amount ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := []models.RechargeOffer{}
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

// MatchOffer returns the active offer triggered by amount, or nil.
func (s *CatalogService) MatchOffer(ctx context.Context, amount decimal.Decimal) (*models.RechargeOffer, error) {
	offer, err := scanOffer(s.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+`
		FROM recharge_offers
		WHERE trigger_amount = $1 AND is_active = TRUE
		ORDER BY bonus_amount DESC
		LIMIT 1`, amount.Round(2)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// CreatePlan adds a price plan, active unless IsActive says otherwise.
func (s *CatalogService) CreatePlan(ctx context.Context, req PlanRequest) (*models.PricePlan, error) {
	if err := validatePlan(&req); err != nil {
		return nil, err
	}
	active := req.IsActive == nil || *req.IsActive

	return scanPlan(s.db.QueryRowContext(ctx, `
		INSERT INTO price_plans (name, duration_minutes, price, included_adults, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+planColumns,
		req.Name, req.DurationMinutes, req.Price, req.IncludedAdults, active))
}

// UpdatePlan edits a plan, including deactivated ones.
func (s *CatalogService) UpdatePlan(ctx context.Context, planID int64, req PlanRequest) (*models.PricePlan, error) {
	if err := validatePlan(&req); err != nil {
		return nil, err
	}

	plan, err := scanPlan(s.db.QueryRowContext(ctx, `
		UPDATE price_plans
		SET name = $1, duration_minutes = $2, price = $3, included_adults = $4, is_active = COALESCE($5, is_active)
		WHERE id = $6
		RETURNING `+planColumns,
		req.Name, req.DurationMinutes, req.Price, req.IncludedAdults, req.IsActive, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "price plan", ID: planID}
	}
	return plan, err
}

// DeactivatePlan hides a plan from new sessions.
func (s *CatalogService) DeactivatePlan(ctx context.Context, planID int64) (*models.PricePlan, error) {
	plan, err := scanPlan(s.db.QueryRowContext(ctx, `
		UPDATE price_plans SET is_active = FALSE WHERE id = $1
		RETURNING `+planColumns, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "price plan", ID: planID}
	}
	return plan, err
}

// CreateOffer adds a recharge offer, active unless IsActive says otherwise.
func (s *CatalogService) CreateOffer(ctx context.Context, req OfferRequest) (*models.RechargeOffer, error) {
	if err := validateOffer(&req); err != nil {
		return nil, err
	}
	active := req.IsActive == nil || *req.IsActive

	return scanOffer(s.db.QueryRowContext(ctx, `
		INSERT INTO recharge_offers (trigger_amount, bonus_amount, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+offerColumns,
		req.TriggerAmount, req.BonusAmount, req.Description, active))
}

func (s *CatalogService) UpdateOffer(ctx context.Context, offerID int64, req OfferRequest) (*models.RechargeOffer, error) {
	if err := validateOffer(&req); err != nil {
		return nil, err
	}

	offer, err := scanOffer(s.db.QueryRowContext(ctx, `
		UPDATE recharge_offers
		SET trigger_amount = $1, bonus_amount = $2, description = $3, is_active = COALESCE($4, is_active)
		WHERE id = $5
		RETURNING `+offerColumns,
		req.TriggerAmount, req.BonusAmount, req.Description, req.IsActive, offerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "recharge offer", ID: offerID}
	}
	return offer, err
}

// DeactivateOffer stops an offer from granting bonuses.
func (s *CatalogService) DeactivateOffer(ctx context.Context, offerID int64) (*models.RechargeOffer, error) {
	offer, err := scanOffer(s.db.QueryRowContext(ctx, `
		UPDATE recharge_offers SET is_active = FALSE WHERE id = $1
		RETURNING `+offerColumns, offerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "recharge offer", ID: offerID}
	}
	return offer, err
}

func validatePlan(req *PlanRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Price = req.Price.Round(2)
	switch {
	case req.Name == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case req.DurationMinutes <= 0:
		return &ValidationError{Field: "duration_minutes", Message: "must be positive"}
	case req.Price.IsNegative():
		return &ValidationError{Field: "price", Message: "cannot be negative"}
	case req.IncludedAdults < 0:
		return &ValidationError{Field: "included_adults", Message: "cannot be negative"}
	}
	return nil
}

func validateOffer(req *OfferRequest) error {
	req.Description = strings.TrimSpace(req.Description)
	req.TriggerAmount = req.TriggerAmount.Round(2)
	req.BonusAmount = req.BonusAmount.Round(2)
	if !req.TriggerAmount.IsPositive() {
		return &ValidationError{Field: "trigger_amount", Message: "must be positive"}
	}
	if req.BonusAmount.IsNegative() {
		return &ValidationError{Field: "bonus_amount", Message: "cannot be negative"}
	}
	return nil
}

const (
	planColumns  = `id, name, duration_minutes, price, included_adults, is_active`
	offerColumns = `id, trigger_amount, bonus_amount, description, is_active`
)

func scanPlan(row rowScanner) (*models.PricePlan, error) {
	var p models.PricePlan
	if err := row.Scan(&p.ID, &p.Name, &p.DurationMinutes, &p.Price, &p.IncludedAdults, &p.IsActive); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanOffer(row rowScanner) (*models.RechargeOffer, error) {
	var o models.RechargeOffer
	if err := row.Scan(&o.ID, &o.TriggerAmount, &o.BonusAmount, &o.Description, &o.IsActive); err != nil {
		return nil, err
	}
	return &o, nil
}
