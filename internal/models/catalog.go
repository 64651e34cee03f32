package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePlan maps a plan to a fixed duration and price.
type PricePlan struct {
	ID              int64           `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	DurationMinutes int             `json:"duration_minutes" db:"duration_minutes"`
	Price           decimal.Decimal `json:"price" db:"price"`
	IncludedAdults  int             `json:"included_adults" db:"included_adults"`
	IsActive        bool            `json:"is_active" db:"is_active"`
}

// Duration returns the plan length as a time.Duration.
func (p PricePlan) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}

// RechargeOffer grants BonusAmount when a recharge equals TriggerAmount.
type RechargeOffer struct {
	ID            int64           `json:"id" db:"id"`
	TriggerAmount decimal.Decimal `json:"trigger_amount" db:"trigger_amount"`
	BonusAmount   decimal.Decimal `json:"bonus_amount" db:"bonus_amount"`
	Description   string          `json:"description" db:"description"`
	IsActive      bool            `json:"is_active" db:"is_active"`
}
