package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a paid session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
)

// Session is a timed, paid visit. Cost fields are snapshotted when the session
// starts and never follow later plan price changes.
type Session struct {
	ID                 int64           `json:"id" db:"id"`
	CustomerID         int64           `json:"customer_id" db:"customer_id"`
	PlanID             *int64          `json:"plan_id,omitempty" db:"plan_id"`
	Children           int             `json:"children" db:"children"`
	Adults             int             `json:"adults" db:"adults"`
	DurationMinutes    int             `json:"duration_minutes" db:"duration_minutes"`
	ActualCost         decimal.Decimal `json:"actual_cost" db:"actual_cost"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" db:"discount_percentage"`
	DiscountReason     *string         `json:"discount_reason,omitempty" db:"discount_reason"`
	CostDeducted       decimal.Decimal `json:"cost_deducted" db:"cost_deducted"`
	StartTime          time.Time       `json:"start_time" db:"start_time"`
	ExpectedEndTime    time.Time       `json:"expected_end_time" db:"expected_end_time"`
	ActualEndTime      *time.Time      `json:"actual_end_time,omitempty" db:"actual_end_time"`
	Status             SessionStatus   `json:"status" db:"status"`
	Customer           *Customer       `json:"customer,omitempty"`
}

// IsOverdue reports whether an active session has run past its expected end.
func (s Session) IsOverdue(now time.Time) bool {
	return s.Status == SessionActive && s.ExpectedEndTime.Before(now)
}

// SessionListItem is a session row joined with its customer's contact details.
type SessionListItem struct {
	Session
	CustomerSummary CustomerSummary `json:"customer_summary"`
}
