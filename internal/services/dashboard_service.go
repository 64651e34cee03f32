package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/dazzlersden/backend/internal/models"
	"github.com/shopspring/decimal"
)

// DashboardStats are the headline counters of the front desk.
type DashboardStats struct {
	ActiveSessions  int             `json:"active_sessions"`
	OverdueSessions int             `json:"overdue_sessions"`
	MonthlyRevenue  decimal.Decimal `json:"monthly_revenue" swaggertype:"number"`
}

// DashboardLists holds the session tables shown under the counters.
type DashboardLists struct {
	ActiveSessions  []models.SessionListItem `json:"active_sessions"`
	OverdueSessions []models.SessionListItem `json:"overdue_sessions"`
}

// DashboardSummary is the combined dashboard payload
type DashboardSummary struct {
	Stats DashboardStats `json:"stats"`
	Lists DashboardLists `json:"lists"`
}

type DashboardService struct {
	db       *sql.DB
	sessions *SessionService
	location *time.Location
}

func NewDashboardService(db *sql.DB, sessions *SessionService, location *time.Location) *DashboardService {
	if location == nil {
		location = time.UTC
	}
	return &DashboardService{db: db, sessions: sessions, location: location}
}

// Summary splits ACTIVE sessions into on-time and overdue at now and sums
// RECHARGE entries since the first of the month. Bonus credits are not revenue.
func (s *DashboardService) Summary(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	active, err := s.sessions.ListActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		Lists: DashboardLists{
			ActiveSessions:  []models.SessionListItem{},
			OverdueSessions: []models.SessionListItem{},
		},
	}

	for _, item := range active {
		if item.IsOverdue(now) {
			summary.Lists.OverdueSessions = append(summary.Lists.OverdueSessions, item)
		} else {
			summary.Lists.ActiveSessions = append(summary.Lists.ActiveSessions, item)
		}
	}
	// most overdue first
	overdue := summary.Lists.OverdueSessions
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].ExpectedEndTime.Before(overdue[j].ExpectedEndTime)
	})

	summary.Stats.ActiveSessions = len(summary.Lists.ActiveSessions)
	summary.Stats.OverdueSessions = len(summary.Lists.OverdueSessions)

	local := now.In(s.location)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.location)
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE transaction_type = $1 AND created_at >= $2`,
		string(models.TransactionRecharge), monthStart).Scan(&summary.Stats.MonthlyRevenue); err != nil {
		return nil, err
	}

	return summary, nil
}
