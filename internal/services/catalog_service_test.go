package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewCatalogService(db)

	t.Run("plans cheapest first", func(t *testing.T) {
		sqlMock.ExpectQuery("FROM price_plans WHERE is_active = TRUE ORDER BY price ASC").
			WillReturnRows(sqlmock.NewRows(planCols).
				AddRow(1, "30 Minutes", 30, "350", 1, true).
				AddRow(2, "1 Hour", 60, "600", 1, true))

		plans, err := service.ListPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "30 Minutes", plans[0].Name)
		assert.Equal(t, 30, plans[0].DurationMinutes)
	})

	t.Run("inactive or missing plan", func(t *testing.T) {
		sqlMock.ExpectQuery(getPlanSQL).WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(planCols))

		_, err := service.GetPlan(ctx, 5)
		assert.True(t, IsNotFound(err))
		assert.EqualError(t, err, "price plan 5 not found")
	})

	t.Run("offer match", func(t *testing.T) {
		sqlMock.ExpectQuery(matchOfferSQL).WithArgs(dec("1000")).
			WillReturnRows(sqlmock.NewRows(offerCols).AddRow(1, "1000", "100", "Pay 1000 get 100", true))

		offer, err := service.MatchOffer(ctx, dec("1000.00"))
		require.NoError(t, err)
		require.NotNil(t, offer)
		assert.True(t, offer.BonusAmount.Equal(dec("100")))
	})

	t.Run("no offer", func(t *testing.T) {
		sqlMock.ExpectQuery(matchOfferSQL).WithArgs(dec("999")).WillReturnRows(sqlmock.NewRows(offerCols))

		offer, err := service.MatchOffer(ctx, dec("999"))
		require.NoError(t, err)
		assert.Nil(t, offer)
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCatalogService_ManagePlans(t *testing.T) {
	ctx := context.Background()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewCatalogService(db)

	t.Run("create defaults to active", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("INSERT INTO price_plans (name, duration_minutes, price, included_adults, is_active)")).
			WithArgs("2 Hours", 120, dec("1000"), 2, true).
			WillReturnRows(sqlmock.NewRows(planCols).AddRow(4, "2 Hours", 120, "1000", 2, true))

		plan, err := service.CreatePlan(ctx, PlanRequest{Name: " 2 Hours ", DurationMinutes: 120, Price: dec("1000.001"), IncludedAdults: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), plan.ID)
		assert.Equal(t, 2*time.Hour, plan.Duration())
	})

	t.Run("price change keeps the active flag", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("UPDATE price_plans SET name = $1, duration_minutes = $2, price = $3, included_adults = $4, is_active = COALESCE($5, is_active) WHERE id = $6")).
			WithArgs("1 Hour", 60, dec("650"), 1, nil, int64(2)).
			WillReturnRows(sqlmock.NewRows(planCols).AddRow(2, "1 Hour", 60, "650", 1, true))

		plan, err := service.UpdatePlan(ctx, 2, PlanRequest{Name: "1 Hour", DurationMinutes: 60, Price: dec("650"), IncludedAdults: 1})
		require.NoError(t, err)
		assert.True(t, plan.Price.Equal(dec("650")))
		assert.True(t, plan.IsActive)
	})

	t.Run("update of a missing plan", func(t *testing.T) {
		sqlMock.ExpectQuery("UPDATE price_plans").WillReturnRows(sqlmock.NewRows(planCols))

		_, err := service.UpdatePlan(ctx, 99, PlanRequest{Name: "Gone", DurationMinutes: 30, Price: dec("1")})
		assert.True(t, IsNotFound(err))
	})

	t.Run("deactivate instead of delete", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("UPDATE price_plans SET is_active = FALSE WHERE id = $1")).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(planCols).AddRow(2, "1 Hour", 60, "650", 1, false))

		plan, err := service.DeactivatePlan(ctx, 2)
		require.NoError(t, err)
		assert.False(t, plan.IsActive)
	})

	t.Run("all plans include deactivated ones", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("FROM price_plans ORDER BY price ASC, id ASC")).
			WillReturnRows(sqlmock.NewRows(planCols).
				AddRow(1, "30 Minutes", 30, "350", 1, true).
				AddRow(2, "1 Hour", 60, "650", 1, false))

		plans, err := service.ListAllPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.False(t, plans[1].IsActive)
	})

	t.Run("invalid plans never reach the store", func(t *testing.T) {
		tests := []struct {
			name  string
			req   PlanRequest
			field string
		}{
			{"blank name", PlanRequest{Name: "  ", DurationMinutes: 30, Price: dec("10")}, "name"},
			{"zero duration", PlanRequest{Name: "Zero", Price: dec("10")}, "duration_minutes"},
			{"negative price", PlanRequest{Name: "Neg", DurationMinutes: 30, Price: dec("-1")}, "price"},
			{"negative adults", PlanRequest{Name: "Neg", DurationMinutes: 30, Price: dec("1"), IncludedAdults: -1}, "included_adults"},
		}
		for _, tt := range tests {
			_, err := service.CreatePlan(ctx, tt.req)
			var invalid *ValidationError
			require.True(t, errors.As(err, &invalid), tt.name)
			assert.Equal(t, tt.field, invalid.Field, tt.name)
		}
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCatalogService_ManageOffers(t *testing.T) {
	ctx := context.Background()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewCatalogService(db)
	inactive := false

	t.Run("create", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("INSERT INTO recharge_offers (trigger_amount, bonus_amount, description, is_active)")).
			WithArgs(dec("2000"), dec("300"), "Pay 2000 get 300", false).
			WillReturnRows(sqlmock.NewRows(offerCols).AddRow(3, "2000", "300", "Pay 2000 get 300", false))

		offer, err := service.CreateOffer(ctx, OfferRequest{
			TriggerAmount: dec("2000"), BonusAmount: dec("300"), Description: "Pay 2000 get 300", IsActive: &inactive,
		})
		require.NoError(t, err)
		assert.False(t, offer.IsActive)
	})

	t.Run("update", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("UPDATE recharge_offers SET trigger_amount = $1, bonus_amount = $2, description = $3, is_active = COALESCE($4, is_active) WHERE id = $5")).
			WithArgs(dec("2000"), dec("350"), "", nil, int64(3)).
			WillReturnRows(sqlmock.NewRows(offerCols).AddRow(3, "2000", "350", "", false))

		offer, err := service.UpdateOffer(ctx, 3, OfferRequest{TriggerAmount: dec("2000"), BonusAmount: dec("350")})
		require.NoError(t, err)
		assert.True(t, offer.BonusAmount.Equal(dec("350")))
	})

	t.Run("deactivate missing offer", func(t *testing.T) {
		sqlMock.ExpectQuery(regexp.QuoteMeta("UPDATE recharge_offers SET is_active = FALSE WHERE id = $1")).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(offerCols))

		_, err := service.DeactivateOffer(ctx, 8)
		assert.True(t, IsNotFound(err))
	})

	t.Run("trigger must be positive", func(t *testing.T) {
		_, err := service.CreateOffer(ctx, OfferRequest{TriggerAmount: decimal.Zero, BonusAmount: dec("10")})
		assert.True(t, IsValidation(err))

		_, err = service.UpdateOffer(ctx, 3, OfferRequest{TriggerAmount: dec("100"), BonusAmount: dec("-1")})
		assert.True(t, IsValidation(err))
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
