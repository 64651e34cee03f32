package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRService_CustomerCard(t *testing.T) {
	ctx := context.Background()
	getCustomerSQL := regexp.QuoteMeta("FROM customers WHERE id = $1")
	key := "qr:customer:" + testToken.String()

	setup := func(t *testing.T) (*CustomerService, sqlmock.Sqlmock) {
		customers, sqlMock, _ := newTestCustomers(t)
		sqlMock.ExpectQuery(getCustomerSQL).WithArgs(int64(1)).WillReturnRows(customerRow(1, "0", 0))
		return customers, sqlMock
	}

	t.Run("cache miss renders and stores", func(t *testing.T) {
		customers, sqlMock := setup(t)
		rdb, redisMock := redismock.NewClientMock()

		want, err := qrcode.Encode(testToken.String(), qrcode.Medium, 256)
		require.NoError(t, err)

		redisMock.ExpectGet(key).RedisNil()
		redisMock.ExpectSet(key, want, 5*time.Minute).SetVal("OK")

		service := NewQRService(customers, rdb, 5*time.Minute, 256, nil)
		png, err := service.CustomerCard(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, want, png)
		assert.NoError(t, redisMock.ExpectationsWereMet())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("cache hit", func(t *testing.T) {
		customers, _ := setup(t)
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet(key).SetVal("cached-png")

		service := NewQRService(customers, rdb, 5*time.Minute, 256, nil)
		png, err := service.CustomerCard(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached-png"), png)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("redis errors fall back to rendering", func(t *testing.T) {
		customers, _ := setup(t)
		rdb, redisMock := redismock.NewClientMock()

		want, err := qrcode.Encode(testToken.String(), qrcode.Medium, 256)
		require.NoError(t, err)

		redisMock.ExpectGet(key).SetErr(errors.New("connection refused"))
		redisMock.ExpectSet(key, want, 5*time.Minute).SetErr(errors.New("connection refused"))

		service := NewQRService(customers, rdb, 5*time.Minute, 256, nil)
		png, err := service.CustomerCard(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, want, png)
	})

	t.Run("without redis", func(t *testing.T) {
		customers, _ := setup(t)

		service := NewQRService(customers, nil, time.Minute, 128, nil)
		uri, err := service.CustomerCardDataURI(ctx, 1)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	})

	t.Run("unknown customer", func(t *testing.T) {
		customers, sqlMock, _ := newTestCustomers(t)
		sqlMock.ExpectQuery(getCustomerSQL).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows(customerCols))

		service := NewQRService(customers, nil, time.Minute, 128, nil)
		_, err := service.CustomerCard(ctx, 9)
		assert.True(t, IsNotFound(err))
	})
}
