package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// QRService renders the customer's scannable token as a PNG card. Rendered
// images are cached in Redis for a short time when a client is configured.
type QRService struct {
	customers *CustomerService
	redis     *redis.Client
	ttl       time.Duration
	size      int
	log       *zap.Logger
}

func NewQRService(customers *CustomerService, redis *redis.Client, ttl time.Duration, size int, log *zap.Logger) *QRService {
	if log == nil {
		log = zap.NewNop()
	}
	if size <= 0 {
		size = 256
	}
	return &QRService{
		customers: customers,
		redis:     redis,
		ttl:       ttl,
		size:      size,
		log:       log.Named("qr"),
	}
}

// CustomerCard returns the PNG encoding of the customer's token.
func (s *QRService) CustomerCard(ctx context.Context, customerID int64) ([]byte, error) {
	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	token := customer.QRToken.String()
	key := cacheKey(token)

	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			return data, nil
		}
		if err != redis.Nil {
			s.log.Warn("qr cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	png, err := qrcode.Encode(token, qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("render qr for customer %d: %w", customerID, err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, png, s.ttl).Err(); err != nil {
			s.log.Warn("qr cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return png, nil
}

// CustomerCardDataURI returns the card as a base64 data URI for inline display.
func (s *QRService) CustomerCardDataURI(ctx context.Context, customerID int64) (string, error) {
	png, err := s.CustomerCard(ctx, customerID)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func cacheKey(token string) string {
	return fmt.Sprintf("qr:customer:%s", token)
}
