package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a venue customer holding a prepaid wallet.
// CurrentBalance is a cached projection of the ledger and is only written by
// the ledger service in the same SQL transaction that appends an entry.
type Customer struct {
	ID             int64           `json:"id" db:"id" example:"1"`
	QRToken        uuid.UUID       `json:"qr_code_uuid" db:"qr_code_uuid"`
	Name           string          `json:"name" db:"name" example:"Asha Rao"`
	MobileNumber   string          `json:"mobile_number" db:"mobile_number" example:"9876543210"`
	Birthdate      *time.Time      `json:"birthdate,omitempty" db:"birthdate"`
	CurrentBalance decimal.Decimal `json:"current_balance" db:"current_balance"`
	Version        int             `json:"-" db:"version"` // for optimistic locking
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// CustomerSummary is the slim customer projection embedded in session lists.
type CustomerSummary struct {
	Name         string `json:"name"`
	MobileNumber string `json:"mobile_number"`
}
