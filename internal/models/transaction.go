package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger entry and determines its direction.
type TransactionType string

const (
	TransactionRecharge      TransactionType = "RECHARGE"
	TransactionBonus         TransactionType = "BONUS"
	TransactionSessionDeduct TransactionType = "SESSION_DEDUCT"
)

// Payment modes known to the venue. The set is configurable, see config.VenueConfig.
const (
	PaymentModeCash   = "CASH"
	PaymentModeCard   = "CARD"
	PaymentModeUPI    = "UPI"
	PaymentModeSystem = "SYSTEM"
)

// Sign returns +1 for credits, -1 for debits and 0 for unknown types.
func (t TransactionType) Sign() int {
	switch t {
	case TransactionRecharge, TransactionBonus:
		return 1
	case TransactionSessionDeduct:
		return -1
	default:
		return 0
	}
}

// IsCredit reports whether the entry adds to the wallet.
func (t TransactionType) IsCredit() bool { return t.Sign() > 0 }

// Valid reports whether t is a known ledger type.
func (t TransactionType) Valid() bool { return t.Sign() != 0 }

// Transaction is an immutable ledger entry. Amount is always positive;
// Type decides the direction.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	CustomerID  int64           `json:"customer_id" db:"customer_id"`
	AdminID     *int64          `json:"admin_id,omitempty" db:"admin_id"`
	Type        TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentMode *string         `json:"payment_mode,omitempty" db:"payment_mode"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// SignedAmount returns the amount with the direction applied.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type.Sign() < 0 {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionListItem is a ledger entry joined with its customer's contact details.
type TransactionListItem struct {
	Transaction
	CustomerSummary CustomerSummary `json:"customer"`
}
