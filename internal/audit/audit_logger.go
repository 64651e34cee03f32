package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AuditEvent struct {
	Timestamp     time.Time         `json:"timestamp"`
	EventType     string            `json:"event_type"`
	CustomerID    int64             `json:"customer_id"`
	TransactionID int64             `json:"transaction_id,omitempty"`
	SessionID     int64             `json:"session_id,omitempty"`
	AdminID       *int64            `json:"admin_id,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        string            `json:"status"`
	Details       map[string]string `json:"details,omitempty"`
}

// Logger writes audit events as structured log entries on a dedicated
// "audit" logger.
type Logger struct {
	log *zap.Logger
}

func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log.Named("audit")}
}

func (a *Logger) LogLedgerEntry(transactionID, customerID int64, txType string, amount decimal.Decimal, adminID *int64) {
	a.write(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "LEDGER_" + txType,
		CustomerID:    customerID,
		TransactionID: transactionID,
		AdminID:       adminID,
		Amount:        amount,
		Status:        "SUCCESS",
	})
}

func (a *Logger) LogSession(sessionID, customerID int64, operation string, amount decimal.Decimal, adminID *int64) {
	a.write(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "SESSION_" + operation,
		CustomerID: customerID,
		SessionID:  sessionID,
		AdminID:    adminID,
		Amount:     amount,
		Status:     "SUCCESS",
	})
}

func (a *Logger) LogError(operation string, customerID int64, err error) {
	a.write(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  operation,
		CustomerID: customerID,
		Status:     "FAILED",
		Details:    map[string]string{"error": err.Error()},
	})
}

func (a *Logger) write(event AuditEvent) {
	fields := []zap.Field{
		zap.Time("occurred_at", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.Int64("customer_id", event.CustomerID),
		zap.String("amount", event.Amount.StringFixed(2)),
		zap.String("status", event.Status),
	}
	if event.TransactionID != 0 {
		fields = append(fields, zap.Int64("transaction_id", event.TransactionID))
	}
	if event.SessionID != 0 {
		fields = append(fields, zap.Int64("session_id", event.SessionID))
	}
	if event.AdminID != nil {
		fields = append(fields, zap.Int64("admin_id", *event.AdminID))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String(k, v))
	}
	a.log.Info("AUDIT", fields...)
}
