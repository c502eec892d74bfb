package models

import "time"

type PaymentRecordStatus string

const (
	PaymentRecordInitiated PaymentRecordStatus = "initiated"
	PaymentRecordSuccess   PaymentRecordStatus = "success"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
	PaymentRecordRefunded  PaymentRecordStatus = "refunded"
)

// Payment is an append-only audit trail row. It is created once per payment
// outcome and never mutated afterwards; the unique provider reference is what
// makes webhook redelivery idempotent.
type Payment struct {
	ID                string              `gorm:"primaryKey" json:"id"`
	CustomerID        string              `gorm:"index;not null" json:"customer_id"`
	Amount            float64             `gorm:"not null" json:"amount"`
	Method            string              `json:"method"` // e.g. "card", "upi"
	Status            PaymentRecordStatus `gorm:"type:VARCHAR(20);default:'initiated';index" json:"status"`
	ProviderPaymentID string              `gorm:"uniqueIndex" json:"provider_payment_id"`
	PaymentDate       time.Time           `json:"payment_date"`
	CreatedAt         time.Time           `json:"created_at"`
}
