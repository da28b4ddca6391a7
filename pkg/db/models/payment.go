package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Payment is a single ledger entry against an order. The initial entry is
// created alongside the order; extra entries are added by the expert.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Type           enums.PaymentType   `gorm:"column:type;type:text;not null"`
	AmountCents    int64               `gorm:"column:amount_cents;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Reason         *string             `gorm:"column:reason;type:text"`
	TransactionRef *string             `gorm:"column:transaction_ref;type:text"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
