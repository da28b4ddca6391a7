package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Order is the work agreement created when a customer accepts a bid.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BidID           uuid.UUID                `gorm:"column:bid_id;type:uuid;not null;uniqueIndex"`
	RequestID       uuid.UUID                `gorm:"column:request_id;type:uuid;not null;index"`
	CustomerID      uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	ExpertID        uuid.UUID                `gorm:"column:expert_id;type:uuid;not null;index"`
	ServiceTypeID   uuid.UUID                `gorm:"column:service_type_id;type:uuid;not null"`
	BasePriceCents  int64                    `gorm:"column:base_price_cents;not null"`
	ExtraPriceCents int64                    `gorm:"column:extra_price_cents;not null;default:0"`
	TotalPriceCents int64                    `gorm:"column:total_price_cents;not null"`
	Status          enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'in_progress'"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Deadline        time.Time                `gorm:"column:deadline;not null"`
	CompletionNotes *string                  `gorm:"column:completion_notes;type:text"`
	CompletedAt     *time.Time               `gorm:"column:completed_at"`
	DeliveredAt     *time.Time               `gorm:"column:delivered_at"`
	Payments        []Payment                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payout          *Payout                  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
