package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Payout records what the expert is owed for a completed order, net of the
// platform commission. At most one payout exists per order.
type Payout struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ExpertID          uuid.UUID          `gorm:"column:expert_id;type:uuid;not null;index"`
	TotalPaymentCents int64              `gorm:"column:total_payment_cents;not null"`
	CommissionCents   int64              `gorm:"column:commission_cents;not null"`
	NetPayoutCents    int64              `gorm:"column:net_payout_cents;not null"`
	Status            enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ReleasedAt        *time.Time         `gorm:"column:released_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
