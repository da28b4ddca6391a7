package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// RefundRequest is a customer's claim against an order, decided by an admin.
type RefundRequest struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID    uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	AmountCents   int64              `gorm:"column:amount_cents;not null"`
	Status        enums.RefundStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	Reason        string             `gorm:"column:reason;type:text;not null"`
	DecisionNotes *string            `gorm:"column:decision_notes;type:text"`
	DecidedBy     *uuid.UUID         `gorm:"column:decided_by;type:uuid"`
	DecidedAt     *time.Time         `gorm:"column:decided_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
