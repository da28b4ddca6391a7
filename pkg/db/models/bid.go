package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Bid is an expert's offer on an open request. One bid per expert per request.
type Bid struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID    uuid.UUID          `gorm:"column:request_id;type:uuid;not null;uniqueIndex:idx_bids_request_expert"`
	ExpertID     uuid.UUID          `gorm:"column:expert_id;type:uuid;not null;uniqueIndex:idx_bids_request_expert"`
	CostCents    int64              `gorm:"column:cost_cents;not null"`
	Duration     int                `gorm:"column:duration;not null"`
	DurationUnit enums.DurationUnit `gorm:"column:duration_unit;type:text;not null;default:'days'"`
	Note         *string            `gorm:"column:note;type:text"`
	IsAccepted   bool               `gorm:"column:is_accepted;not null;default:false"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
