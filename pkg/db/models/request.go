package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Request is a customer-posted repair request that experts bid on.
type Request struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	ServiceTypeID uuid.UUID           `gorm:"column:service_type_id;type:uuid;not null"`
	Title         string              `gorm:"column:title;type:text;not null"`
	Description   string              `gorm:"column:description;type:text;not null"`
	Status        enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ServiceType   *ServiceType        `gorm:"foreignKey:ServiceTypeID"`
	Bids          []Bid               `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
