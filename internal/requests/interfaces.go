package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Repository defines persistence operations for repair requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.Request) (*models.Request, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindServiceType(ctx context.Context, id uuid.UUID) (*models.ServiceType, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error
}
