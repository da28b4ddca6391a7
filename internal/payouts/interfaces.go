package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
)

// Repository defines persistence operations for payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payout, error)
	Create(ctx context.Context, payout *models.Payout) (*models.Payout, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindServiceType(ctx context.Context, id uuid.UUID) (*models.ServiceType, error)
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SumPaidPayments(ctx context.Context, orderID uuid.UUID) (int64, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
