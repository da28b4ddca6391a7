package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and their ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
