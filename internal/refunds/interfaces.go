package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Repository defines persistence operations for refund requests and the
// entities an approval unwinds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.RefundRequest) (*models.RefundRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	OutstandingExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkOrderPaymentsRefunded(ctx context.Context, orderID uuid.UUID) error
	DeletePayoutByOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error
	UnacceptBid(ctx context.Context, bidID uuid.UUID) error
}
