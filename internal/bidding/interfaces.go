package bidding

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// Repository defines persistence operations for bids and their requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBid(ctx context.Context, bid *models.Bid) (*models.Bid, error)
	FindBidByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	BidExists(ctx context.Context, requestID, expertID uuid.UUID) (bool, error)
	FindRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error)
	SetBidAcceptance(ctx context.Context, bidID uuid.UUID, accepted bool) error
	UnacceptSiblings(ctx context.Context, requestID, acceptedBidID uuid.UUID) error
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error
}
