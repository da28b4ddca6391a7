package bidding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/fixitlabs/fixit-backend/pkg/db"
	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderCreator opens the order that results from an accepted bid, inside the
// acceptance transaction.
type OrderCreator interface {
	CreateFromBid(ctx context.Context, tx *gorm.DB, request *models.Request, bid *models.Bid) (*models.Order, error)
}

// Service covers the bid placement and acceptance flow.
type Service interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error)
	AcceptBid(ctx context.Context, input AcceptBidInput) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	orders OrderCreator
}

// PlaceBidInput captures an expert's offer on a request.
type PlaceBidInput struct {
	RequestID    uuid.UUID
	ExpertID     uuid.UUID
	CostCents    int64
	Duration     int
	DurationUnit enums.DurationUnit
	Note         *string
	ActorRole    enums.ActorRole
}

// AcceptBidInput captures the customer's choice of winning bid.
type AcceptBidInput struct {
	BidID     uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// BidPlacedEvent is emitted when a new bid lands on a request.
type BidPlacedEvent struct {
	BidID      uuid.UUID `json:"bid_id"`
	RequestID  uuid.UUID `json:"request_id"`
	ExpertID   uuid.UUID `json:"expert_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	CostCents  int64     `json:"cost_cents"`
}

// BidAcceptedEvent is emitted when a customer accepts a bid and the order opens.
type BidAcceptedEvent struct {
	BidID      uuid.UUID `json:"bid_id"`
	RequestID  uuid.UUID `json:"request_id"`
	OrderID    uuid.UUID `json:"order_id"`
	ExpertID   uuid.UUID `json:"expert_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	CostCents  int64     `json:"cost_cents"`
}

// NewService builds a bidding service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, orders OrderCreator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bidding repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, orders: orders}, nil
}

func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ExpertID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleExpert {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only experts can bid")
	}
	if input.CostCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid cost must be positive")
	}
	if input.Duration <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid duration must be positive")
	}
	if !input.DurationUnit.IsValid() {
		input.DurationUnit = enums.DurationUnitDays
	}

	var created *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindRequestForUpdate(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.Status != enums.RequestStatusBidding {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open for bidding")
		}

		exists, err := repo.BidExists(ctx, request.ID, input.ExpertID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing bid")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "expert already bid on this request")
		}

		bid := &models.Bid{
			RequestID:    request.ID,
			ExpertID:     input.ExpertID,
			CostCents:    input.CostCents,
			Duration:     input.Duration,
			DurationUnit: input.DurationUnit,
			Note:         input.Note,
		}
		created, err = repo.CreateBid(ctx, bid)
		if err != nil {
			if dbpkg.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "expert already bid on this request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateBid,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: input.ExpertID, Role: input.ActorRole.String()},
			Data: BidPlacedEvent{
				BidID:      created.ID,
				RequestID:  request.ID,
				ExpertID:   input.ExpertID,
				CustomerID: request.CustomerID,
				CostCents:  created.CostCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) AcceptBid(ctx context.Context, input AcceptBidInput) (*models.Order, error) {
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can accept a bid")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		bid, err := repo.FindBidByID(ctx, input.BidID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
		}

		request, err := repo.FindRequestForUpdate(ctx, bid.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.CustomerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request does not belong to customer")
		}
		if request.Status != enums.RequestStatusBidding {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open for bidding")
		}

		if err := repo.SetBidAcceptance(ctx, bid.ID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept bid")
		}
		if err := repo.UnacceptSiblings(ctx, request.ID, bid.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unaccept sibling bids")
		}
		if err := repo.UpdateRequestStatus(ctx, request.ID, enums.RequestStatusClosed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close request")
		}

		bid.IsAccepted = true
		order, err = s.orders.CreateFromBid(ctx, tx, request, bid)
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidAccepted,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: BidAcceptedEvent{
				BidID:      bid.ID,
				RequestID:  request.ID,
				OrderID:    order.ID,
				ExpertID:   bid.ExpertID,
				CustomerID: request.CustomerID,
				CostCents:  bid.CostCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
