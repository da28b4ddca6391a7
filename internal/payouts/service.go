package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

// Service derives and releases the expert's commission-adjusted payout.
type Service interface {
	ComputeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payout, error)
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReleasePayout(ctx context.Context, input ReleasePayoutInput) (*models.Payout, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// ReleasePayoutInput captures an admin releasing a payout to the expert.
type ReleasePayoutInput struct {
	PayoutID  uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// PayoutReleasedEvent is emitted when a payout is released.
type PayoutReleasedEvent struct {
	PayoutID       uuid.UUID `json:"payout_id"`
	OrderID        uuid.UUID `json:"order_id"`
	ExpertID       uuid.UUID `json:"expert_id"`
	NetPayoutCents int64     `json:"net_payout_cents"`
}

// NewService builds a payouts service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

// Commission splits a collected total into commission and net according to
// the service type's percentage. Cents are rounded half up.
func Commission(totalPaymentCents int64, commissionPercent decimal.Decimal) (commissionCents, netCents int64) {
	total := decimal.NewFromInt(totalPaymentCents)
	commission := total.Mul(commissionPercent).Div(decimal.NewFromInt(100)).Round(0)
	commissionCents = commission.IntPart()
	netCents = totalPaymentCents - commissionCents
	return commissionCents, netCents
}

// ComputeForOrder upserts the order's single payout row from the current paid
// total. Re-running overwrites the amounts and resets the status to pending.
// Runs on the caller's transaction as part of order completion.
func (s *service) ComputeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payout, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}

	repo := s.repo.WithTx(tx)
	serviceType, err := repo.FindServiceType(ctx, order.ServiceTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service type not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service type")
	}

	totalPayment, err := repo.SumPaidPayments(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum paid payments")
	}
	commission, net := Commission(totalPayment, serviceType.CommissionPercent)

	existing, err := repo.FindByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}

	if existing == nil {
		payout := &models.Payout{
			OrderID:           order.ID,
			ExpertID:          order.ExpertID,
			TotalPaymentCents: totalPayment,
			CommissionCents:   commission,
			NetPayoutCents:    net,
			Status:            enums.PayoutStatusPending,
		}
		created, err := repo.Create(ctx, payout)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		return created, nil
	}

	if err := repo.Update(ctx, existing.ID, map[string]any{
		"expert_id":           order.ExpertID,
		"total_payment_cents": totalPayment,
		"commission_cents":    commission,
		"net_payout_cents":    net,
		"status":              enums.PayoutStatusPending,
		"released_at":         nil,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout")
	}
	existing.ExpertID = order.ExpertID
	existing.TotalPaymentCents = totalPayment
	existing.CommissionCents = commission
	existing.NetPayoutCents = net
	existing.Status = enums.PayoutStatusPending
	existing.ReleasedAt = nil
	return existing, nil
}

// ReleaseForOrder releases a pending payout when the customer confirms
// delivery. A missing or already-released payout is not an error here.
func (s *service) ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	payout, err := repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if payout.Status != enums.PayoutStatusPending {
		return nil
	}
	return s.release(ctx, tx, repo, payout, nil)
}

func (s *service) ReleasePayout(ctx context.Context, input ReleasePayoutInput) (*models.Payout, error) {
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var released *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindByIDForUpdate(ctx, input.PayoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout is not pending")
		}

		actor := &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()}
		if err := s.release(ctx, tx, repo, payout, actor); err != nil {
			return err
		}

		// Releasing the payout also hands the order over to the customer.
		order, err := repo.FindOrderForUpdate(ctx, payout.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCompleted {
			now := time.Now()
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
				"status":       enums.OrderStatusDelivered,
				"delivered_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver order")
			}
		}
		released = payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (s *service) release(ctx context.Context, tx *gorm.DB, repo Repository, payout *models.Payout, actor *outbox.ActorRef) error {
	now := time.Now()
	if err := repo.Update(ctx, payout.ID, map[string]any{
		"status":      enums.PayoutStatusReleased,
		"released_at": now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release payout")
	}
	payout.Status = enums.PayoutStatusReleased
	payout.ReleasedAt = &now

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayoutReleased,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         actor,
		Data: PayoutReleasedEvent{
			PayoutID:       payout.ID,
			OrderID:        payout.OrderID,
			ExpertID:       payout.ExpertID,
			NetPayoutCents: payout.NetPayoutCents,
		},
	})
}
