package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/internal/payments"
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

// PayoutComputer upserts and releases payouts inside the order transaction.
type PayoutComputer interface {
	ComputeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payout, error)
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Service is the order lifecycle controller.
type Service interface {
	CreateFromBid(ctx context.Context, tx *gorm.DB, request *models.Request, bid *models.Bid) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	RequestAdditionalPayment(ctx context.Context, input AdditionalPaymentInput) (*models.Order, error)
	MarkCompleted(ctx context.Context, input MarkCompletedInput) (*models.Order, error)
	MarkDelivered(ctx context.Context, input MarkDeliveredInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	payouts PayoutComputer
}

// AdditionalPaymentInput captures an expert's extra charge request.
type AdditionalPaymentInput struct {
	OrderID     uuid.UUID
	AmountCents int64
	Reason      string
	ActorID     uuid.UUID
	ActorRole   enums.ActorRole
}

// MarkCompletedInput captures the expert's completion claim.
type MarkCompletedInput struct {
	OrderID   uuid.UUID
	Notes     *string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// MarkDeliveredInput captures the customer's receipt confirmation.
type MarkDeliveredInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// OrderCreatedEvent is emitted when bid acceptance opens an order.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	BidID          uuid.UUID `json:"bid_id"`
	RequestID      uuid.UUID `json:"request_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	ExpertID       uuid.UUID `json:"expert_id"`
	BasePriceCents int64     `json:"base_price_cents"`
	Deadline       time.Time `json:"deadline"`
}

// ExtraPaymentRequestedEvent is emitted when an expert adds an extra charge.
type ExtraPaymentRequestedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	PaymentID       uuid.UUID `json:"payment_id"`
	CustomerID      uuid.UUID `json:"customer_id"`
	ExpertID        uuid.UUID `json:"expert_id"`
	AmountCents     int64     `json:"amount_cents"`
	Reason          string    `json:"reason"`
	TotalPriceCents int64     `json:"total_price_cents"`
}

// OrderStatusEvent is emitted on completion and delivery.
type OrderStatusEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	ExpertID   uuid.UUID         `json:"expert_id"`
	Status     enums.OrderStatus `json:"status"`
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, payouts PayoutComputer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if payouts == nil {
		return nil, fmt.Errorf("payout computer required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, payouts: payouts}, nil
}

// CreateFromBid opens the order for an accepted bid. It runs on the caller's
// transaction so acceptance and order creation commit or roll back together.
func (s *service) CreateFromBid(ctx context.Context, tx *gorm.DB, request *models.Request, bid *models.Bid) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if request == nil || bid == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "request and bid required")
	}

	repo := s.repo.WithTx(tx)
	now := time.Now()
	order := &models.Order{
		BidID:           bid.ID,
		RequestID:       request.ID,
		CustomerID:      request.CustomerID,
		ExpertID:        bid.ExpertID,
		ServiceTypeID:   request.ServiceTypeID,
		BasePriceCents:  bid.CostCents,
		ExtraPriceCents: 0,
		TotalPriceCents: bid.CostCents,
		Status:          enums.OrderStatusInProgress,
		PaymentStatus:   enums.OrderPaymentStatusUnpaid,
		Deadline:        now.Add(bid.DurationUnit.Span(bid.Duration)),
	}
	created, err := repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	initial := &models.Payment{
		OrderID:     created.ID,
		Type:        enums.PaymentTypeInitial,
		AmountCents: bid.CostCents,
		Status:      enums.PaymentStatusPending,
	}
	if _, err := repo.CreatePayment(ctx, initial); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create initial payment")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   created.ID,
		Data: OrderCreatedEvent{
			OrderID:        created.ID,
			BidID:          bid.ID,
			RequestID:      request.ID,
			CustomerID:     request.CustomerID,
			ExpertID:       bid.ExpertID,
			BasePriceCents: bid.CostCents,
			Deadline:       created.Deadline,
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) RequestAdditionalPayment(ctx context.Context, input AdditionalPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleExpert {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the expert can request extra charges")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.ExpertID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to expert")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer in progress")
		}

		reason := strings.TrimSpace(input.Reason)
		payment := &models.Payment{
			OrderID:     order.ID,
			Type:        enums.PaymentTypeExtra,
			AmountCents: input.AmountCents,
			Status:      enums.PaymentStatusPending,
			Reason:      &reason,
		}
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create extra payment")
		}

		ledger, err := repo.ListPayments(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment ledger")
		}
		extra := payments.SumExtra(ledger)
		total := order.BasePriceCents + extra
		status := payments.RecomputeStatus(ledger, total)
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"extra_price_cents": extra,
			"total_price_cents": total,
			"payment_status":    status,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order aggregates")
		}
		order.ExtraPriceCents = extra
		order.TotalPriceCents = total
		order.PaymentStatus = status
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExtraPaymentRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: ExtraPaymentRequestedEvent{
				OrderID:         order.ID,
				PaymentID:       payment.ID,
				CustomerID:      order.CustomerID,
				ExpertID:        order.ExpertID,
				AmountCents:     payment.AmountCents,
				Reason:          reason,
				TotalPriceCents: total,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) MarkCompleted(ctx context.Context, input MarkCompletedInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleExpert {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the expert can complete an order")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.ExpertID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to expert")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be completed in its current state")
		}
		if order.PaymentStatus != enums.OrderPaymentStatusFullyPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not fully paid")
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
		}
		if input.Notes != nil {
			updates["completion_notes"] = *input.Notes
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now
		order.CompletionNotes = input.Notes

		if _, err := s.payouts.ComputeForOrder(ctx, tx, order); err != nil {
			return err
		}
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: OrderStatusEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				ExpertID:   order.ExpertID,
				Status:     order.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) MarkDelivered(ctx context.Context, input MarkDeliveredInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can confirm delivery")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.CustomerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed orders can be delivered")
		}

		now := time.Now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver order")
		}
		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &now

		if err := s.payouts.ReleaseForOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: OrderStatusEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				ExpertID:   order.ExpertID,
				Status:     order.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
