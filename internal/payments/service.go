package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/gateway"
	"github.com/fixitlabs/fixit-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the payment ledger and the order aggregates derived from it.
type Service interface {
	ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*models.Order, error)
	UpdateAdditionalPayment(ctx context.Context, input UpdateAdditionalPaymentInput) (*models.Order, error)
	DeleteAdditionalPayment(ctx context.Context, input DeleteAdditionalPaymentInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	charger gateway.Charger
}

// ProcessPaymentInput settles pending ledger entries via the gateway. When
// PaymentID is nil every pending entry on the order is charged in one go.
type ProcessPaymentInput struct {
	OrderID   uuid.UUID
	PaymentID *uuid.UUID
	Phone     string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// UpdateAdditionalPaymentInput edits a pending extra charge.
type UpdateAdditionalPaymentInput struct {
	PaymentID   uuid.UUID
	AmountCents int64
	Reason      *string
	ActorID     uuid.UUID
	ActorRole   enums.ActorRole
}

// DeleteAdditionalPaymentInput removes a pending extra charge.
type DeleteAdditionalPaymentInput struct {
	PaymentID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// PaymentSettledEvent is emitted when pending ledger entries are charged.
type PaymentSettledEvent struct {
	OrderID       uuid.UUID                `json:"order_id"`
	CustomerID    uuid.UUID                `json:"customer_id"`
	ExpertID      uuid.UUID                `json:"expert_id"`
	PaymentIDs    []uuid.UUID              `json:"payment_ids"`
	AmountCents   int64                    `json:"amount_cents"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
}

// NewService builds a payments service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, charger gateway.Charger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if charger == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, charger: charger}, nil
}

func (s *service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can pay an order")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.CustomerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not accepting payments")
		}

		ledger, err := repo.ListByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment ledger")
		}

		targets := make([]*models.Payment, 0, len(ledger))
		for i := range ledger {
			p := &ledger[i]
			if p.Status != enums.PaymentStatusPending {
				continue
			}
			if input.PaymentID != nil && p.ID != *input.PaymentID {
				continue
			}
			targets = append(targets, p)
		}
		if input.PaymentID != nil && len(targets) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending on this order")
		}
		if len(targets) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no pending payments")
		}

		var amount int64
		for _, p := range targets {
			amount += p.AmountCents
		}

		// The charge gates the commit. A gateway failure rolls everything back.
		result, err := s.charger.Charge(ctx, gateway.ChargeRequest{
			Phone:       input.Phone,
			AmountCents: amount,
			Reference:   order.ID.String(),
		})
		if err != nil {
			return err
		}

		now := time.Now()
		paymentIDs := make([]uuid.UUID, 0, len(targets))
		for _, p := range targets {
			if err := repo.UpdatePayment(ctx, p.ID, map[string]any{
				"status":          enums.PaymentStatusPaid,
				"paid_at":         now,
				"transaction_ref": result.ReferenceID,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
			}
			p.Status = enums.PaymentStatusPaid
			paymentIDs = append(paymentIDs, p.ID)
		}

		status := RecomputeStatus(ledger, order.TotalPriceCents)
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"payment_status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}
		order.PaymentStatus = status
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: PaymentSettledEvent{
				OrderID:       order.ID,
				CustomerID:    order.CustomerID,
				ExpertID:      order.ExpertID,
				PaymentIDs:    paymentIDs,
				AmountCents:   amount,
				PaymentStatus: status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) UpdateAdditionalPayment(ctx context.Context, input UpdateAdditionalPaymentInput) (*models.Order, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	return s.mutateExtra(ctx, input.PaymentID, input.ActorID, input.ActorRole, func(repo Repository, payment *models.Payment) error {
		updates := map[string]any{"amount_cents": input.AmountCents}
		if input.Reason != nil {
			updates["reason"] = *input.Reason
		}
		if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update extra payment")
		}
		return nil
	})
}

func (s *service) DeleteAdditionalPayment(ctx context.Context, input DeleteAdditionalPaymentInput) (*models.Order, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	return s.mutateExtra(ctx, input.PaymentID, input.ActorID, input.ActorRole, func(repo Repository, payment *models.Payment) error {
		if err := repo.DeletePayment(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete extra payment")
		}
		return nil
	})
}

// mutateExtra guards an edit to a pending extra charge and re-derives the
// order aggregates from the resulting ledger.
func (s *service) mutateExtra(ctx context.Context, paymentID, actorID uuid.UUID, role enums.ActorRole, mutate func(Repository, *models.Payment) error) (*models.Order, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if role != enums.ActorRoleExpert {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the expert can edit extra charges")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Type != enums.PaymentTypeExtra || payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending extra charges can be edited")
		}

		order, err := lockOrder(ctx, repo, payment.OrderID)
		if err != nil {
			return err
		}
		if order.ExpertID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to expert")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer in progress")
		}

		if err := mutate(repo, payment); err != nil {
			return err
		}

		updated, err = applyLedgerAggregates(ctx, repo, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyLedgerAggregates re-derives extra_price, total_price and
// payment_status from the order's current ledger and persists them.
func applyLedgerAggregates(ctx context.Context, repo Repository, order *models.Order) (*models.Order, error) {
	ledger, err := repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment ledger")
	}

	extra := SumExtra(ledger)
	total := order.BasePriceCents + extra
	status := RecomputeStatus(ledger, total)

	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"extra_price_cents": extra,
		"total_price_cents": total,
		"payment_status":    status,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order aggregates")
	}

	order.ExtraPriceCents = extra
	order.TotalPriceCents = total
	order.PaymentStatus = status
	return order, nil
}

func lockOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
