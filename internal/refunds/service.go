package refunds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

// Service handles refund claims and the approval unwind.
type Service interface {
	RequestRefund(ctx context.Context, input RequestRefundInput) (*models.RefundRequest, error)
	DecideRefund(ctx context.Context, input DecideRefundInput) (*models.RefundRequest, error)
	UpdateDecisionNotes(ctx context.Context, input UpdateNotesInput) (*models.RefundRequest, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// RequestRefundInput captures a customer's refund claim against an order.
type RequestRefundInput struct {
	OrderID   uuid.UUID
	Reason    string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// DecideRefundInput captures the admin decision.
type DecideRefundInput struct {
	RefundID  uuid.UUID
	Decision  enums.RefundStatus
	Notes     *string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// UpdateNotesInput edits the free-text decision notes.
type UpdateNotesInput struct {
	RefundID  uuid.UUID
	Notes     string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// RefundRequestedEvent is emitted when a customer opens a claim.
type RefundRequestedEvent struct {
	RefundID    uuid.UUID `json:"refund_id"`
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ExpertID    uuid.UUID `json:"expert_id"`
	AmountCents int64     `json:"amount_cents"`
}

// RefundDecidedEvent is emitted for both approvals and rejections.
type RefundDecidedEvent struct {
	RefundID    uuid.UUID          `json:"refund_id"`
	OrderID     uuid.UUID          `json:"order_id"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	ExpertID    uuid.UUID          `json:"expert_id"`
	Decision    enums.RefundStatus `json:"decision"`
	AmountCents int64              `json:"amount_cents"`
}

// NewService builds a refunds service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) RequestRefund(ctx context.Context, input RequestRefundInput) (*models.RefundRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can request a refund")
	}

	var created *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status == enums.OrderStatusRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already refunded")
		}
		if order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot be refunded")
		}

		exists, err := repo.OutstandingExists(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check outstanding refunds")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "an outstanding refund request already exists for this order")
		}

		refund := &models.RefundRequest{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			AmountCents: order.TotalPriceCents,
			Status:      enums.RefundStatusRequested,
			Reason:      strings.TrimSpace(input.Reason),
		}
		created, err = repo.Create(ctx, refund)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateRefundRequest,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: RefundRequestedEvent{
				RefundID:    created.ID,
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				ExpertID:    order.ExpertID,
				AmountCents: created.AmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) DecideRefund(ctx context.Context, input DecideRefundInput) (*models.RefundRequest, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if input.Decision != enums.RefundStatusApproved && input.Decision != enums.RefundStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var decided *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		refund, err := repo.FindByIDForUpdate(ctx, input.RefundID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
		}
		if refund.Status.IsDecided() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request is already decided")
		}

		order, err := repo.FindOrderForUpdate(ctx, refund.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// Delivered is terminal. The order may have been delivered after the
		// request was filed; the stale request can still be rejected.
		if input.Decision == enums.RefundStatusApproved && order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot be refunded")
		}

		now := time.Now()
		updates := map[string]any{
			"status":     input.Decision,
			"decided_by": input.ActorID,
			"decided_at": now,
		}
		if input.Notes != nil {
			updates["decision_notes"] = *input.Notes
		}
		if err := repo.Update(ctx, refund.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide refund request")
		}
		refund.Status = input.Decision
		refund.DecisionNotes = input.Notes
		refund.DecidedBy = &input.ActorID
		refund.DecidedAt = &now

		if input.Decision == enums.RefundStatusApproved {
			if err := s.unwind(ctx, repo, order); err != nil {
				return err
			}
		}
		decided = refund

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundDecided,
			AggregateType: enums.AggregateRefundRequest,
			AggregateID:   refund.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: RefundDecidedEvent{
				RefundID:    refund.ID,
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				ExpertID:    order.ExpertID,
				Decision:    refund.Status,
				AmountCents: refund.AmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// unwind reverses the order's financial state and reopens its request. All of
// it rides the decision transaction, so a failure leaves nothing half done.
func (s *service) unwind(ctx context.Context, repo Repository, order *models.Order) error {
	if err := repo.MarkOrderPaymentsRefunded(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payments")
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":         enums.OrderStatusRefunded,
		"payment_status": enums.OrderPaymentStatusRefunded,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
	}
	if err := repo.DeletePayoutByOrder(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payout")
	}
	// The request goes back on the market. Sibling bids stay in place and can
	// be accepted again.
	if err := repo.UpdateRequestStatus(ctx, order.RequestID, enums.RequestStatusBidding); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen request")
	}
	if err := repo.UnacceptBid(ctx, order.BidID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unaccept bid")
	}
	return nil
}

func (s *service) UpdateDecisionNotes(ctx context.Context, input UpdateNotesInput) (*models.RefundRequest, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	refund, err := s.repo.FindByID(ctx, input.RefundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}

	// Notes editing is always allowed, even on decided refunds, and carries
	// no side effects.
	if err := s.repo.Update(ctx, refund.ID, map[string]any{"decision_notes": input.Notes}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update decision notes")
	}
	refund.DecisionNotes = &input.Notes
	return refund, nil
}
