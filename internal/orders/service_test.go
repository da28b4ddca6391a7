package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/outbox"
)

type stubOrdersRepo struct {
	order        *models.Order
	ledger       []models.Payment
	createdOrder *models.Order
	payments     []*models.Payment
	orderUpdates map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.createdOrder = order
	return order, nil
}

func (s *stubOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments = append(s.payments, payment)
	s.ledger = append(s.ledger, *payment)
	return payment, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrdersRepo) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return s.ledger, nil
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.orderUpdates == nil {
		s.orderUpdates = make(map[string]any)
	}
	for key, value := range updates {
		s.orderUpdates[key] = value
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubPayoutComputer struct {
	computed *models.Order
	released uuid.UUID
}

func (s *stubPayoutComputer) ComputeForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payout, error) {
	s.computed = order
	return &models.Payout{ID: uuid.New(), OrderID: order.ID}, nil
}

func (s *stubPayoutComputer) ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	s.released = orderID
	return nil
}

func newOrdersService(t *testing.T, repo *stubOrdersRepo, events *stubOutboxPublisher, payouts *stubPayoutComputer) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, events, payouts)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateFromBidSeedsOrderAndInitialPayment(t *testing.T) {
	repo := &stubOrdersRepo{}
	events := &stubOutboxPublisher{}
	svc := newOrdersService(t, repo, events, &stubPayoutComputer{})

	request := &models.Request{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		ServiceTypeID: uuid.New(),
	}
	bid := &models.Bid{
		ID:           uuid.New(),
		RequestID:    request.ID,
		ExpertID:     uuid.New(),
		CostCents:    10000,
		Duration:     2,
		DurationUnit: enums.DurationUnitDays,
	}

	before := time.Now()
	order, err := svc.CreateFromBid(context.Background(), &gorm.DB{}, request, bid)
	if err != nil {
		t.Fatalf("CreateFromBid: %v", err)
	}

	if order.Status != enums.OrderStatusInProgress {
		t.Fatalf("expected in_progress, got %s", order.Status)
	}
	if order.PaymentStatus != enums.OrderPaymentStatusUnpaid {
		t.Fatalf("expected unpaid, got %s", order.PaymentStatus)
	}
	if order.BasePriceCents != 10000 || order.TotalPriceCents != 10000 || order.ExtraPriceCents != 0 {
		t.Fatalf("unexpected amounts: base=%d extra=%d total=%d",
			order.BasePriceCents, order.ExtraPriceCents, order.TotalPriceCents)
	}

	wantDeadline := before.Add(48 * time.Hour)
	if order.Deadline.Before(wantDeadline.Add(-time.Minute)) || order.Deadline.After(wantDeadline.Add(time.Minute)) {
		t.Fatalf("deadline not ~48h out: %s", order.Deadline)
	}

	if len(repo.payments) != 1 {
		t.Fatalf("expected one initial payment, got %d", len(repo.payments))
	}
	initial := repo.payments[0]
	if initial.Type != enums.PaymentTypeInitial || initial.Status != enums.PaymentStatusPending || initial.AmountCents != 10000 {
		t.Fatalf("unexpected initial payment: %+v", initial)
	}

	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order_created event, got %+v", events.events)
	}
}

func TestRequestAdditionalPaymentGrowsTotal(t *testing.T) {
	expertID := uuid.New()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		ExpertID:        expertID,
		BasePriceCents:  10000,
		TotalPriceCents: 10000,
		Status:          enums.OrderStatusInProgress,
		PaymentStatus:   enums.OrderPaymentStatusFullyPaid,
	}
	paidAt := time.Now()
	repo := &stubOrdersRepo{
		order: order,
		ledger: []models.Payment{{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Type:        enums.PaymentTypeInitial,
			AmountCents: 10000,
			Status:      enums.PaymentStatusPaid,
			PaidAt:      &paidAt,
		}},
	}
	events := &stubOutboxPublisher{}
	svc := newOrdersService(t, repo, events, &stubPayoutComputer{})

	updated, err := svc.RequestAdditionalPayment(context.Background(), AdditionalPaymentInput{
		OrderID:     order.ID,
		AmountCents: 2000,
		Reason:      "replacement part",
		ActorID:     expertID,
		ActorRole:   enums.ActorRoleExpert,
	})
	if err != nil {
		t.Fatalf("RequestAdditionalPayment: %v", err)
	}

	if updated.ExtraPriceCents != 2000 || updated.TotalPriceCents != 12000 {
		t.Fatalf("unexpected amounts: extra=%d total=%d", updated.ExtraPriceCents, updated.TotalPriceCents)
	}
	if updated.PaymentStatus != enums.OrderPaymentStatusPartiallyPaid {
		t.Fatalf("expected partially_paid after new pending charge, got %s", updated.PaymentStatus)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventExtraPaymentRequested {
		t.Fatalf("expected extra_payment_requested event, got %+v", events.events)
	}
}

func TestRequestAdditionalPaymentRequiresInProgress(t *testing.T) {
	expertID := uuid.New()
	order := &models.Order{
		ID:       uuid.New(),
		ExpertID: expertID,
		Status:   enums.OrderStatusCompleted,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutboxPublisher{}, &stubPayoutComputer{})

	_, err := svc.RequestAdditionalPayment(context.Background(), AdditionalPaymentInput{
		OrderID:     order.ID,
		AmountCents: 2000,
		Reason:      "late part",
		ActorID:     expertID,
		ActorRole:   enums.ActorRoleExpert,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMarkCompletedRequiresFullPayment(t *testing.T) {
	expertID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		ExpertID:      expertID,
		Status:        enums.OrderStatusInProgress,
		PaymentStatus: enums.OrderPaymentStatusPartiallyPaid,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutboxPublisher{}, &stubPayoutComputer{})

	_, err := svc.MarkCompleted(context.Background(), MarkCompletedInput{
		OrderID:   order.ID,
		ActorID:   expertID,
		ActorRole: enums.ActorRoleExpert,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMarkCompletedComputesPayout(t *testing.T) {
	expertID := uuid.New()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		ExpertID:        expertID,
		TotalPriceCents: 10000,
		Status:          enums.OrderStatusInProgress,
		PaymentStatus:   enums.OrderPaymentStatusFullyPaid,
	}
	repo := &stubOrdersRepo{order: order}
	events := &stubOutboxPublisher{}
	payouts := &stubPayoutComputer{}
	svc := newOrdersService(t, repo, events, payouts)

	notes := "replaced the battery"
	updated, err := svc.MarkCompleted(context.Background(), MarkCompletedInput{
		OrderID:   order.ID,
		Notes:     &notes,
		ActorID:   expertID,
		ActorRole: enums.ActorRoleExpert,
	})
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if updated.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if payouts.computed == nil || payouts.computed.ID != order.ID {
		t.Fatal("payout was not computed for the order")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderCompleted {
		t.Fatalf("expected order_completed event, got %+v", events.events)
	}
}

func TestMarkDeliveredReleasesPayout(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		ExpertID:   uuid.New(),
		Status:     enums.OrderStatusCompleted,
	}
	repo := &stubOrdersRepo{order: order}
	events := &stubOutboxPublisher{}
	payouts := &stubPayoutComputer{}
	svc := newOrdersService(t, repo, events, payouts)

	updated, err := svc.MarkDelivered(context.Background(), MarkDeliveredInput{
		OrderID:   order.ID,
		ActorID:   customerID,
		ActorRole: enums.ActorRoleCustomer,
	})
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", updated.Status)
	}
	if payouts.released != order.ID {
		t.Fatal("payout was not released")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderDelivered {
		t.Fatalf("expected order_delivered event, got %+v", events.events)
	}
}

func TestMarkDeliveredOnInProgressOrderFails(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.OrderStatusInProgress,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutboxPublisher{}, &stubPayoutComputer{})

	_, err := svc.MarkDelivered(context.Background(), MarkDeliveredInput{
		OrderID:   order.ID,
		ActorID:   customerID,
		ActorRole: enums.ActorRoleCustomer,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
