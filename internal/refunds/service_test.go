package refunds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/outbox"
)

type stubRefundsRepo struct {
	refund           *models.RefundRequest
	order            *models.Order
	outstanding      bool
	created          *models.RefundRequest
	refundUpdates    map[string]any
	orderUpdates     map[string]any
	paymentsRefunded bool
	payoutDeleted    bool
	requestStatus    enums.RequestStatus
	unacceptedBidID  uuid.UUID
}

func (s *stubRefundsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRefundsRepo) Create(ctx context.Context, refund *models.RefundRequest) (*models.RefundRequest, error) {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	s.created = refund
	return refund, nil
}

func (s *stubRefundsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	if s.refund == nil || s.refund.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.refund, nil
}

func (s *stubRefundsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	return s.FindByID(ctx, id)
}

func (s *stubRefundsRepo) OutstandingExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.outstanding, nil
}

func (s *stubRefundsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.refundUpdates == nil {
		s.refundUpdates = make(map[string]any)
	}
	for key, value := range updates {
		s.refundUpdates[key] = value
	}
	return nil
}

func (s *stubRefundsRepo) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubRefundsRepo) MarkOrderPaymentsRefunded(ctx context.Context, orderID uuid.UUID) error {
	s.paymentsRefunded = true
	return nil
}

func (s *stubRefundsRepo) DeletePayoutByOrder(ctx context.Context, orderID uuid.UUID) error {
	s.payoutDeleted = true
	return nil
}

func (s *stubRefundsRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.orderUpdates == nil {
		s.orderUpdates = make(map[string]any)
	}
	for key, value := range updates {
		s.orderUpdates[key] = value
	}
	return nil
}

func (s *stubRefundsRepo) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error {
	s.requestStatus = status
	return nil
}

func (s *stubRefundsRepo) UnacceptBid(ctx context.Context, bidID uuid.UUID) error {
	s.unacceptedBidID = bidID
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

func TestRequestRefundSnapshotsOrderTotal(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ExpertID:        uuid.New(),
		TotalPriceCents: 12000,
		Status:          enums.OrderStatusCompleted,
	}
	repo := &stubRefundsRepo{order: order}
	events := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, events)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	refund, err := svc.RequestRefund(context.Background(), RequestRefundInput{
		OrderID:   order.ID,
		Reason:    "device came back dead",
		ActorID:   customerID,
		ActorRole: enums.ActorRoleCustomer,
	})
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}
	if refund.AmountCents != 12000 {
		t.Fatalf("expected amount snapshot of 12000, got %d", refund.AmountCents)
	}
	if refund.Status != enums.RefundStatusRequested {
		t.Fatalf("expected requested status, got %s", refund.Status)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventRefundRequested {
		t.Fatalf("expected refund_requested event, got %+v", events.events)
	}
}

func TestRequestRefundConflictsWithOutstanding(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.OrderStatusCompleted,
	}
	repo := &stubRefundsRepo{order: order, outstanding: true}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.RequestRefund(context.Background(), RequestRefundInput{
		OrderID:   order.ID,
		Reason:    "still broken",
		ActorID:   customerID,
		ActorRole: enums.ActorRoleCustomer,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequestRefundOnRefundedOrderFails(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.OrderStatusRefunded,
	}
	repo := &stubRefundsRepo{order: order}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.RequestRefund(context.Background(), RequestRefundInput{
		OrderID:   order.ID,
		Reason:    "double dip",
		ActorID:   customerID,
		ActorRole: enums.ActorRoleCustomer,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestRefundOnDeliveredOrderFails(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.OrderStatusDelivered,
	}
	repo := &stubRefundsRepo{order: order}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.RequestRefund(context.Background(), RequestRefundInput{
		OrderID:   order.ID,
		Reason:    "changed my mind",
		ActorID:   customerID,
		ActorRole: enums.ActorRoleCustomer,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("no refund request may be created for a delivered order")
	}
}

func TestApproveRefundOnDeliveredOrderFails(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		BidID:      uuid.New(),
		RequestID:  uuid.New(),
		CustomerID: uuid.New(),
		ExpertID:   uuid.New(),
		Status:     enums.OrderStatusDelivered,
	}
	refund := &models.RefundRequest{
		ID:          uuid.New(),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		AmountCents: 12000,
		Status:      enums.RefundStatusRequested,
	}
	repo := &stubRefundsRepo{refund: refund, order: order}
	events := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, events)

	_, err := svc.DecideRefund(context.Background(), DecideRefundInput{
		RefundID:  refund.ID,
		Decision:  enums.RefundStatusApproved,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if repo.paymentsRefunded || repo.payoutDeleted || len(repo.orderUpdates) != 0 {
		t.Fatal("delivered order must not be unwound")
	}
	if len(events.events) != 0 {
		t.Fatalf("no event may be emitted, got %+v", events.events)
	}
}

func TestRejectRefundOnDeliveredOrderSucceeds(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     enums.OrderStatusDelivered,
	}
	refund := &models.RefundRequest{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  enums.RefundStatusRequested,
	}
	repo := &stubRefundsRepo{refund: refund, order: order}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	decided, err := svc.DecideRefund(context.Background(), DecideRefundInput{
		RefundID:  refund.ID,
		Decision:  enums.RefundStatusRejected,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("DecideRefund: %v", err)
	}
	if decided.Status != enums.RefundStatusRejected {
		t.Fatalf("expected rejected, got %s", decided.Status)
	}
	if repo.paymentsRefunded || repo.payoutDeleted || len(repo.orderUpdates) != 0 {
		t.Fatal("rejection must not touch the order")
	}
}

func TestApproveRefundUnwindsOrder(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		BidID:      uuid.New(),
		RequestID:  uuid.New(),
		CustomerID: uuid.New(),
		ExpertID:   uuid.New(),
		Status:     enums.OrderStatusCompleted,
	}
	refund := &models.RefundRequest{
		ID:          uuid.New(),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		AmountCents: 12000,
		Status:      enums.RefundStatusRequested,
	}
	repo := &stubRefundsRepo{refund: refund, order: order}
	events := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, events)

	decided, err := svc.DecideRefund(context.Background(), DecideRefundInput{
		RefundID:  refund.ID,
		Decision:  enums.RefundStatusApproved,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("DecideRefund: %v", err)
	}
	if decided.Status != enums.RefundStatusApproved {
		t.Fatalf("expected approved, got %s", decided.Status)
	}
	if !repo.paymentsRefunded {
		t.Fatal("payments were not marked refunded")
	}
	if repo.orderUpdates["status"] != enums.OrderStatusRefunded {
		t.Fatal("order was not marked refunded")
	}
	if repo.orderUpdates["payment_status"] != enums.OrderPaymentStatusRefunded {
		t.Fatal("order payment status was not marked refunded")
	}
	if !repo.payoutDeleted {
		t.Fatal("payout was not removed")
	}
	if repo.requestStatus != enums.RequestStatusBidding {
		t.Fatalf("request was not reopened, got %s", repo.requestStatus)
	}
	if repo.unacceptedBidID != order.BidID {
		t.Fatal("winning bid was not unaccepted")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventRefundDecided {
		t.Fatalf("expected refund_decided event, got %+v", events.events)
	}
}

func TestRejectRefundLeavesOrderAlone(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     enums.OrderStatusCompleted,
	}
	refund := &models.RefundRequest{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  enums.RefundStatusRequested,
	}
	repo := &stubRefundsRepo{refund: refund, order: order}
	events := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, events)

	decided, err := svc.DecideRefund(context.Background(), DecideRefundInput{
		RefundID:  refund.ID,
		Decision:  enums.RefundStatusRejected,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("DecideRefund: %v", err)
	}
	if decided.Status != enums.RefundStatusRejected {
		t.Fatalf("expected rejected, got %s", decided.Status)
	}
	if repo.paymentsRefunded || repo.payoutDeleted || len(repo.orderUpdates) != 0 {
		t.Fatal("rejection must not touch the order")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventRefundDecided {
		t.Fatalf("expected refund_decided event, got %+v", events.events)
	}
}

func TestDecideRefundTwiceFails(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusRefunded}
	refund := &models.RefundRequest{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  enums.RefundStatusApproved,
	}
	repo := &stubRefundsRepo{refund: refund, order: order}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.DecideRefund(context.Background(), DecideRefundInput{
		RefundID:  refund.ID,
		Decision:  enums.RefundStatusRejected,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateDecisionNotesOnDecidedRefund(t *testing.T) {
	refund := &models.RefundRequest{
		ID:     uuid.New(),
		Status: enums.RefundStatusApproved,
	}
	repo := &stubRefundsRepo{refund: refund}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	updated, err := svc.UpdateDecisionNotes(context.Background(), UpdateNotesInput{
		RefundID:  refund.ID,
		Notes:     "customer shipped the device back",
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("UpdateDecisionNotes: %v", err)
	}
	if updated.DecisionNotes == nil || *updated.DecisionNotes != "customer shipped the device back" {
		t.Fatalf("notes not applied: %v", updated.DecisionNotes)
	}
}
