package payouts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/outbox"
)

type stubPayoutsRepo struct {
	payout        *models.Payout
	order         *models.Order
	serviceType   *models.ServiceType
	paidTotal     int64
	created       *models.Payout
	payoutUpdates map[string]any
	orderUpdates  map[string]any
}

func (s *stubPayoutsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPayoutsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	if s.payout == nil || s.payout.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.payout, nil
}

func (s *stubPayoutsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return s.FindByID(ctx, id)
}

func (s *stubPayoutsRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payout, error) {
	if s.payout == nil || s.payout.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.payout, nil
}

func (s *stubPayoutsRepo) Create(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	s.created = payout
	s.payout = payout
	return payout, nil
}

func (s *stubPayoutsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.payoutUpdates == nil {
		s.payoutUpdates = make(map[string]any)
	}
	for key, value := range updates {
		s.payoutUpdates[key] = value
	}
	return nil
}

func (s *stubPayoutsRepo) FindServiceType(ctx context.Context, id uuid.UUID) (*models.ServiceType, error) {
	if s.serviceType == nil || s.serviceType.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.serviceType, nil
}

func (s *stubPayoutsRepo) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubPayoutsRepo) SumPaidPayments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return s.paidTotal, nil
}

func (s *stubPayoutsRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
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

func TestCommission(t *testing.T) {
	cases := []struct {
		name           string
		total          int64
		percent        string
		wantCommission int64
		wantNet        int64
	}{
		{"ten percent", 10000, "10", 1000, 9000},
		{"twelve and a half percent rounds", 10000, "12.5", 1250, 8750},
		{"rounding half up", 9999, "10", 1000, 8999},
		{"zero total", 0, "10", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			percent := decimal.RequireFromString(tc.percent)
			commission, net := Commission(tc.total, percent)
			if commission != tc.wantCommission || net != tc.wantNet {
				t.Fatalf("Commission(%d, %s) = %d, %d; want %d, %d",
					tc.total, tc.percent, commission, net, tc.wantCommission, tc.wantNet)
			}
		})
	}
}

func TestComputeForOrderCreatesPendingPayout(t *testing.T) {
	serviceType := &models.ServiceType{
		ID:                uuid.New(),
		CommissionPercent: decimal.RequireFromString("10"),
	}
	order := &models.Order{
		ID:            uuid.New(),
		ExpertID:      uuid.New(),
		ServiceTypeID: serviceType.ID,
	}
	repo := &stubPayoutsRepo{serviceType: serviceType, paidTotal: 10000}
	svc, err := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	payout, err := svc.ComputeForOrder(context.Background(), &gorm.DB{}, order)
	if err != nil {
		t.Fatalf("ComputeForOrder: %v", err)
	}
	if payout.TotalPaymentCents != 10000 || payout.CommissionCents != 1000 || payout.NetPayoutCents != 9000 {
		t.Fatalf("unexpected amounts: total=%d commission=%d net=%d",
			payout.TotalPaymentCents, payout.CommissionCents, payout.NetPayoutCents)
	}
	if payout.Status != enums.PayoutStatusPending {
		t.Fatalf("expected pending payout, got %s", payout.Status)
	}
	if payout.ExpertID != order.ExpertID {
		t.Fatal("payout bound to wrong expert")
	}
}

func TestComputeForOrderOverwritesExisting(t *testing.T) {
	serviceType := &models.ServiceType{
		ID:                uuid.New(),
		CommissionPercent: decimal.RequireFromString("10"),
	}
	order := &models.Order{
		ID:            uuid.New(),
		ExpertID:      uuid.New(),
		ServiceTypeID: serviceType.ID,
	}
	existing := &models.Payout{
		ID:                uuid.New(),
		OrderID:           order.ID,
		TotalPaymentCents: 10000,
		CommissionCents:   1000,
		NetPayoutCents:    9000,
		Status:            enums.PayoutStatusPending,
	}
	repo := &stubPayoutsRepo{serviceType: serviceType, payout: existing, paidTotal: 12000}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	payout, err := svc.ComputeForOrder(context.Background(), &gorm.DB{}, order)
	if err != nil {
		t.Fatalf("ComputeForOrder: %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected the existing payout to be reused")
	}
	if payout.TotalPaymentCents != 12000 || payout.CommissionCents != 1200 || payout.NetPayoutCents != 10800 {
		t.Fatalf("unexpected amounts: total=%d commission=%d net=%d",
			payout.TotalPaymentCents, payout.CommissionCents, payout.NetPayoutCents)
	}
}

func TestReleasePayoutRequiresAdmin(t *testing.T) {
	payout := &models.Payout{ID: uuid.New(), Status: enums.PayoutStatusPending}
	repo := &stubPayoutsRepo{payout: payout}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.ReleasePayout(context.Background(), ReleasePayoutInput{
		PayoutID:  payout.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleExpert,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestReleasePayoutAdvancesOrder(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusCompleted}
	payout := &models.Payout{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ExpertID:       uuid.New(),
		NetPayoutCents: 9000,
		Status:         enums.PayoutStatusPending,
	}
	repo := &stubPayoutsRepo{payout: payout, order: order}
	events := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, events)

	released, err := svc.ReleasePayout(context.Background(), ReleasePayoutInput{
		PayoutID:  payout.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("ReleasePayout: %v", err)
	}
	if released.Status != enums.PayoutStatusReleased {
		t.Fatalf("expected released, got %s", released.Status)
	}
	if released.ReleasedAt == nil {
		t.Fatal("released_at not set")
	}
	if repo.orderUpdates["status"] != enums.OrderStatusDelivered {
		t.Fatal("order was not advanced to delivered")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventPayoutReleased {
		t.Fatalf("expected payout_released event, got %+v", events.events)
	}
}

func TestReleasePayoutAlreadyReleased(t *testing.T) {
	payout := &models.Payout{ID: uuid.New(), Status: enums.PayoutStatusReleased}
	repo := &stubPayoutsRepo{payout: payout}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	_, err := svc.ReleasePayout(context.Background(), ReleasePayoutInput{
		PayoutID:  payout.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReleaseForOrderTolerantOfMissingPayout(t *testing.T) {
	repo := &stubPayoutsRepo{}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	if err := svc.ReleaseForOrder(context.Background(), &gorm.DB{}, uuid.New()); err != nil {
		t.Fatalf("ReleaseForOrder: %v", err)
	}
}
