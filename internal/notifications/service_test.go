package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	rows       []models.Notification
	next       *pagination.Cursor
	listParams listNotificationsParams
	markFound  bool
	marked     uuid.UUID
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	s.rows = append(s.rows, *notification)
	return nil
}

func (s *stubNotificationsRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	s.listParams = params
	return s.rows, s.next, nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	s.marked = notificationID
	return s.markFound, nil
}

func TestListReturnsCursorForNextPage(t *testing.T) {
	userID := uuid.New()
	next := &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &stubNotificationsRepo{
		rows: []models.Notification{{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeBidAlert}},
		next: next,
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one row, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected a next-page cursor")
	}
	parsed, err := pagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if parsed.ID != next.ID {
		t.Fatalf("cursor round trip mismatch: %s", parsed.ID)
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	repo := &stubNotificationsRepo{}
	svc, _ := NewService(repo)

	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "not-a-cursor"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	repo := &stubNotificationsRepo{markFound: false}
	svc, _ := NewService(repo)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBuildNotificationsFanOut(t *testing.T) {
	payload := domainEventPayload{
		CustomerID:  uuid.New(),
		ExpertID:    uuid.New(),
		AmountCents: 12000,
		Decision:    enums.RefundStatusApproved,
	}

	rows := buildNotifications(enums.EventRefundDecided, payload)
	if len(rows) != 2 {
		t.Fatalf("expected rows for both sides, got %d", len(rows))
	}
	if rows[0].UserID != payload.CustomerID || rows[0].UserRole != enums.ActorRoleCustomer {
		t.Fatalf("first row should target the customer: %+v", rows[0])
	}
	if rows[1].UserID != payload.ExpertID || rows[1].UserRole != enums.ActorRoleExpert {
		t.Fatalf("second row should target the expert: %+v", rows[1])
	}

	rows = buildNotifications(enums.EventBidPlaced, payload)
	if len(rows) != 1 || rows[0].UserID != payload.CustomerID {
		t.Fatalf("bid placed should notify the customer: %+v", rows)
	}
	if rows[0].Type != enums.NotificationTypeBidAlert {
		t.Fatalf("expected bid alert, got %s", rows[0].Type)
	}

	rows = buildNotifications(enums.EventPayoutReleased, payload)
	if len(rows) != 1 || rows[0].UserID != payload.ExpertID {
		t.Fatalf("payout released should notify the expert: %+v", rows)
	}
}
