package requests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
)

type stubRequestsRepo struct {
	request         *models.Request
	serviceType     *models.ServiceType
	findServiceType func(ctx context.Context, id uuid.UUID) (*models.ServiceType, error)
	updatedStatus   enums.RequestStatus
	statusUpdates   int
}

func (s *stubRequestsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRequestsRepo) Create(ctx context.Context, request *models.Request) (*models.Request, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.request = request
	return request, nil
}

func (s *stubRequestsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	if s.request == nil || s.request.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.request, nil
}

func (s *stubRequestsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return s.FindByID(ctx, id)
}

func (s *stubRequestsRepo) FindServiceType(ctx context.Context, id uuid.UUID) (*models.ServiceType, error) {
	if s.findServiceType != nil {
		return s.findServiceType(ctx, id)
	}
	if s.serviceType == nil || s.serviceType.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.serviceType, nil
}

func (s *stubRequestsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error {
	s.updatedStatus = status
	s.statusUpdates++
	if s.request != nil && s.request.ID == id {
		s.request.Status = status
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestCreateRequestStartsPending(t *testing.T) {
	serviceType := &models.ServiceType{ID: uuid.New(), Name: "screen repair"}
	repo := &stubRequestsRepo{serviceType: serviceType}
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	created, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		CustomerID:    uuid.New(),
		ServiceTypeID: serviceType.ID,
		Title:         "  broken screen ",
		Description:   "cracked after a drop",
		ActorRole:     enums.ActorRoleCustomer,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if created.Status != enums.RequestStatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
	if created.Title != "broken screen" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
}

func TestCreateRequestRejectsNonCustomer(t *testing.T) {
	repo := &stubRequestsRepo{}
	svc, _ := NewService(repo, stubTxRunner{})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		CustomerID:    uuid.New(),
		ServiceTypeID: uuid.New(),
		Title:         "fix",
		Description:   "fix it",
		ActorRole:     enums.ActorRoleExpert,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestCreateRequestUnknownServiceType(t *testing.T) {
	repo := &stubRequestsRepo{}
	svc, _ := NewService(repo, stubTxRunner{})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		CustomerID:    uuid.New(),
		ServiceTypeID: uuid.New(),
		Title:         "fix",
		Description:   "fix it",
		ActorRole:     enums.ActorRoleCustomer,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestOpenForBidding(t *testing.T) {
	request := &models.Request{ID: uuid.New(), Status: enums.RequestStatusPending}
	repo := &stubRequestsRepo{request: request}
	svc, _ := NewService(repo, stubTxRunner{})

	err := svc.OpenForBidding(context.Background(), StatusChangeInput{
		RequestID: request.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("OpenForBidding: %v", err)
	}
	if repo.updatedStatus != enums.RequestStatusBidding {
		t.Fatalf("expected bidding status, got %s", repo.updatedStatus)
	}
}

func TestOpenForBiddingRequiresAdmin(t *testing.T) {
	request := &models.Request{ID: uuid.New(), Status: enums.RequestStatusPending}
	repo := &stubRequestsRepo{request: request}
	svc, _ := NewService(repo, stubTxRunner{})

	err := svc.OpenForBidding(context.Background(), StatusChangeInput{
		RequestID: request.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleCustomer,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestOpenForBiddingIdempotent(t *testing.T) {
	request := &models.Request{ID: uuid.New(), Status: enums.RequestStatusBidding}
	repo := &stubRequestsRepo{request: request}
	svc, _ := NewService(repo, stubTxRunner{})

	err := svc.OpenForBidding(context.Background(), StatusChangeInput{
		RequestID: request.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("OpenForBidding: %v", err)
	}
	if repo.statusUpdates != 0 {
		t.Fatalf("expected no status write, got %d", repo.statusUpdates)
	}
}

func TestRejectClosedRequestFails(t *testing.T) {
	request := &models.Request{ID: uuid.New(), Status: enums.RequestStatusClosed}
	repo := &stubRequestsRepo{request: request}
	svc, _ := NewService(repo, stubTxRunner{})

	err := svc.RejectRequest(context.Background(), StatusChangeInput{
		RequestID: request.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
