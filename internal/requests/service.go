package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the request status machine consumed by bidding and refunds.
type Service interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*models.Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	OpenForBidding(ctx context.Context, input StatusChangeInput) error
	RejectRequest(ctx context.Context, input StatusChangeInput) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// CreateRequestInput captures a customer's new repair request.
type CreateRequestInput struct {
	CustomerID    uuid.UUID
	ServiceTypeID uuid.UUID
	Title         string
	Description   string
	ActorRole     enums.ActorRole
}

// StatusChangeInput carries an admin-driven status transition.
type StatusChangeInput struct {
	RequestID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// NewService builds a requests service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateRequest(ctx context.Context, input CreateRequestInput) (*models.Request, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can post requests")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.ServiceTypeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service type id required")
	}

	if _, err := s.repo.FindServiceType(ctx, input.ServiceTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service type not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service type")
	}

	request := &models.Request{
		CustomerID:    input.CustomerID,
		ServiceTypeID: input.ServiceTypeID,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Status:        enums.RequestStatusPending,
	}
	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
	}
	return created, nil
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func (s *service) OpenForBidding(ctx context.Context, input StatusChangeInput) error {
	return s.transition(ctx, input, enums.RequestStatusBidding, func(current enums.RequestStatus) bool {
		return current == enums.RequestStatusPending
	})
}

func (s *service) RejectRequest(ctx context.Context, input StatusChangeInput) error {
	return s.transition(ctx, input, enums.RequestStatusRejected, func(current enums.RequestStatus) bool {
		return current == enums.RequestStatusPending || current == enums.RequestStatusBidding
	})
}

func (s *service) transition(ctx context.Context, input StatusChangeInput, target enums.RequestStatus, allowed func(enums.RequestStatus) bool) error {
	if input.RequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByIDForUpdate(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.Status == target {
			return nil
		}
		if !allowed(request.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("request cannot move from %s to %s", request.Status, target))
		}
		if err := repo.UpdateStatus(ctx, request.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		return nil
	})
}
