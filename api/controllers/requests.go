package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/api/responses"
	"github.com/fixitlabs/fixit-backend/api/validators"
	"github.com/fixitlabs/fixit-backend/internal/requests"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/logger"
)

type createRequestBody struct {
	ServiceTypeID uuid.UUID `json:"service_type_id" validate:"required"`
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"required,max=5000"`
}

// CreateRequest posts a new repair request for the authenticated customer.
func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateRequest(r.Context(), requests.CreateRequestInput{
			CustomerID:    who.ID,
			ServiceTypeID: body.ServiceTypeID,
			Title:         body.Title,
			Description:   body.Description,
			ActorRole:     who.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// GetRequest returns a single request with its bids.
func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		id, err := pathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRequest(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// OpenRequest moves a pending request onto the bidding market.
func OpenRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestTransition(svc, logg, func(ctx *http.Request, svc requests.Service, input requests.StatusChangeInput) error {
		return svc.OpenForBidding(ctx.Context(), input)
	})
}

// RejectRequest declines a request before an order exists.
func RejectRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestTransition(svc, logg, func(ctx *http.Request, svc requests.Service, input requests.StatusChangeInput) error {
		return svc.RejectRequest(ctx.Context(), input)
	})
}

func requestTransition(svc requests.Service, logg *logger.Logger, apply func(*http.Request, requests.Service, requests.StatusChangeInput) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := apply(r, svc, requests.StatusChangeInput{
			RequestID: id,
			ActorID:   who.ID,
			ActorRole: who.Role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
