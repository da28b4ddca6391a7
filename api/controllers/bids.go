package controllers

import (
	"net/http"

	"github.com/fixitlabs/fixit-backend/api/responses"
	"github.com/fixitlabs/fixit-backend/api/validators"
	"github.com/fixitlabs/fixit-backend/internal/bidding"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/logger"
)

type placeBidBody struct {
	CostCents    int64   `json:"cost_cents" validate:"required,gt=0"`
	Duration     int     `json:"duration" validate:"required,gt=0"`
	DurationUnit string  `json:"duration_unit" validate:"required,oneof=hours days weeks"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// PlaceBid lets an expert offer on an open request.
func PlaceBid(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body placeBidBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bid, err := svc.PlaceBid(r.Context(), bidding.PlaceBidInput{
			RequestID:    requestID,
			ExpertID:     who.ID,
			CostCents:    body.CostCents,
			Duration:     body.Duration,
			DurationUnit: enums.DurationUnit(body.DurationUnit),
			Note:         body.Note,
			ActorRole:    who.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

// AcceptBid picks the winning bid and opens the resulting order.
func AcceptBid(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bidID, err := pathUUID(r, "bidID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AcceptBid(r.Context(), bidding.AcceptBidInput{
			BidID:     bidID,
			ActorID:   who.ID,
			ActorRole: who.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
