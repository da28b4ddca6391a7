package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/api/responses"
	"github.com/fixitlabs/fixit-backend/api/validators"
	"github.com/fixitlabs/fixit-backend/internal/payments"
	pkgerrors "github.com/fixitlabs/fixit-backend/pkg/errors"
	"github.com/fixitlabs/fixit-backend/pkg/logger"
)

type processPaymentBody struct {
	Phone     string     `json:"phone" validate:"required,min=7,max=20"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
}

type updateExtraPaymentBody struct {
	AmountCents int64   `json:"amount_cents" validate:"required,gt=0"`
	Reason      *string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

// ProcessPayment charges the order's pending ledger entries via the gateway.
func ProcessPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body processPaymentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ProcessPayment(r.Context(), payments.ProcessPaymentInput{
			OrderID:   orderID,
			PaymentID: body.PaymentID,
			Phone:     body.Phone,
			ActorID:   who.ID,
			ActorRole: who.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateExtraPayment edits a pending extra charge.
func UpdateExtraPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := pathUUID(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateExtraPaymentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateAdditionalPayment(r.Context(), payments.UpdateAdditionalPaymentInput{
			PaymentID:   paymentID,
			AmountCents: body.AmountCents,
			Reason:      body.Reason,
			ActorID:     who.ID,
			ActorRole:   who.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// DeleteExtraPayment removes a pending extra charge.
func DeleteExtraPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := pathUUID(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.DeleteAdditionalPayment(r.Context(), payments.DeleteAdditionalPaymentInput{
			PaymentID: paymentID,
			ActorID:   who.ID,
			ActorRole: who.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
