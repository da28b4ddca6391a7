package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fixitlabs/fixit-backend/api/controllers"
	"github.com/fixitlabs/fixit-backend/api/middleware"
	"github.com/fixitlabs/fixit-backend/internal/bidding"
	"github.com/fixitlabs/fixit-backend/internal/notifications"
	"github.com/fixitlabs/fixit-backend/internal/orders"
	"github.com/fixitlabs/fixit-backend/internal/payments"
	"github.com/fixitlabs/fixit-backend/internal/payouts"
	"github.com/fixitlabs/fixit-backend/internal/refunds"
	"github.com/fixitlabs/fixit-backend/internal/requests"
	"github.com/fixitlabs/fixit-backend/pkg/config"
	"github.com/fixitlabs/fixit-backend/pkg/db"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	"github.com/fixitlabs/fixit-backend/pkg/logger"
	"github.com/fixitlabs/fixit-backend/pkg/redis"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Requests      requests.Service
	Bidding       bidding.Service
	Orders        orders.Service
	Payments      payments.Service
	Payouts       payouts.Service
	Refunds       refunds.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/requests", func(r chi.Router) {
			r.With(requireCustomer(logg)).Post("/", controllers.CreateRequest(deps.Requests, logg))
			r.Get("/{requestID}", controllers.GetRequest(deps.Requests, logg))
			r.With(requireAdmin(logg)).Post("/{requestID}/open", controllers.OpenRequest(deps.Requests, logg))
			r.With(requireAdmin(logg)).Post("/{requestID}/reject", controllers.RejectRequest(deps.Requests, logg))
			r.With(requireExpert(logg)).Post("/{requestID}/bids", controllers.PlaceBid(deps.Bidding, logg))
		})

		r.Route("/bids", func(r chi.Router) {
			r.With(requireCustomer(logg)).Post("/{bidID}/accept", controllers.AcceptBid(deps.Bidding, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.With(requireCustomer(logg)).Post("/{orderID}/payments", controllers.ProcessPayment(deps.Payments, logg))
			r.With(requireExpert(logg)).Post("/{orderID}/extra-payments", controllers.RequestExtraPayment(deps.Orders, logg))
			r.With(requireExpert(logg)).Post("/{orderID}/complete", controllers.CompleteOrder(deps.Orders, logg))
			r.With(requireCustomer(logg)).Post("/{orderID}/deliver", controllers.DeliverOrder(deps.Orders, logg))
			r.With(requireCustomer(logg)).Post("/{orderID}/refund-requests", controllers.RequestRefund(deps.Refunds, logg))
		})

		r.Route("/extra-payments", func(r chi.Router) {
			r.Use(requireExpert(logg))
			r.Patch("/{paymentID}", controllers.UpdateExtraPayment(deps.Payments, logg))
			r.Delete("/{paymentID}", controllers.DeleteExtraPayment(deps.Payments, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.With(requireAdmin(logg)).Post("/{payoutID}/release", controllers.ReleasePayout(deps.Payouts, logg))
		})

		r.Route("/refund-requests", func(r chi.Router) {
			r.Use(requireAdmin(logg))
			r.Post("/{refundID}/decision", controllers.DecideRefund(deps.Refunds, logg))
			r.Patch("/{refundID}/notes", controllers.UpdateRefundNotes(deps.Refunds, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}

func requireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(enums.ActorRoleCustomer.String(), logg)
}

func requireExpert(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(enums.ActorRoleExpert.String(), logg)
}

func requireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(enums.ActorRoleAdmin.String(), logg)
}
