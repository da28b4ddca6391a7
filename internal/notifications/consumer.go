package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
	"github.com/fixitlabs/fixit-backend/pkg/logger"
	"github.com/fixitlabs/fixit-backend/pkg/outbox"
	"github.com/fixitlabs/fixit-backend/pkg/outbox/idempotency"
)

const domainNotificationConsumer = "domain-notifications"

type consumerRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// domainEventPayload is the union of the fields carried by the events this
// consumer turns into notifications.
type domainEventPayload struct {
	RequestID      uuid.UUID          `json:"request_id"`
	BidID          uuid.UUID          `json:"bid_id"`
	OrderID        uuid.UUID          `json:"order_id"`
	PayoutID       uuid.UUID          `json:"payout_id"`
	RefundID       uuid.UUID          `json:"refund_id"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	ExpertID       uuid.UUID          `json:"expert_id"`
	CostCents      int64              `json:"cost_cents"`
	AmountCents    int64              `json:"amount_cents"`
	NetPayoutCents int64              `json:"net_payout_cents"`
	Reason         string             `json:"reason"`
	Status         enums.OrderStatus  `json:"status"`
	Decision       enums.RefundStatus `json:"decision"`
}

// Consumer watches domain events and fans them out as per-user notifications.
type Consumer struct {
	repo         consumerRepository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the domain notification consumer.
func NewConsumer(repo consumerRepository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, domainNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload domainEventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, domainNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	rows := buildNotifications(eventType, payload)
	for i := range rows {
		if err := c.repo.Create(ctx, &rows[i]); err != nil {
			c.logg.Error(logCtx, "notification write failed", err)
			_ = c.idempotency.Delete(ctx, domainNotificationConsumer, eventID)
			return processResult{nack: true}
		}
	}

	c.logg.Info(logCtx, "notifications written")
	return processResult{ack: true}
}

func buildNotifications(eventType enums.OutboxEventType, p domainEventPayload) []models.Notification {
	customer := func(kind enums.NotificationType, title, message string) models.Notification {
		return models.Notification{
			UserID:   p.CustomerID,
			UserRole: enums.ActorRoleCustomer,
			Type:     kind,
			Title:    title,
			Message:  message,
		}
	}
	expert := func(kind enums.NotificationType, title, message string) models.Notification {
		return models.Notification{
			UserID:   p.ExpertID,
			UserRole: enums.ActorRoleExpert,
			Type:     kind,
			Title:    title,
			Message:  message,
		}
	}

	switch eventType {
	case enums.EventBidPlaced:
		return []models.Notification{customer(
			enums.NotificationTypeBidAlert,
			"New bid on your request",
			fmt.Sprintf("An expert offered %s on your request.", formatCents(p.CostCents)),
		)}
	case enums.EventBidAccepted:
		return []models.Notification{expert(
			enums.NotificationTypeBidAlert,
			"Your bid was accepted",
			fmt.Sprintf("Your bid of %s was accepted and an order was opened.", formatCents(p.CostCents)),
		)}
	case enums.EventExtraPaymentRequested:
		return []models.Notification{customer(
			enums.NotificationTypePayment,
			"Additional charge requested",
			fmt.Sprintf("The expert requested an extra charge of %s: %s", formatCents(p.AmountCents), p.Reason),
		)}
	case enums.EventPaymentSettled:
		return []models.Notification{expert(
			enums.NotificationTypePayment,
			"Payment received",
			fmt.Sprintf("The customer paid %s on your order.", formatCents(p.AmountCents)),
		)}
	case enums.EventOrderCompleted:
		return []models.Notification{customer(
			enums.NotificationTypeOrderAlert,
			"Order completed",
			"The expert marked your order as completed. Confirm receipt once you have it.",
		)}
	case enums.EventOrderDelivered:
		return []models.Notification{expert(
			enums.NotificationTypeOrderAlert,
			"Order delivered",
			"The customer confirmed receipt of the order.",
		)}
	case enums.EventPayoutReleased:
		return []models.Notification{expert(
			enums.NotificationTypePayment,
			"Payout released",
			fmt.Sprintf("Your payout of %s was released.", formatCents(p.NetPayoutCents)),
		)}
	case enums.EventRefundRequested:
		return []models.Notification{expert(
			enums.NotificationTypeRefundAlert,
			"Refund requested",
			fmt.Sprintf("The customer requested a refund of %s on your order.", formatCents(p.AmountCents)),
		)}
	case enums.EventRefundDecided:
		title := "Refund decision"
		message := fmt.Sprintf("The refund request was %s.", p.Decision)
		return []models.Notification{
			customer(enums.NotificationTypeRefundAlert, title, message),
			expert(enums.NotificationTypeRefundAlert, title, message),
		}
	default:
		return nil
	}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
