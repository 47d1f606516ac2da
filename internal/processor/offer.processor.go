package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	gateway "github.com/nimasrn/laser/internal/gateways"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/queue"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/prom"
)

type UserLookup interface {
	Get(ctx context.Context, id int64) (*model.UserApplication, error)
}

type Pusher interface {
	Send(ctx context.Context, req *gateway.PushRequest) (*gateway.PushResponse, error)
}

// OfferNotificationProcessor turns offer events into push notifications for
// the user on the other side of the offer.
type OfferNotificationProcessor struct {
	users       UserLookup
	pusher      Pusher
	idempotency *IdempotencyService
}

func NewOfferNotificationProcessor(users UserLookup, pusher Pusher, idempotency *IdempotencyService) *OfferNotificationProcessor {
	return &OfferNotificationProcessor{
		users:       users,
		pusher:      pusher,
		idempotency: idempotency,
	}
}

func (p *OfferNotificationProcessor) GetType() string {
	return "offer"
}

// Process returns nil for anything a retry cannot fix so the entry is acked.
func (p *OfferNotificationProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var event model.OfferEvent
	if err := msg.Decode(&event); err != nil {
		logger.Error("dropping malformed offer event", "message_id", msg.ID, "error", err)
		prom.IncNotification("unknown", "malformed")
		return nil
	}
	if event.ID == "" {
		event.ID = msg.ID
	}
	kind := string(event.Type)

	user, err := p.users.Get(ctx, event.RecipientID)
	if errors.Is(err, model.ErrNotFound) {
		logger.Warn("notification recipient not found", "event_id", event.ID, "recipient_id", event.RecipientID)
		prom.IncNotification(kind, "skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", event.RecipientID, err)
	}
	if user.PushToken == "" {
		logger.Debug("recipient has no push token", "event_id", event.ID, "recipient_id", user.ID)
		prom.IncNotification(kind, "skipped")
		return nil
	}

	attempt, err := p.idempotency.Acquire(ctx, event.ID)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Info("notification already sent", "event_id", event.ID)
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		logger.Error("notification given up", "event_id", event.ID, "error", err)
		prom.IncNotification(kind, "failed")
		return nil
	case err != nil:
		return err
	}
	defer func() {
		if err := p.idempotency.Release(ctx, attempt); err != nil {
			logger.Warn("notification lock not released", "event_id", event.ID, "error", err)
		}
	}()

	req := notificationFor(event, user.PushToken)
	res, err := p.pusher.Send(ctx, req)
	if errors.Is(err, gateway.ErrRejected) {
		// the token is dead, retrying cannot help
		logger.Warn("push token rejected", "event_id", event.ID, "recipient_id", user.ID, "error", err)
		prom.IncNotification(kind, "rejected")
		if markErr := p.idempotency.MarkSuccess(ctx, attempt); markErr != nil {
			logger.Error("notification not marked processed", "event_id", event.ID, "error", markErr)
		}
		return nil
	}
	if err != nil {
		prom.IncNotification(kind, "error")
		if markErr := p.idempotency.MarkFailure(ctx, attempt, err); markErr != nil {
			logger.Error("notification failure not recorded", "event_id", event.ID, "error", markErr)
		}
		return err
	}

	if err := p.idempotency.MarkSuccess(ctx, attempt); err != nil {
		logger.Error("notification not marked processed", "event_id", event.ID, "error", err)
	}
	prom.IncNotification(kind, "sent")
	logger.Info("offer notification sent",
		"event_id", event.ID,
		"type", kind,
		"offer_id", event.OfferID,
		"recipient_id", user.ID,
		"provider_id", res.ProviderID,
		"retry_count", attempt.RetryCount)
	return nil
}

func notificationFor(event model.OfferEvent, token string) *gateway.PushRequest {
	req := &gateway.PushRequest{
		NotificationID: event.ID,
		Token:          token,
		Data: map[string]string{
			"type":             string(event.Type),
			"offer_id":         strconv.FormatInt(event.OfferID, 10),
			"shipment_deal_id": strconv.FormatInt(event.ShipmentDealID, 10),
			"trip_deal_id":     strconv.FormatInt(event.TripDealID, 10),
		},
	}
	switch event.Type {
	case model.OfferEventAccepted:
		req.Title = "Offer accepted"
		req.Body = fmt.Sprintf("Your offer #%d was accepted.", event.OfferID)
	default:
		req.Title = "New offer"
		req.Body = fmt.Sprintf("You have a new offer #%d to review.", event.OfferID)
	}
	return req
}
