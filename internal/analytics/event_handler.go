package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dietapronta/checkout-funnel/internal/core/events"
)

type EventHandler struct {
	client *Client
	logger *slog.Logger
}

func NewEventHandler(client *Client, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		client: client,
		logger: logger,
	}
}

// HandlePaymentApproved fires the conversion side channel once per
// observed approval.
func (h *EventHandler) HandlePaymentApproved(ctx context.Context, event events.Event) error {
	approved, ok := event.(*events.PaymentApprovedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentApprovedEvent, got %T", event)
	}

	h.logger.Info("tracking conversion for approved payment",
		"payment_id", approved.PaymentID,
		"lead_ref", approved.LeadRef,
		"amount", approved.Amount)

	h.client.TrackConversion(ctx, approved.LeadRef, approved.Amount)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentApproved, h.HandlePaymentApproved)
}
