package sales

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dietapronta/checkout-funnel/internal/core/datamodel/sale"
	"github.com/dietapronta/checkout-funnel/internal/core/events"
)

type EventHandler struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewEventHandler(repo RepositoryAPI, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandlePaymentReconciled records every propagated status locally so
// the admin view does not depend on the processor being reachable.
func (h *EventHandler) HandlePaymentReconciled(ctx context.Context, event events.Event) error {
	reconciled, ok := event.(*events.PaymentReconciledEvent)
	if !ok {
		return fmt.Errorf("expected PaymentReconciledEvent, got %T", event)
	}

	record := &sale.Sale{
		PaymentID:  reconciled.PaymentID,
		LeadRef:    reconciled.LeadRef,
		Status:     reconciled.Status,
		Amount:     reconciled.Amount,
		PayerEmail: reconciled.PayerEmail,
		ApprovedAt: reconciled.ApprovedAt,
	}

	if err := h.repo.Upsert(record); err != nil {
		h.logger.Error("failed to record sale",
			"error", err,
			"payment_id", reconciled.PaymentID,
			"lead_ref", reconciled.LeadRef)
		return fmt.Errorf("failed to record sale: %w", err)
	}

	h.logger.Info("sale recorded",
		"payment_id", reconciled.PaymentID,
		"lead_ref", reconciled.LeadRef,
		"status", reconciled.Status)

	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentReconciled, h.HandlePaymentReconciled)
}
