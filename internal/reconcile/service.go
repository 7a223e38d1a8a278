package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dietapronta/checkout-funnel/internal/core/events"
	"github.com/dietapronta/checkout-funnel/internal/notification"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/reference"
)

// PropagatorAPI abstracts the status propagator for testing.
type PropagatorAPI interface {
	Propagate(ctx context.Context, leadRef, status string, fields map[string]any) (bool, error)
}

// SchedulerAPI abstracts reverification scheduling for testing.
type SchedulerAPI interface {
	Schedule(paymentID, leadRef string)
}

// Service runs the webhook reconciliation pipeline: dedup check,
// payment resolution, reference decoding, status propagation and
// conditional reverification scheduling. Every business failure is
// absorbed and logged; the webhook boundary always answers 200 so the
// notifier's uncontrolled retry behavior is never triggered.
type Service struct {
	ledger     Ledger
	resolver   ResolverAPI
	propagator PropagatorAPI
	scheduler  SchedulerAPI
	eventBus   *events.EventBus
	metrics    *Metrics
	logger     *slog.Logger
}

func NewService(
	ledger Ledger,
	resolver ResolverAPI,
	propagator PropagatorAPI,
	eventBus *events.EventBus,
	metrics *Metrics,
	reverifyOffsets []time.Duration,
	logger *slog.Logger,
) *Service {
	s := &Service{
		ledger:     ledger,
		resolver:   resolver,
		propagator: propagator,
		eventBus:   eventBus,
		metrics:    metrics,
		logger:     logger,
	}
	s.scheduler = NewReverifier(resolver, s, metrics, reverifyOffsets, logger)
	return s
}

// WithScheduler swaps the reverification scheduler, used by tests.
func (s *Service) WithScheduler(scheduler SchedulerAPI) *Service {
	s.scheduler = scheduler
	return s
}

// Shutdown stops pending reverification tasks.
func (s *Service) Shutdown() {
	if r, ok := s.scheduler.(*Reverifier); ok {
		r.Shutdown()
	}
}

// HandleNotification runs the pipeline for one inbound notification.
// It never returns an error: the caller has nothing useful to do with
// one, and the upstream notifier must see 200 regardless.
func (s *Service) HandleNotification(ctx context.Context, n notification.Notification) {
	if n.ResourceID == "" {
		s.logger.Info("notification carried no resource id, ignoring",
			"topic", n.Topic)
		return
	}

	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(string(n.Topic)).Inc()
	}

	log := s.logger.With("topic", n.Topic, "resource_id", n.ResourceID)

	// dedup before any processor call; mark immediately to shrink the
	// duplicate window under concurrent delivery
	if s.ledger.Seen(ctx, n.ResourceID) {
		if s.metrics != nil {
			s.metrics.DuplicatesTotal.Inc()
		}
		log.Info("duplicate notification suppressed")
		return
	}
	s.ledger.Mark(ctx, n.ResourceID)

	payment, err := s.resolver.Resolve(ctx, n.Topic, n.ResourceID)
	if errors.Is(err, ErrNotFound) {
		if s.metrics != nil {
			s.metrics.ResolutionFailures.WithLabelValues("not_found").Inc()
		}
		log.Info("no payment found for notification")
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.ResolutionFailures.WithLabelValues("upstream").Inc()
		}
		log.Error("payment resolution failed", "error", err)
		return
	}

	paymentID := strconv.FormatInt(payment.ID, 10)

	// merchant-order notifications carry the order id; dedup the
	// resolved payment id as well
	if paymentID != n.ResourceID {
		if s.ledger.Seen(ctx, paymentID) {
			if s.metrics != nil {
				s.metrics.DuplicatesTotal.Inc()
			}
			log.Info("duplicate payment suppressed", "payment_id", paymentID)
			return
		}
		s.ledger.Mark(ctx, paymentID)
	}

	if err := s.PropagatePayment(ctx, payment); err != nil {
		log.Error("status propagation failed",
			"error", err,
			"payment_id", paymentID,
			"reference", payment.ExternalReference,
			"status", payment.Status)
		// absorbed: the scheduled reverification path is the only retry
	}

	if payment.Status == processor.StatusPending {
		ref := reference.Decode(payment.ExternalReference)
		s.scheduler.Schedule(paymentID, ref.LeadRef)
	}
}

// PropagatePayment decodes the payment's reference and pushes its
// status to the lead store, publishing the reconciliation events when
// an update was actually delivered. Shared by the webhook path and the
// reverifier.
func (s *Service) PropagatePayment(ctx context.Context, payment *processor.Payment) error {
	paymentID := strconv.FormatInt(payment.ID, 10)
	ref := reference.Decode(payment.ExternalReference)

	if ref.LeadRef == "" {
		s.logger.Warn("payment has no usable reference, skipping propagation",
			"payment_id", paymentID,
			"status", payment.Status)
		return nil
	}

	fields := map[string]any{
		"payment_id":    paymentID,
		"amount":        payment.TransactionAmount,
		"status_detail": payment.StatusDetail,
	}
	if payment.Payer.Email != "" {
		fields["payer_email"] = payment.Payer.Email
	}
	if ref.Metadata != nil {
		fields["metadata"] = ref.Metadata
	}

	delivered, err := s.propagator.Propagate(ctx, ref.LeadRef, payment.Status, fields)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PropagationFailures.Inc()
		}
		return err
	}
	if !delivered {
		return nil
	}

	if s.metrics != nil {
		s.metrics.PropagationsTotal.WithLabelValues(payment.Status).Inc()
	}

	if s.eventBus != nil {
		// handlers outlive the webhook request
		ctx := context.WithoutCancel(ctx)

		s.eventBus.Publish(ctx, events.NewPaymentReconciledEvent(
			paymentID, ref.LeadRef, payment.Status,
			payment.TransactionAmount, payment.Payer.Email, payment.DateApproved,
		))

		if payment.Status == processor.StatusApproved {
			s.eventBus.Publish(ctx, events.NewPaymentApprovedEvent(
				paymentID, ref.LeadRef, payment.TransactionAmount,
			))
		}
	}

	return nil
}
