package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dietapronta/checkout-funnel/internal/notification"
	"github.com/dietapronta/checkout-funnel/internal/processor"
)

// PropagationSink receives payments the reverifier found settled.
type PropagationSink interface {
	PropagatePayment(ctx context.Context, p *processor.Payment) error
}

// ResolverAPI abstracts payment resolution for the reverifier.
type ResolverAPI interface {
	Resolve(ctx context.Context, topic notification.Topic, resourceID string) (*processor.Payment, error)
}

type reverifyTask struct {
	paymentID  string
	leadRef    string
	receivedAt time.Time
}

// Reverifier runs bounded, time-delayed re-checks for payments observed
// pending. The notification stream is not trusted to deliver the final
// transition promptly or at all; the offsets (measured from receipt of
// the original notification) give asynchronous settlement two chances
// to be caught. Tasks are never cancelled when a terminal status
// arrives through another path; a stale fire re-propagates the same
// terminal status, which the idempotent lead store absorbs.
type Reverifier struct {
	resolver ResolverAPI
	sink     PropagationSink
	metrics  *Metrics
	offsets  []time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReverifier(resolver ResolverAPI, sink PropagationSink, metrics *Metrics, offsets []time.Duration, logger *slog.Logger) *Reverifier {
	if len(offsets) == 0 {
		offsets = []time.Duration{30 * time.Second, 60 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Reverifier{
		resolver: resolver,
		sink:     sink,
		metrics:  metrics,
		offsets:  offsets,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule queues the delayed re-checks for a pending payment. Returns
// immediately; the checks run detached from the webhook request.
func (r *Reverifier) Schedule(paymentID, leadRef string) {
	task := reverifyTask{
		paymentID:  paymentID,
		leadRef:    leadRef,
		receivedAt: time.Now(),
	}

	r.logger.Info("scheduling payment reverification",
		"payment_id", paymentID,
		"lead_ref", leadRef,
		"attempts", len(r.offsets))

	r.wg.Add(1)
	go r.run(task)
}

func (r *Reverifier) run(task reverifyTask) {
	defer r.wg.Done()

	for attempt, offset := range r.offsets {
		due := task.receivedAt.Add(offset)

		timer := time.NewTimer(time.Until(due))
		select {
		case <-timer.C:
		case <-r.ctx.Done():
			timer.Stop()
			return
		}

		if done := r.check(task, attempt+1); done {
			return
		}
	}

	// abandoned: no further action, no error surfaced
	r.logger.Info("payment reverification abandoned",
		"payment_id", task.paymentID,
		"lead_ref", task.leadRef,
		"attempts", len(r.offsets))
}

func (r *Reverifier) check(task reverifyTask, attempt int) bool {
	if r.metrics != nil {
		r.metrics.Reverifications.Inc()
	}

	payment, err := r.resolver.Resolve(r.ctx, notification.TopicPayment, task.paymentID)
	if err != nil {
		r.logger.Warn("reverification lookup failed",
			"error", err,
			"payment_id", task.paymentID,
			"attempt", attempt)
		return false
	}

	r.logger.Info("reverification result",
		"payment_id", task.paymentID,
		"lead_ref", task.leadRef,
		"status", payment.Status,
		"attempt", attempt)

	if payment.Status == processor.StatusApproved {
		if err := r.sink.PropagatePayment(r.ctx, payment); err != nil {
			r.logger.Error("reverification propagation failed",
				"error", err,
				"payment_id", task.paymentID)
		}
		return true
	}

	// a terminal rejection arrived through another path; nothing to push
	return processor.IsTerminalStatus(payment.Status)
}

// Shutdown cancels pending checks and waits for in-flight ones.
func (r *Reverifier) Shutdown() {
	r.cancel()
	r.wg.Wait()
}
