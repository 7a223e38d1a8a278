package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/dietapronta/checkout-funnel/internal/notification"
	"github.com/dietapronta/checkout-funnel/internal/processor"
)

// ErrNotFound reports that no payment could be located for a
// notification. The pipeline treats it as a no-op.
var ErrNotFound = errors.New("reconcile: no payment found")

// ProcessorAPI is the slice of the processor client the resolver needs.
type ProcessorAPI interface {
	GetPayment(ctx context.Context, id string) (*processor.Payment, error)
	GetMerchantOrder(ctx context.Context, id string) (*processor.MerchantOrder, error)
}

// Resolver turns a (topic, resource id) pair into a concrete payment,
// following the merchant-order indirection when needed. Results are
// never cached: the returned status is the processor's view at call
// time.
type Resolver struct {
	processor    ProcessorAPI
	orderRetries int
	orderBackoff time.Duration
	logger       *slog.Logger
}

func NewResolver(api ProcessorAPI, orderRetries int, orderBackoff time.Duration, logger *slog.Logger) *Resolver {
	if orderRetries <= 0 {
		orderRetries = 3
	}
	if orderBackoff <= 0 {
		orderBackoff = 5 * time.Second
	}
	return &Resolver{
		processor:    api,
		orderRetries: orderRetries,
		orderBackoff: orderBackoff,
		logger:       logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, topic notification.Topic, resourceID string) (*processor.Payment, error) {
	switch topic {
	case notification.TopicPayment:
		return r.resolvePayment(ctx, resourceID)
	case notification.TopicMerchantOrder:
		return r.resolveMerchantOrder(ctx, resourceID)
	default:
		return nil, ErrNotFound
	}
}

func (r *Resolver) resolvePayment(ctx context.Context, paymentID string) (*processor.Payment, error) {
	payment, err := r.processor.GetPayment(ctx, paymentID)
	if errors.Is(err, processor.ErrNotFound) {
		return nil, fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	if err != nil {
		// upstream failure: the caller must not retry synchronously
		return nil, fmt.Errorf("payment lookup failed for %s: %w", paymentID, err)
	}
	return payment, nil
}

// resolveMerchantOrder fetches the order and picks the first linked
// payment by creation date. The processor may attach the payment to
// the order a few seconds after checkout completes, so an empty list
// is re-fetched after each of a bounded number of backoff sleeps before
// giving up: the initial fetch plus orderRetries refetches.
func (r *Resolver) resolveMerchantOrder(ctx context.Context, orderID string) (*processor.Payment, error) {
	for retry := 0; ; retry++ {
		order, err := r.processor.GetMerchantOrder(ctx, orderID)
		if errors.Is(err, processor.ErrNotFound) {
			return nil, fmt.Errorf("merchant order %s: %w", orderID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("merchant order lookup failed for %s: %w", orderID, err)
		}

		if len(order.Payments) > 0 {
			payments := make([]processor.OrderPayment, len(order.Payments))
			copy(payments, order.Payments)
			sort.Slice(payments, func(i, j int) bool {
				return payments[i].DateCreated.Before(payments[j].DateCreated)
			})
			return r.resolvePayment(ctx, strconv.FormatInt(payments[0].ID, 10))
		}

		if retry == r.orderRetries {
			break
		}

		r.logger.Info("merchant order has no payments yet, retrying",
			"order_id", orderID,
			"retry", retry+1,
			"backoff", r.orderBackoff)

		select {
		case <-time.After(r.orderBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("merchant order %s has no payments: %w", orderID, ErrNotFound)
}
