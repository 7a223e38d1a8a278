package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// LeadStoreAPI is the slice of the lead store client the propagator needs.
type LeadStoreAPI interface {
	UpdateStatus(ctx context.Context, ref, status string, fields map[string]any) error
}

// Propagator pushes (ref, status) pairs to the lead store. Delivery is
// at-least-once; the store deduplicates by (ref, status) per contract.
// A local last-propagated cache additionally suppresses identical
// rewrites, so imperfect downstream idempotency costs nothing in the
// common case.
type Propagator struct {
	store  LeadStoreAPI
	logger *slog.Logger

	mu         sync.Mutex
	lastStatus map[string]string
}

func NewPropagator(store LeadStoreAPI, logger *slog.Logger) *Propagator {
	return &Propagator{
		store:      store,
		logger:     logger,
		lastStatus: make(map[string]string),
	}
}

// Propagate pushes one status update. The returned bool reports
// whether an update was actually delivered; a suppressed identical
// rewrite returns (false, nil).
func (p *Propagator) Propagate(ctx context.Context, leadRef, status string, fields map[string]any) (bool, error) {
	if leadRef == "" {
		return false, fmt.Errorf("propagate: empty lead ref")
	}

	if p.alreadyPropagated(leadRef, status) {
		p.logger.Debug("status already propagated, skipping",
			"lead_ref", leadRef,
			"status", status)
		return false, nil
	}

	if err := p.store.UpdateStatus(ctx, leadRef, status, fields); err != nil {
		p.logger.Error("status propagation failed",
			"error", err,
			"lead_ref", leadRef,
			"status", status)
		return false, fmt.Errorf("propagation failed for ref %s: %w", leadRef, err)
	}

	p.remember(leadRef, status)

	p.logger.Info("status propagated",
		"lead_ref", leadRef,
		"status", status)

	return true, nil
}

func (p *Propagator) alreadyPropagated(leadRef, status string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStatus[leadRef] == status
}

func (p *Propagator) remember(leadRef, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastStatus[leadRef] = status
}
