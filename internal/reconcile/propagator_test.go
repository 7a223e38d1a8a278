package reconcile_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dietapronta/checkout-funnel/internal/reconcile"
)

// Mock lead store for testing
type mockLeadStore struct {
	mu        sync.Mutex
	updates   []statusUpdate
	updateErr error
}

type statusUpdate struct {
	ref    string
	status string
	fields map[string]any
}

func (m *mockLeadStore) UpdateStatus(ctx context.Context, ref, status string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, statusUpdate{ref: ref, status: status, fields: fields})
	return nil
}

func (m *mockLeadStore) calls() []statusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]statusUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

var _ = Describe("Propagator", func() {
	var (
		store      *mockLeadStore
		propagator *reconcile.Propagator
		ctx        context.Context
	)

	BeforeEach(func() {
		store = &mockLeadStore{}
		propagator = reconcile.NewPropagator(store, testLogger())
		ctx = context.Background()
	})

	Context("when propagating a new status", func() {
		It("should deliver it and report delivered", func() {
			// When
			delivered, err := propagator.Propagate(ctx, "ref-1", "approved", map[string]any{"payment_id": "1"})

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(delivered).To(BeTrue())
			Expect(store.calls()).To(HaveLen(1))
			Expect(store.calls()[0].ref).To(Equal("ref-1"))
			Expect(store.calls()[0].status).To(Equal("approved"))
		})
	})

	Context("when the same status is propagated twice", func() {
		It("should suppress the identical rewrite", func() {
			// Given
			_, err := propagator.Propagate(ctx, "ref-1", "pending", nil)
			Expect(err).ToNot(HaveOccurred())

			// When
			delivered, err := propagator.Propagate(ctx, "ref-1", "pending", nil)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(delivered).To(BeFalse())
			Expect(store.calls()).To(HaveLen(1))
		})

		It("should still deliver a status change for the same ref", func() {
			// Given
			_, err := propagator.Propagate(ctx, "ref-1", "pending", nil)
			Expect(err).ToNot(HaveOccurred())

			// When
			delivered, err := propagator.Propagate(ctx, "ref-1", "approved", nil)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(delivered).To(BeTrue())
			Expect(store.calls()).To(HaveLen(2))
		})
	})

	Context("when the lead store fails", func() {
		It("should return the error and not cache the status", func() {
			// Given
			store.updateErr = errors.New("lead store returned status 500")

			// When
			delivered, err := propagator.Propagate(ctx, "ref-1", "approved", nil)

			// Then
			Expect(err).To(HaveOccurred())
			Expect(delivered).To(BeFalse())

			// And a retry after recovery goes through
			store.updateErr = nil
			delivered, err = propagator.Propagate(ctx, "ref-1", "approved", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(delivered).To(BeTrue())
		})
	})

	Context("when the lead ref is empty", func() {
		It("should reject the call without touching the store", func() {
			// When
			delivered, err := propagator.Propagate(ctx, "", "approved", nil)

			// Then
			Expect(err).To(HaveOccurred())
			Expect(delivered).To(BeFalse())
			Expect(store.calls()).To(BeEmpty())
		})
	})
})
