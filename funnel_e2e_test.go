package main_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dietapronta/checkout-funnel/internal/analytics"
	"github.com/dietapronta/checkout-funnel/internal/core/events"
	"github.com/dietapronta/checkout-funnel/internal/leadstore"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/reconcile"
	"github.com/dietapronta/checkout-funnel/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// statusUpdateRecorder collects the update_status calls the lead store
// receives, so specs can assert on real HTTP traffic end to end.
type statusUpdateRecorder struct {
	mu      sync.Mutex
	updates []map[string]any
}

func (r *statusUpdateRecorder) record(body map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, body)
}

func (r *statusUpdateRecorder) all() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.updates))
	copy(out, r.updates)
	return out
}

var _ = Describe("Webhook funnel end to end", func() {
	var (
		processorSrv *httptest.Server
		leadStoreSrv *httptest.Server
		pixelSrv     *httptest.Server

		payments map[string]map[string]any
		updates  *statusUpdateRecorder

		pixelMu   sync.Mutex
		pixelRefs []string

		service *reconcile.Service
		handler *reconcile.WebhookHandler
	)

	BeforeEach(func() {
		log := testLogger()

		payments = make(map[string]map[string]any)
		processorSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
			p, ok := payments[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(p)
		}))

		updates = &statusUpdateRecorder{}
		leadStoreSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			updates.record(body)
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}))

		pixelRefs = nil
		pixelSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pixelMu.Lock()
			pixelRefs = append(pixelRefs, r.URL.Query().Get("ref"))
			pixelMu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))

		processorClient := processor.NewClient(processor.Config{
			BaseURL:     processorSrv.URL,
			AccessToken: "test-token",
		}, log)
		leadStoreClient := leadstore.NewClient(leadstore.Config{
			SaveLeadURL:     leadStoreSrv.URL + "/save_lead",
			UpdateStatusURL: leadStoreSrv.URL + "/update_status",
			Secret:          "shared-secret",
		}, log)
		analyticsClient := analytics.NewClient(analytics.Config{
			PixelURL: pixelSrv.URL,
			Enabled:  true,
		}, log)

		eventBus := events.NewEventBus(log)
		analytics.NewEventHandler(analyticsClient, log).RegisterEventHandlers(eventBus)

		resolver := reconcile.NewResolver(processorClient, 3, 5*time.Millisecond, log)
		propagator := reconcile.NewPropagator(leadStoreClient, log)
		service = reconcile.NewService(
			reconcile.NewMemoryLedger(500),
			resolver,
			propagator,
			eventBus,
			nil,
			[]time.Duration{50 * time.Millisecond},
			log,
		)
		handler = reconcile.NewWebhookHandler(transport.NewBaseHandler(log), service, processorClient, log)
	})

	AfterEach(func() {
		service.Shutdown()
		processorSrv.Close()
		leadStoreSrv.Close()
		pixelSrv.Close()
	})

	pixelHits := func() []string {
		pixelMu.Lock()
		defer pixelMu.Unlock()
		out := make([]string, len(pixelRefs))
		copy(out, pixelRefs)
		return out
	}

	Context("when an approved payment notification arrives", func() {
		It("should propagate the status once, track the conversion and answer 200", func() {
			// Given
			payments["123"] = map[string]any{
				"id":                 123,
				"status":             "approved",
				"transaction_amount": 9.9,
				"external_reference": "ref-1",
			}

			// When
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payments",
				strings.NewReader(`{"type":"payment","data":{"id":"123"}}`))
			rec := httptest.NewRecorder()
			handler.HandleNotification(rec, req)

			// Then
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("ok", true))

			all := updates.all()
			Expect(all).To(HaveLen(1))
			Expect(all[0]).To(HaveKeyWithValue("ref", "ref-1"))
			Expect(all[0]).To(HaveKeyWithValue("status", "approved"))
			Expect(all[0]).To(HaveKeyWithValue("secret", "shared-secret"))

			Eventually(pixelHits).Should(ConsistOf("ref-1"))
		})
	})

	Context("when the processor has no record of the payment", func() {
		It("should still answer 200 without propagating anything", func() {
			// When
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payments",
				strings.NewReader(`{"type":"payment","data":{"id":"404"}}`))
			rec := httptest.NewRecorder()
			handler.HandleNotification(rec, req)

			// Then
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("ok", true))

			Expect(updates.all()).To(BeEmpty())
			Consistently(pixelHits, 100*time.Millisecond).Should(BeEmpty())
		})
	})

	Context("when the same notification is delivered twice", func() {
		It("should propagate only once", func() {
			// Given
			payments["123"] = map[string]any{
				"id":                 123,
				"status":             "approved",
				"transaction_amount": 9.9,
				"external_reference": "ref-1",
			}

			// When
			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payments",
					strings.NewReader(`{"type":"payment","data":{"id":"123"}}`))
				rec := httptest.NewRecorder()
				handler.HandleNotification(rec, req)
				Expect(rec.Code).To(Equal(http.StatusOK))
			}

			// Then
			Expect(updates.all()).To(HaveLen(1))
		})
	})
})
