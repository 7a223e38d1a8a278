package whatsapp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dietapronta/checkout-funnel/internal/transport"
	"github.com/dietapronta/checkout-funnel/internal/whatsapp"
)

// Mock sender for testing
type mockSender struct {
	result   map[string]any
	err      error
	phones   []string
	messages []string
}

func (m *mockSender) SendText(ctx context.Context, phone, message string) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.phones = append(m.phones, phone)
	m.messages = append(m.messages, message)
	return m.result, nil
}

var _ = Describe("WhatsAppHandler", func() {
	var (
		sender  *mockSender
		handler *whatsapp.Handler
	)

	BeforeEach(func() {
		sender = &mockSender{result: map[string]any{"messageId": "m-1"}}
		handler = whatsapp.NewHandler(transport.NewBaseHandler(testLogger()), sender, testLogger())
	})

	Describe("SendMessage", func() {
		Context("when the request is valid", func() {
			It("should proxy the message and return the gateway response", func() {
				// Given
				body := `{"phone":"+5511999999999","message":"Oi"}`
				req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/send", strings.NewReader(body))
				rec := httptest.NewRecorder()

				// When
				handler.SendMessage(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(sender.phones).To(ConsistOf("+5511999999999"))
				Expect(sender.messages).To(ConsistOf("Oi"))

				var resp map[string]any
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp).To(HaveKeyWithValue("messageId", "m-1"))
			})
		})

		Context("when the phone is missing", func() {
			It("should reject with a validation error", func() {
				// Given
				req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/send", strings.NewReader(`{"message":"Oi"}`))
				rec := httptest.NewRecorder()

				// When
				handler.SendMessage(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(sender.phones).To(BeEmpty())
			})
		})

		Context("when the gateway is unreachable", func() {
			It("should answer with an upstream failure", func() {
				// Given
				sender.err = errors.New("gateway timeout")
				body := `{"phone":"+5511999999999","message":"Oi"}`
				req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/send", strings.NewReader(body))
				rec := httptest.NewRecorder()

				// When
				handler.SendMessage(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadGateway))
			})
		})
	})

	Describe("HandleInbound", func() {
		Context("when a delivery notification arrives", func() {
			It("should acknowledge with status ok", func() {
				// Given
				body := `{"message":{"text":"quero meu plano"}}`
				req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp", strings.NewReader(body))
				rec := httptest.NewRecorder()

				// When
				handler.HandleInbound(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))

				var resp map[string]string
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp).To(HaveKeyWithValue("status", "ok"))
			})
		})

		Context("when the body is empty", func() {
			It("should still acknowledge", func() {
				// Given
				req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp", nil)
				rec := httptest.NewRecorder()

				// When
				handler.HandleInbound(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
			})
		})

		Context("when the method is not POST", func() {
			It("should answer method not allowed", func() {
				// Given
				req := httptest.NewRequest(http.MethodGet, "/api/v1/webhook/whatsapp", nil)
				rec := httptest.NewRecorder()

				// When
				handler.HandleInbound(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
			})
		})
	})
})
