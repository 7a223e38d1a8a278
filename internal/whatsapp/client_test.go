package whatsapp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dietapronta/checkout-funnel/internal/whatsapp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("WhatsAppClient", func() {
	var (
		server   *httptest.Server
		client   *whatsapp.Client
		ctx      context.Context
		lastPath string
		lastBody map[string]any
	)

	newClient := func(handler http.HandlerFunc) {
		wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath = r.URL.Path
			lastBody = nil
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			handler(w, r)
		})
		server = httptest.NewServer(wrapped)
		client = whatsapp.NewClient(whatsapp.Config{
			BaseURL:    server.URL,
			InstanceID: "inst-1",
			Token:      "tok-1",
		}, testLogger())
	}

	BeforeEach(func() {
		ctx = context.Background()
		lastPath = ""
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("SendText", func() {
		Context("when the gateway accepts", func() {
			It("should post to the instance send-text route and return the response", func() {
				// Given
				newClient(func(w http.ResponseWriter, r *http.Request) {
					json.NewEncoder(w).Encode(map[string]any{"zaapId": "z-1", "messageId": "m-1"})
				})

				// When
				result, err := client.SendText(ctx, "+5511999999999", "Seu plano chegou!")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(lastPath).To(Equal("/instances/inst-1/token/tok-1/send-text"))
				Expect(lastBody).To(HaveKeyWithValue("phone", "+5511999999999"))
				Expect(lastBody).To(HaveKeyWithValue("message", "Seu plano chegou!"))
				Expect(result).To(HaveKeyWithValue("messageId", "m-1"))
			})
		})

		Context("when the gateway rejects the message", func() {
			It("should pass the gateway's error body through", func() {
				// Given
				newClient(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]any{"error": "invalid phone"})
				})

				// When
				result, err := client.SendText(ctx, "bad", "msg")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(HaveKeyWithValue("error", "invalid phone"))
			})
		})

		Context("when no credentials are configured", func() {
			It("should refuse to send", func() {
				// Given
				unconfigured := whatsapp.NewClient(whatsapp.Config{}, testLogger())
				Expect(unconfigured.Configured()).To(BeFalse())

				// When
				result, err := unconfigured.SendText(ctx, "+5511999999999", "msg")

				// Then
				Expect(err).To(HaveOccurred())
				Expect(result).To(BeNil())
			})
		})
	})
})
