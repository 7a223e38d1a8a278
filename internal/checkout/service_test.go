package checkout_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/dietapronta/checkout-funnel/internal"
	"github.com/dietapronta/checkout-funnel/internal/checkout"
	"github.com/dietapronta/checkout-funnel/internal/leadstore"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/reference"
)

// Mock processor for testing
type mockProcessor struct {
	createdPrefs  []*processor.PreferenceRequest
	createErr     error
	searchResults []processor.Payment
	searchErr     error
	searchedRef   string
}

func (m *mockProcessor) CreatePreference(ctx context.Context, pref *processor.PreferenceRequest) (*processor.Preference, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdPrefs = append(m.createdPrefs, pref)
	return &processor.Preference{
		ID:                "pref-001",
		InitPoint:         "https://checkout.example.com/pref-001",
		ExternalReference: pref.ExternalReference,
	}, nil
}

func (m *mockProcessor) SearchPaymentsByReference(ctx context.Context, ref string, limit int) ([]processor.Payment, error) {
	m.searchedRef = ref
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

// Mock lead store for testing
type mockLeadStore struct {
	savedLeads []*leadstore.Lead
	ref        string
	saveErr    error
}

func (m *mockLeadStore) SaveLead(ctx context.Context, lead *leadstore.Lead) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.savedLeads = append(m.savedLeads, lead)
	if m.ref != "" {
		return m.ref, nil
	}
	return "ref-from-store", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("CheckoutService", func() {
	var (
		proc    *mockProcessor
		leads   *mockLeadStore
		service *checkout.Service
		ctx     context.Context
	)

	cfg := checkout.Config{
		DefaultTitle:    "Plano de Dieta Completo",
		DefaultAmount:   9.9,
		CurrencyID:      "BRL",
		SuccessURL:      "https://example.com/approved",
		FailureURL:      "https://example.com/failure",
		PendingURL:      "https://example.com/pending",
		NotificationURL: "https://example.com/api/v1/webhook/payments",
	}

	BeforeEach(func() {
		proc = &mockProcessor{}
		leads = &mockLeadStore{}
		service = checkout.NewService(proc, leads, cfg, testLogger())
		ctx = context.Background()
	})

	Describe("CreatePreference", func() {
		Context("when the lead store accepts the lead", func() {
			It("should use the store's reference on the checkout session", func() {
				// Given
				req := &checkout.CreatePreferenceRequest{
					Amount:        9.9,
					CustomerName:  "Maria",
					CustomerEmail: "maria@example.com",
					DietTitle:     "Plano Premium",
					BodyType:      "Endomorfo",
				}

				// When
				resp, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.ID).To(Equal("pref-001"))
				Expect(resp.ExternalReference).To(Equal("ref-from-store"))

				Expect(leads.savedLeads).To(HaveLen(1))
				Expect(leads.savedLeads[0].Email).To(Equal("maria@example.com"))

				Expect(proc.createdPrefs).To(HaveLen(1))
				pref := proc.createdPrefs[0]
				Expect(pref.ExternalReference).To(Equal("ref-from-store"))
				Expect(pref.Items).To(HaveLen(1))
				Expect(pref.Items[0].Title).To(Equal("Plano Premium Endomorfo"))
				Expect(pref.Items[0].UnitPrice).To(Equal(9.9))
				Expect(pref.Items[0].CurrencyID).To(Equal("BRL"))
				Expect(pref.NotificationURL).To(Equal(cfg.NotificationURL))
				Expect(pref.Payer.Email).To(Equal("maria@example.com"))
			})
		})

		Context("when the lead store is unreachable", func() {
			It("should fall back to a locally generated reference", func() {
				// Given
				leads.saveErr = errors.New("lead store returned status 500")
				req := &checkout.CreatePreferenceRequest{Amount: 9.9}

				// When
				resp, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.ExternalReference).To(HavePrefix("ref-"))
			})
		})

		Context("when the caller already has a lead reference", func() {
			It("should reuse it without registering a new lead", func() {
				// Given
				req := &checkout.CreatePreferenceRequest{Amount: 9.9, LeadRef: "ref-existing"}

				// When
				resp, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.ExternalReference).To(Equal("ref-existing"))
				Expect(leads.savedLeads).To(BeEmpty())
			})
		})

		Context("when the processor rejects the preference", func() {
			It("should return an external error", func() {
				// Given
				proc.createErr = errors.New("processor returned status 400")
				req := &checkout.CreatePreferenceRequest{Amount: 9.9}

				// When
				resp, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(resp).To(BeNil())

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodePreferenceFailed))
			})
		})

		Context("when no title is supplied", func() {
			It("should use the configured default", func() {
				// Given
				req := &checkout.CreatePreferenceRequest{Amount: 9.9}

				// When
				_, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(proc.createdPrefs[0].Items[0].Title).To(Equal(cfg.DefaultTitle))
			})
		})

		Context("when no amount is supplied", func() {
			It("should charge the configured default", func() {
				// Given
				req := &checkout.CreatePreferenceRequest{}

				// When
				_, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(proc.createdPrefs[0].Items[0].UnitPrice).To(Equal(cfg.DefaultAmount))
			})
		})

		Context("when the quiz carries IMC data", func() {
			It("should forward it to the lead store", func() {
				// Given
				req := &checkout.CreatePreferenceRequest{
					Amount:   9.9,
					IMCValue: "27.4",
					IMCLabel: "Sobrepeso",
				}

				// When
				_, err := service.CreatePreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(leads.savedLeads).To(HaveLen(1))
				Expect(leads.savedLeads[0].IMCValue).To(Equal("27.4"))
				Expect(leads.savedLeads[0].IMCLabel).To(Equal("Sobrepeso"))
			})
		})
	})

	Describe("CreateUpsellPreference", func() {
		Context("when no parent reference is supplied", func() {
			It("should generate a dedicated upsell reference", func() {
				// Given
				req := &checkout.CreateUpsellRequest{Amount: 9.9, Title: "200 Receitas"}

				// When
				resp, err := service.CreateUpsellPreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.ExternalReference).To(HavePrefix("ref-upsell-"))
			})
		})

		Context("when a parent reference is supplied", func() {
			It("should embed the upsell metadata in the external reference", func() {
				// Given
				req := &checkout.CreateUpsellRequest{
					Amount:           9.9,
					Title:            "200 Receitas",
					ParentRef:        "ref-parent",
					CustomerWhatsApp: "+5511999999999",
				}

				// When
				resp, err := service.CreateUpsellPreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.ExternalReference).To(Equal("ref-parent"))

				pref := proc.createdPrefs[0]
				Expect(strings.Contains(pref.ExternalReference, "##")).To(BeTrue())

				decoded := reference.Decode(pref.ExternalReference)
				Expect(decoded.LeadRef).To(Equal("ref-parent"))
				Expect(decoded.Metadata).To(HaveKeyWithValue("order_type", "upsell"))
				Expect(decoded.Metadata).To(HaveKeyWithValue("parent_ref", "ref-parent"))
				Expect(decoded.Metadata).To(HaveKeyWithValue("customer_whatsapp", "+5511999999999"))

				Expect(pref.Metadata).To(HaveKeyWithValue("order_type", "upsell"))
			})
		})

		Context("when the lead store fails", func() {
			It("should continue with the checkout", func() {
				// Given
				leads.saveErr = errors.New("lead store unreachable")
				req := &checkout.CreateUpsellRequest{Amount: 9.9}

				// When
				resp, err := service.CreateUpsellPreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.ID).To(Equal("pref-001"))
			})
		})

		Context("when a contact phone is supplied", func() {
			It("should suffix it so the lead store creates a fresh record", func() {
				// Given
				req := &checkout.CreateUpsellRequest{Amount: 9.9, CustomerWhatsApp: "+551188888888"}

				// When
				_, err := service.CreateUpsellPreference(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(leads.savedLeads).To(HaveLen(1))
				Expect(leads.savedLeads[0].Phone).To(Equal("+551188888888-upsell"))
				Expect(leads.savedLeads[0].BodyType).To(Equal("Upsell"))
			})
		})
	})

	Describe("CheckStatus", func() {
		Context("when payments exist for the reference", func() {
			It("should return the most recent payment", func() {
				// Given
				approvedAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
				proc.searchResults = []processor.Payment{
					{
						ID:                123,
						Status:            processor.StatusApproved,
						StatusDetail:      "accredited",
						TransactionAmount: 9.9,
						DateApproved:      &approvedAt,
					},
					{ID: 122, Status: processor.StatusRejected},
				}

				// When
				resp, err := service.CheckStatus(ctx, "ref-abc")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Found).To(BeTrue())
				Expect(resp.Status).To(Equal(processor.StatusApproved))
				Expect(resp.PaymentID).To(Equal(int64(123)))
				Expect(*resp.DateApproved).To(Equal("2026-01-15T10:00:00Z"))
				Expect(proc.searchedRef).To(Equal("ref-abc"))
			})
		})

		Context("when no payment exists yet", func() {
			It("should report not found with unknown status", func() {
				// When
				resp, err := service.CheckStatus(ctx, "ref-new")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Found).To(BeFalse())
				Expect(resp.Status).To(Equal(processor.StatusUnknown))
			})
		})

		Context("when the reference is blank", func() {
			It("should return a validation error", func() {
				// When
				resp, err := service.CheckStatus(ctx, "   ")

				// Then
				Expect(err).To(HaveOccurred())
				Expect(resp).To(BeNil())

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})
		})

		Context("when the processor search fails", func() {
			It("should return an upstream error", func() {
				// Given
				proc.searchErr = errors.New("processor returned status 500")

				// When
				resp, err := service.CheckStatus(ctx, "ref-abc")

				// Then
				Expect(err).To(HaveOccurred())
				Expect(resp).To(BeNil())
			})
		})
	})
})

var _ = Describe("Request validation", func() {
	Describe("CreatePreferenceRequest", func() {
		Context("when the amount is missing", func() {
			It("should pass validation so the default amount applies", func() {
				req := &checkout.CreatePreferenceRequest{}
				Expect(req.Validate()).To(Succeed())
			})
		})

		Context("when the title is too long", func() {
			It("should fail validation", func() {
				req := &checkout.CreatePreferenceRequest{Title: strings.Repeat("x", 300)}
				Expect(req.Validate()).To(HaveOccurred())
			})
		})
	})

	Describe("CreateUpsellRequest", func() {
		Context("when the amount is missing", func() {
			It("should pass validation so the default amount applies", func() {
				req := &checkout.CreateUpsellRequest{}
				Expect(req.Validate()).To(Succeed())
			})
		})
	})
})
