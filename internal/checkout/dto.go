package checkout

import (
	"github.com/dietapronta/checkout-funnel/internal/core/common/validation"
)

// CreatePreferenceRequest is the checkout payload sent by the quiz
// front-end. Customer fields are optional; the lead store tolerates
// blanks.
type CreatePreferenceRequest struct {
	Amount           float64 `json:"amount"`
	Title            string  `json:"title"`
	LeadRef          string  `json:"lead_ref"`
	CustomerName     string  `json:"customer_name"`
	CustomerEmail    string  `json:"customer_email"`
	CustomerWhatsApp string  `json:"customer_whatsapp"`
	DietTitle        string  `json:"diet_title"`
	BodyType         string  `json:"body_type"`
	IMCValue         string  `json:"imc_value"`
	IMCLabel         string  `json:"imc_label"`
}

// Validate checks field shapes only. A missing or non-positive amount
// is not an error: the service substitutes the configured default.
func (r *CreatePreferenceRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("title", r.Title).MaxLength(256)
	validator.Field("customer_email", r.CustomerEmail).MaxLength(256)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// CreateUpsellRequest creates a follow-up offer checkout. The parent
// reference links the upsell back to the originating lead.
type CreateUpsellRequest struct {
	Amount           float64 `json:"amount"`
	Title            string  `json:"title"`
	ParentRef        string  `json:"external_reference"`
	CustomerName     string  `json:"customer_name"`
	CustomerEmail    string  `json:"customer_email"`
	CustomerWhatsApp string  `json:"customer_whatsapp"`
}

func (r *CreateUpsellRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("title", r.Title).MaxLength(256)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// PreferenceResponse is what the front-end needs to redirect the buyer
// to the hosted checkout.
type PreferenceResponse struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	ExternalReference string `json:"external_reference"`
}

// StatusResponse reports the most recent payment for a reference.
type StatusResponse struct {
	Found             bool    `json:"found"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail,omitempty"`
	PaymentID         int64   `json:"id,omitempty"`
	DateApproved      *string `json:"date_approved,omitempty"`
	TransactionAmount float64 `json:"transaction_amount,omitempty"`
}
