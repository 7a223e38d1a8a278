package processor

import "time"

// Payment statuses as reported by the processor. approved, rejected and
// cancelled are terminal; everything else may still transition.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusInProcess = "in_process"
	StatusUnknown   = "unknown"
)

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Payment is the processor's read-model of a payment. The reconciler
// only ever reads it; status reflects the processor's view at call time.
type Payment struct {
	ID                int64      `json:"id"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	TransactionAmount float64    `json:"transaction_amount"`
	ExternalReference string     `json:"external_reference"`
	DateCreated       time.Time  `json:"date_created"`
	DateApproved      *time.Time `json:"date_approved"`
	Payer             Payer      `json:"payer"`
}

type Payer struct {
	Email string `json:"email"`
}

// MerchantOrder links a checkout to the payments made against it. The
// processor may attach payments a few seconds after checkout completes.
type MerchantOrder struct {
	ID                int64          `json:"id"`
	Status            string         `json:"status"`
	ExternalReference string         `json:"external_reference"`
	Payments          []OrderPayment `json:"payments"`
}

type OrderPayment struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	DateCreated time.Time `json:"date_created"`
}

type searchResponse struct {
	Results []Payment `json:"results"`
}

// PreferenceRequest shapes the checkout-session creation call.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	ExternalReference string           `json:"external_reference"`
	Payer             *PreferencePayer `json:"payer,omitempty"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
}

type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type PreferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Preference is the created checkout session.
type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	ExternalReference string `json:"external_reference"`
}
