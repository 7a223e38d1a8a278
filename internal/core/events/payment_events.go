package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentReconciled = "payment.reconciled"
	EventTypePaymentApproved   = "payment.approved"
)

// PaymentReconciledEvent is published after every status propagation,
// terminal or not. Subscribers record the sale locally.
type PaymentReconciledEvent struct {
	BaseEvent
	PaymentID  string     `json:"payment_id"`
	LeadRef    string     `json:"lead_ref"`
	Status     string     `json:"status"`
	Amount     float64    `json:"amount"`
	PayerEmail string     `json:"payer_email"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func NewPaymentReconciledEvent(paymentID, leadRef, status string, amount float64, payerEmail string, approvedAt *time.Time) *PaymentReconciledEvent {
	return &PaymentReconciledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentReconciled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":  paymentID,
				"lead_ref":    leadRef,
				"status":      status,
				"amount":      amount,
				"payer_email": payerEmail,
			},
		},
		PaymentID:  paymentID,
		LeadRef:    leadRef,
		Status:     status,
		Amount:     amount,
		PayerEmail: payerEmail,
		ApprovedAt: approvedAt,
	}
}

// PaymentApprovedEvent fires once per observed approval and drives the
// conversion-tracking side channel.
type PaymentApprovedEvent struct {
	BaseEvent
	PaymentID string  `json:"payment_id"`
	LeadRef   string  `json:"lead_ref"`
	Amount    float64 `json:"amount"`
}

func NewPaymentApprovedEvent(paymentID, leadRef string, amount float64) *PaymentApprovedEvent {
	return &PaymentApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"lead_ref":   leadRef,
				"amount":     amount,
			},
		},
		PaymentID: paymentID,
		LeadRef:   leadRef,
		Amount:    amount,
	}
}
