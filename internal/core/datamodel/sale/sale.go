package sale

import "time"

// Sale is the locally persisted trace of a propagated payment status,
// one row per payment id. It backs the admin sales view and survives
// restarts, unlike the in-memory dedup ledger.
type Sale struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	PaymentID  string     `json:"payment_id" gorm:"column:payment_id;not null;uniqueIndex"`
	LeadRef    string     `json:"lead_ref" gorm:"column:lead_ref;not null;index"`
	Status     string     `json:"status" gorm:"column:status;not null"`
	Amount     float64    `json:"amount" gorm:"column:amount"`
	PayerEmail string     `json:"payer_email" gorm:"column:payer_email"`
	ApprovedAt *time.Time `json:"approved_at,omitempty" gorm:"column:approved_at"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Sale) TableName() string {
	return "sales"
}

func (s *Sale) IsApproved() bool {
	return s.Status == "approved"
}
