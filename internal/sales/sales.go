package sales

import (
	"github.com/dietapronta/checkout-funnel/internal/core/datamodel/sale"
)

// RepositoryAPI is the persistence surface the service and admin view
// depend on.
type RepositoryAPI interface {
	Upsert(s *sale.Sale) error
	GetByPaymentID(paymentID string) (*sale.Sale, error)
	List(limit int) ([]*sale.Sale, error)
	CountByStatus() (map[string]int64, error)
}
