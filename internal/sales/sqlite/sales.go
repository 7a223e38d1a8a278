package sqlite

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dietapronta/checkout-funnel/internal/core/datamodel/sale"
	salespkg "github.com/dietapronta/checkout-funnel/internal/sales"
)

type SalesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) (salespkg.RepositoryAPI, error) {
	if err := db.AutoMigrate(&sale.Sale{}); err != nil {
		return nil, err
	}
	return &SalesRepository{db: db}, nil
}

// Upsert keeps one row per payment id, updating the status fields when
// the same payment is propagated again with a newer status.
func (r *SalesRepository) Upsert(s *sale.Sale) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount", "payer_email", "approved_at", "updated_at",
		}),
	}).Create(s).Error
}

func (r *SalesRepository) GetByPaymentID(paymentID string) (*sale.Sale, error) {
	var s sale.Sale
	err := r.db.Where("payment_id = ?", paymentID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SalesRepository) List(limit int) ([]*sale.Sale, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*sale.Sale
	err := r.db.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *SalesRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.db.Model(&sale.Sale{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Status] = r.Total
	}
	return stats, nil
}
