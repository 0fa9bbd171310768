package stores

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockpulse/paybridge/models"
)

type PaymentStore struct {
	BaseStore
}

func CreatePaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{BaseStore: BaseStore{db: db}}
}

// RecordSale inserts a sale notification. Redelivered events carry the same
// sale id and are dropped on conflict, keeping one row per sale.
func (s *PaymentStore) RecordSale(ctx context.Context, payment *models.Payment) error {
	return s.GetDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sale_id"}},
		DoNothing: true,
	}).Create(payment).Error
}

func (s *PaymentStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := s.GetDB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("event_time DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
