package stores

import (
	"context"

	"gorm.io/gorm"

	"github.com/stockpulse/paybridge/models"
)

// ProcessedEventStore is the append-only webhook audit log. Entries are
// inserted once and never touched again.
type ProcessedEventStore struct {
	BaseStore
}

func CreateProcessedEventStore(db *gorm.DB) *ProcessedEventStore {
	return &ProcessedEventStore{BaseStore: BaseStore{db: db}}
}

func (s *ProcessedEventStore) Record(ctx context.Context, entry *models.ProcessedEvent) error {
	return s.GetDB(ctx).Create(entry).Error
}

func (s *ProcessedEventStore) List(ctx context.Context, limit, offset int) ([]*models.ProcessedEvent, error) {
	var entries []*models.ProcessedEvent
	query := s.GetDB(ctx).Order("processed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *ProcessedEventStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.ProcessedEvent, error) {
	var entries []*models.ProcessedEvent
	err := s.GetDB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("processed_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
