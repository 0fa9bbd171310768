package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockpulse/paybridge/models"
)

type SubscriptionStore struct {
	BaseStore
}

func CreateSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{BaseStore: BaseStore{db: db}}
}

// ApplyStatus upserts the subscription row keyed by the provider
// subscription id. The row is locked for the duration of the transaction so
// concurrent deliveries for the same subscription serialize. The update is
// idempotent and monotonic: an event older than the stored last_event_at,
// a duplicate, or a transition out of a terminal status is a no-op.
func (s *SubscriptionStore) ApplyStatus(ctx context.Context, subscriptionID string, status models.SubscriptionStatus, eventTime time.Time) error {
	return s.WithTransaction(ctx, func(txCtx context.Context) error {
		var sub models.Subscription
		err := s.GetDB(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "subscription_id = ?", subscriptionID).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = models.Subscription{
				SubscriptionID: subscriptionID,
				Status:         status,
				LastEventAt:    eventTime,
			}
			return s.GetDB(txCtx).Create(&sub).Error
		}
		if err != nil {
			return err
		}

		if !eventTime.After(sub.LastEventAt) {
			return nil
		}
		if !sub.Status.CanTransitionTo(status) {
			return nil
		}
		if sub.Status == status {
			return s.GetDB(txCtx).Model(&sub).
				Update("last_event_at", eventTime).Error
		}

		return s.GetDB(txCtx).Model(&sub).Updates(map[string]interface{}{
			"status":        status,
			"last_event_at": eventTime,
		}).Error
	})
}

// Upsert records a subscription created through the billing API. Webhook
// state applied later always wins over this initial row.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *models.Subscription) error {
	return s.GetDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_id", "subscriber_email", "updated_at"}),
	}).Create(sub).Error
}

func (s *SubscriptionStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.GetDB(ctx).First(&sub, "subscription_id = ?", subscriptionID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}
