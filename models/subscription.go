package models

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusCreated       SubscriptionStatus = "CREATED"
	SubscriptionStatusActive        SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled     SubscriptionStatus = "CANCELLED"
	SubscriptionStatusSuspended     SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "PAYMENT_FAILED"
	SubscriptionStatusExpired       SubscriptionStatus = "EXPIRED"
)

// Terminal reports whether no further transition is defined away from the
// status. Events arriving after a terminal status are no-ops.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusCreated: {
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusActive: {
		SubscriptionStatusSuspended,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusSuspended: {
		SubscriptionStatusActive,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusPaymentFailed: {
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusCancelled: {},
	SubscriptionStatusExpired:   {},
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// Re-applying the current status is always allowed (idempotent upsert).
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Subscription is the system-of-record row for one provider subscription,
// keyed by the provider-assigned subscription id. LastEventAt is the
// timestamp of the last applied webhook event and guards against
// out-of-order redelivery.
type Subscription struct {
	ID                 string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SubscriptionID     string             `json:"subscription_id" gorm:"uniqueIndex;not null"`
	PlanID             string             `json:"plan_id" gorm:"index"`
	Status             SubscriptionStatus `json:"status" gorm:"not null;default:'CREATED'"`
	SubscriberEmail    string             `json:"subscriber_email"`
	CurrentPeriodStart *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end"`
	LastEventAt        time.Time          `json:"last_event_at"`
	CreatedAt          time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}
