package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusDenied    PaymentStatus = "denied"
)

// Payment records one sale notification for a subscription. SaleID is the
// provider sale id and dedupes redeliveries of the same event.
type Payment struct {
	ID             string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SaleID         string        `json:"sale_id" gorm:"uniqueIndex;not null"`
	SubscriptionID string        `json:"subscription_id" gorm:"index"`
	Total          string        `json:"total"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status" gorm:"not null"`
	EventTime      time.Time     `json:"event_time"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
}
