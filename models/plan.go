package models

import (
	"time"
)

// Plan mirrors a provider billing plan we created through the catalog API.
type Plan struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PlanID        string    `json:"plan_id" gorm:"uniqueIndex;not null"`
	ProductID     string    `json:"product_id" gorm:"index"`
	Name          string    `json:"name" gorm:"not null"`
	Description   string    `json:"description"`
	Price         string    `json:"price" gorm:"not null"`
	Currency      string    `json:"currency" gorm:"not null"`
	Interval      string    `json:"interval" gorm:"not null"`
	IntervalCount int       `json:"interval_count" gorm:"default:1"`
	Active        bool      `json:"active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
	Category    string `json:"category,omitempty"`
}

type CreatePlanRequest struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
	Interval      string `json:"interval"`
	IntervalCount int    `json:"interval_count,omitempty"`
}

type CreateSubscriptionRequest struct {
	PlanID          string `json:"plan_id"`
	SubscriberEmail string `json:"subscriber_email,omitempty"`
	ReturnURL       string `json:"return_url,omitempty"`
	CancelURL       string `json:"cancel_url,omitempty"`
}
