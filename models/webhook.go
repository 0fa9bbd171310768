package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSON is a jsonb-backed map column.
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSON column")
	}
	return json.Unmarshal(data, j)
}

// TransmissionMetadata carries the five PayPal transmission headers used to
// authenticate a webhook delivery. It is discarded after verification.
type TransmissionMetadata struct {
	AuthAlgo         string
	TransmissionID   string
	CertID           string
	TransmissionSig  string
	TransmissionTime string
}

// Complete reports whether every required header was present. Verification
// fails closed on an incomplete set without calling the provider.
func (tm TransmissionMetadata) Complete() bool {
	return tm.AuthAlgo != "" &&
		tm.TransmissionID != "" &&
		tm.CertID != "" &&
		tm.TransmissionSig != "" &&
		tm.TransmissionTime != ""
}

// WebhookEvent is one inbound PayPal notification. The resource shape depends
// on the event type, so it stays raw until a handler decodes it.
type WebhookEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	CreateTime time.Time       `json:"create_time"`
	Resource   json.RawMessage `json:"resource"`
}

// EventResource holds the resource fields the dispatcher reads. Unknown
// fields are ignored; missing fields decode to zero values.
type EventResource struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	PlanID             string `json:"plan_id"`
	BillingAgreementID string `json:"billing_agreement_id"`
	Amount             Amount `json:"amount"`
}

type Amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// ParseResource decodes the raw resource payload. A missing or malformed
// resource yields an empty EventResource rather than an error: unrecognized
// event types may carry shapes we cannot anticipate.
func (e *WebhookEvent) ParseResource() *EventResource {
	res := &EventResource{}
	if len(e.Resource) == 0 {
		return res
	}
	_ = json.Unmarshal(e.Resource, res)
	return res
}

// SubscriptionID derives the subscription the resource refers to. Billing
// lifecycle events carry it as the resource id; sale events reference it
// through billing_agreement_id.
func (r *EventResource) SubscriptionID() string {
	if r.BillingAgreementID != "" {
		return r.BillingAgreementID
	}
	return r.ID
}

// ProcessedEvent is the append-only audit record of every accepted webhook,
// recognized or not. Rows are never updated or deleted.
type ProcessedEvent struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EventType      string    `json:"event_type" gorm:"not null;index"`
	SubscriptionID string    `json:"subscription_id" gorm:"index"`
	Payload        JSON      `json:"payload" gorm:"type:jsonb"`
	ProcessedAt    time.Time `json:"processed_at" gorm:"autoCreateTime"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}
