package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockpulse/paybridge/models"
)

var (
	// ErrInvalidSignature means the provider did not vouch for the
	// delivery. The event is rejected and never recorded.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload means the body was not a webhook event we can read.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

type SignatureVerifier interface {
	VerifyWebhookSignature(ctx context.Context, event []byte, tm models.TransmissionMetadata) (bool, error)
}

type SubscriptionStateStore interface {
	ApplyStatus(ctx context.Context, subscriptionID string, status models.SubscriptionStatus, eventTime time.Time) error
}

type PaymentRecorder interface {
	RecordSale(ctx context.Context, payment *models.Payment) error
}

type EventLog interface {
	Record(ctx context.Context, entry *models.ProcessedEvent) error
	List(ctx context.Context, limit, offset int) ([]*models.ProcessedEvent, error)
}

// ProcessOutcome describes what happened to one accepted webhook.
type ProcessOutcome struct {
	EventType      string
	SubscriptionID string
	Handled        bool
}

type eventHandler func(ctx context.Context, event *models.WebhookEvent, res *models.EventResource, eventTime time.Time) error

// WebhookService verifies, dispatches and records inbound provider
// webhooks. Handlers are keyed by event type; anything else is recorded and
// acknowledged without touching state.
type WebhookService struct {
	verifier SignatureVerifier
	subs     SubscriptionStateStore
	payments PaymentRecorder
	events   EventLog

	handlers map[string]eventHandler
}

func CreateWebhookService(verifier SignatureVerifier, subs SubscriptionStateStore, payments PaymentRecorder, events EventLog) *WebhookService {
	s := &WebhookService{
		verifier: verifier,
		subs:     subs,
		payments: payments,
		events:   events,
	}

	s.handlers = map[string]eventHandler{
		"BILLING.SUBSCRIPTION.CREATED":   s.statusHandler(models.SubscriptionStatusCreated),
		"BILLING.SUBSCRIPTION.ACTIVATED": s.statusHandler(models.SubscriptionStatusActive),
		"BILLING.SUBSCRIPTION.CANCELLED": s.statusHandler(models.SubscriptionStatusCancelled),
		"BILLING.SUBSCRIPTION.SUSPENDED": s.statusHandler(models.SubscriptionStatusSuspended),
		"BILLING.SUBSCRIPTION.EXPIRED":   s.statusHandler(models.SubscriptionStatusExpired),
		"PAYMENT.SALE.COMPLETED":         s.saleHandler(models.PaymentStatusCompleted),
		"PAYMENT.SALE.DENIED":            s.saleHandler(models.PaymentStatusDenied),
	}

	return s
}

// ProcessWebhook runs the full pipeline for one delivery: verify, parse,
// record, dispatch. Verification failures return ErrInvalidSignature before
// anything is recorded. Once verified, the event is appended to the audit
// log even when the dispatch afterwards fails, so a retried delivery can be
// reconciled against it. A dispatch failure propagates to the caller, which
// answers 500 and lets the provider redeliver.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, tm models.TransmissionMetadata) (*ProcessOutcome, error) {
	verified, err := s.verifier.VerifyWebhookSignature(ctx, payload, tm)
	if err != nil {
		return nil, fmt.Errorf("signature verification: %w", err)
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.EventType == "" {
		return nil, ErrInvalidPayload
	}

	res := event.ParseResource()
	subscriptionID := res.SubscriptionID()
	eventTime := s.eventTime(&event, tm)

	entry := &models.ProcessedEvent{
		EventType:      event.EventType,
		SubscriptionID: subscriptionID,
		Payload:        rawPayload(payload),
	}
	if err := s.events.Record(ctx, entry); err != nil {
		// observability concern, never blocks the ack
		log.Error().Err(err).Str("event_type", event.EventType).Msg("failed to record webhook event")
	}

	handler, known := s.handlers[event.EventType]
	if !known {
		log.Info().
			Str("event_type", event.EventType).
			Str("subscription_id", subscriptionID).
			Msg("unhandled webhook event type")
		return &ProcessOutcome{EventType: event.EventType, SubscriptionID: subscriptionID}, nil
	}

	if err := handler(ctx, &event, res, eventTime); err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", event.EventType, err)
	}

	log.Info().
		Str("event_type", event.EventType).
		Str("subscription_id", subscriptionID).
		Msg("webhook event processed")

	return &ProcessOutcome{
		EventType:      event.EventType,
		SubscriptionID: subscriptionID,
		Handled:        true,
	}, nil
}

// RecentEvents exposes the audit log for operator review.
func (s *WebhookService) RecentEvents(ctx context.Context, limit, offset int) ([]*models.ProcessedEvent, error) {
	return s.events.List(ctx, limit, offset)
}

func (s *WebhookService) statusHandler(status models.SubscriptionStatus) eventHandler {
	return func(ctx context.Context, event *models.WebhookEvent, res *models.EventResource, eventTime time.Time) error {
		if res.ID == "" {
			log.Warn().Str("event_type", event.EventType).Msg("billing event without subscription id")
			return nil
		}
		return s.subs.ApplyStatus(ctx, res.ID, status, eventTime)
	}
}

func (s *WebhookService) saleHandler(status models.PaymentStatus) eventHandler {
	return func(ctx context.Context, event *models.WebhookEvent, res *models.EventResource, eventTime time.Time) error {
		if res.ID == "" {
			log.Warn().Str("event_type", event.EventType).Msg("sale event without sale id")
			return nil
		}
		return s.payments.RecordSale(ctx, &models.Payment{
			SaleID:         res.ID,
			SubscriptionID: res.BillingAgreementID,
			Total:          res.Amount.Total,
			Currency:       res.Amount.Currency,
			Status:         status,
			EventTime:      eventTime,
		})
	}
}

// eventTime picks the timestamp that orders this event: the event's own
// create_time, then the transmission time header, then receipt time.
func (s *WebhookService) eventTime(event *models.WebhookEvent, tm models.TransmissionMetadata) time.Time {
	if !event.CreateTime.IsZero() {
		return event.CreateTime
	}
	if ts, err := time.Parse(time.RFC3339, tm.TransmissionTime); err == nil {
		return ts
	}
	return time.Now().UTC()
}

func rawPayload(payload []byte) models.JSON {
	var m models.JSON
	if err := json.Unmarshal(payload, &m); err != nil {
		return models.JSON{"raw": string(payload)}
	}
	return m
}
