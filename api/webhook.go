package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stockpulse/paybridge/models"
	"github.com/stockpulse/paybridge/services"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookProcessor is what the handler needs from the webhook pipeline.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, tm models.TransmissionMetadata) (*services.ProcessOutcome, error)
	RecentEvents(ctx context.Context, limit, offset int) ([]*models.ProcessedEvent, error)
}

type WebhookHandler struct {
	service WebhookProcessor
}

func CreateWebhookHandler(service WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{service: service}
}

type webhookResponse struct {
	Success   bool   `json:"success"`
	EventType string `json:"eventType"`
}

// HandleWebhook accepts one provider delivery. Every verified event is
// acknowledged with 200 and its echoed event type, recognized or not.
// Verification failures answer 401; internal failures answer 500 so the
// provider redelivers.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read webhook payload")
		return
	}

	tm := models.TransmissionMetadata{
		AuthAlgo:         r.Header.Get("paypal-auth-algo"),
		TransmissionID:   r.Header.Get("paypal-transmission-id"),
		CertID:           r.Header.Get("paypal-cert-id"),
		TransmissionSig:  r.Header.Get("paypal-transmission-sig"),
		TransmissionTime: r.Header.Get("paypal-transmission-time"),
	}

	outcome, err := h.service.ProcessWebhook(r.Context(), payload, tm)
	switch {
	case errors.Is(err, services.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	case errors.Is(err, services.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Webhook processing failed",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Success:   true,
		EventType: outcome.EventType,
	})
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhook-events", h.HandleListEvents).Methods(http.MethodGet)
	router.HandleFunc("/paypal/webhook", h.HandleWebhook).Methods(http.MethodPost)
}
