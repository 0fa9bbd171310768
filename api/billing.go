package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stockpulse/paybridge/models"
	"github.com/stockpulse/paybridge/providers"
	"github.com/stockpulse/paybridge/utils"
)

// BillingBackend is what the handler needs from the billing service.
type BillingBackend interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*providers.Product, error)
	CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*models.Plan, error)
	CreateSubscription(ctx context.Context, req *models.CreateSubscriptionRequest) (*providers.SubscriptionDetail, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	ListPlans(ctx context.Context) ([]*models.Plan, error)
	DeactivatePlan(ctx context.Context, planID string) error
	ListPayments(ctx context.Context, subscriptionID string) ([]*models.Payment, error)
}

type BillingHandler struct {
	service BillingBackend
}

func CreateBillingHandler(service BillingBackend) *BillingHandler {
	return &BillingHandler{service: service}
}

func (h *BillingHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *BillingHandler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.service.CreatePlan(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *BillingHandler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	detail, err := h.service.CreateSubscription(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":           detail.ID,
		"status":       detail.Status,
		"approval_url": detail.ApprovalURL(),
	})
}

func (h *BillingHandler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["id"]

	sub, err := h.service.GetSubscription(r.Context(), subscriptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *BillingHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

func (h *BillingHandler) HandleDeactivatePlan(w http.ResponseWriter, r *http.Request) {
	planID := mux.Vars(r)["id"]

	if err := h.service.DeactivatePlan(r.Context(), planID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plan_id": planID,
		"active":  false,
	})
}

func (h *BillingHandler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["id"]

	payments, err := h.service.ListPayments(r.Context(), subscriptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}

func (h *BillingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/paypal/create-product", h.HandleCreateProduct).Methods(http.MethodPost)
	router.HandleFunc("/paypal/create-plan", h.HandleCreatePlan).Methods(http.MethodPost)
	router.HandleFunc("/paypal/create-subscription", h.HandleCreateSubscription).Methods(http.MethodPost)
	router.HandleFunc("/plans", h.HandleListPlans).Methods(http.MethodGet)
	router.HandleFunc("/plans/{id}/deactivate", h.HandleDeactivatePlan).Methods(http.MethodPost)
	router.HandleFunc("/subscriptions/{id}", h.HandleGetSubscription).Methods(http.MethodGet)
	router.HandleFunc("/subscriptions/{id}/payments", h.HandleListPayments).Methods(http.MethodGet)
}

func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Code, apiErr.Message)
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}
