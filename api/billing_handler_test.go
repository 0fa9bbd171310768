package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/stockpulse/paybridge/models"
	"github.com/stockpulse/paybridge/providers"
	"github.com/stockpulse/paybridge/utils"
)

type fakeBillingBackend struct {
	subscription *models.Subscription
	detail       *providers.SubscriptionDetail
	plans        []*models.Plan
	payments     []*models.Payment
	err          error
}

func (f *fakeBillingBackend) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*providers.Product, error) {
	return &providers.Product{ID: "PROD-1", Name: req.Name}, f.err
}

func (f *fakeBillingBackend) CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*models.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Plan{PlanID: "P-5ML", Name: req.Name, Active: true}, nil
}

func (f *fakeBillingBackend) CreateSubscription(ctx context.Context, req *models.CreateSubscriptionRequest) (*providers.SubscriptionDetail, error) {
	return f.detail, f.err
}

func (f *fakeBillingBackend) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	if f.subscription == nil {
		return nil, utils.ErrSubscriptionNotFound
	}
	return f.subscription, nil
}

func (f *fakeBillingBackend) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	return f.plans, f.err
}

func (f *fakeBillingBackend) DeactivatePlan(ctx context.Context, planID string) error {
	return f.err
}

func (f *fakeBillingBackend) ListPayments(ctx context.Context, subscriptionID string) ([]*models.Payment, error) {
	return f.payments, f.err
}

func billingRouter(backend BillingBackend) *mux.Router {
	router := mux.NewRouter()
	CreateBillingHandler(backend).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func TestBillingHandler_CreateSubscription(t *testing.T) {
	backend := &fakeBillingBackend{
		detail: &providers.SubscriptionDetail{
			ID:     "I-SUB1",
			Status: "APPROVAL_PENDING",
			Links:  []providers.Link{{Href: "https://paypal.test/approve", Rel: "approve"}},
		},
	}
	router := billingRouter(backend)

	body := bytes.NewBufferString(`{"plan_id":"P-5ML","subscriber_email":"payer@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/paypal/create-subscription", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create-subscription status = %d, want %d", w.Code, http.StatusCreated)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response["id"] != "I-SUB1" {
		t.Errorf("create-subscription id = %v, want I-SUB1", response["id"])
	}
	if response["approval_url"] != "https://paypal.test/approve" {
		t.Errorf("create-subscription approval_url = %v", response["approval_url"])
	}
}

func TestBillingHandler_CreateSubscription_BadBody(t *testing.T) {
	router := billingRouter(&fakeBillingBackend{})

	req := httptest.NewRequest(http.MethodPost, "/api/paypal/create-subscription", bytes.NewBufferString(`{`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("create-subscription status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestBillingHandler_GetSubscription_NotFound(t *testing.T) {
	router := billingRouter(&fakeBillingBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions/I-MISSING", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("get subscription status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response["error"] != "Subscription not found" {
		t.Errorf("get subscription error = %q", response["error"])
	}
}

func TestBillingHandler_ListPayments(t *testing.T) {
	backend := &fakeBillingBackend{
		payments: []*models.Payment{
			{SaleID: "PAY-1", SubscriptionID: "I-SUB1", Total: "10.00", Currency: "USD", Status: models.PaymentStatusCompleted},
		},
	}
	router := billingRouter(backend)

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions/I-SUB1/payments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list payments status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		Payments []*models.Payment `json:"payments"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Count != 1 || response.Payments[0].SaleID != "PAY-1" {
		t.Errorf("list payments = %+v", response)
	}
}
