package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stockpulse/paybridge/models"
	"github.com/stockpulse/paybridge/utils"
)

type memoryTokenCache struct {
	values map[string]string
	sets   int
}

func newMemoryTokenCache() *memoryTokenCache {
	return &memoryTokenCache{values: map[string]string{}}
}

func (c *memoryTokenCache) Get(_ context.Context, key string) (string, error) {
	return c.values[key], nil
}

func (c *memoryTokenCache) SetWithTTL(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	c.values[key] = value.(string)
	return nil
}

func completeMetadata() models.TransmissionMetadata {
	return models.TransmissionMetadata{
		AuthAlgo:         "SHA256withRSA",
		TransmissionID:   "tx-1",
		CertID:           "cert-1",
		TransmissionSig:  "sig",
		TransmissionTime: "2024-05-01T10:00:00Z",
	}
}

// fakePayPal serves the token and verify endpoints and counts requests.
func fakePayPal(t *testing.T, verificationStatus string, verifyStatusCode int) (*httptest.Server, *int, *int) {
	t.Helper()
	tokenCalls := 0
	verifyCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user == "" || pass == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   32400,
		})
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		verifyCalls++
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req["webhook_id"] != "WH-1" || req["transmission_id"] != "tx-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(verifyStatusCode)
		json.NewEncoder(w).Encode(map[string]string{"verification_status": verificationStatus})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenCalls, &verifyCalls
}

func TestPayPalProvider_AccessToken_MissingCredentials(t *testing.T) {
	provider := CreatePayPalProvider("", "", "WH-1", "https://example.invalid")

	_, err := provider.AccessToken(context.Background())

	var cfgErr *utils.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("AccessToken() error = %v, want *utils.ConfigError", err)
	}
}

func TestPayPalProvider_AccessToken_Success(t *testing.T) {
	server, tokenCalls, _ := fakePayPal(t, "SUCCESS", http.StatusOK)
	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	token, err := provider.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if token != "test-token" {
		t.Errorf("AccessToken() = %q, want test-token", token)
	}
	if *tokenCalls != 1 {
		t.Errorf("token endpoint calls = %d, want 1", *tokenCalls)
	}
}

func TestPayPalProvider_AccessToken_CachesToken(t *testing.T) {
	server, tokenCalls, _ := fakePayPal(t, "SUCCESS", http.StatusOK)
	tokens := newMemoryTokenCache()
	provider := CreatePayPalProviderWithCache("client-id", "client-secret", "WH-1", server.URL, tokens)

	for i := 0; i < 3; i++ {
		if _, err := provider.AccessToken(context.Background()); err != nil {
			t.Fatalf("AccessToken() call %d error = %v", i, err)
		}
	}

	if *tokenCalls != 1 {
		t.Errorf("token endpoint calls = %d, want 1 (cached afterwards)", *tokenCalls)
	}
	if tokens.sets != 1 {
		t.Errorf("cache sets = %d, want 1", tokens.sets)
	}
}

func TestPayPalProvider_AccessToken_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := CreatePayPalProvider("client-id", "bad-secret", "WH-1", server.URL)

	_, err := provider.AccessToken(context.Background())

	var authErr *utils.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("AccessToken() error = %v, want *utils.AuthError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("AuthError.StatusCode = %d, want %d", authErr.StatusCode, http.StatusUnauthorized)
	}
}

func TestPayPalProvider_Verify_Success(t *testing.T) {
	server, _, verifyCalls := fakePayPal(t, "SUCCESS", http.StatusOK)
	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	ok, err := provider.VerifyWebhookSignature(context.Background(), []byte(`{"event_type":"X"}`), completeMetadata())
	if err != nil {
		t.Fatalf("VerifyWebhookSignature() error = %v", err)
	}
	if !ok {
		t.Error("VerifyWebhookSignature() = false, want true")
	}
	if *verifyCalls != 1 {
		t.Errorf("verify endpoint calls = %d, want 1", *verifyCalls)
	}
}

func TestPayPalProvider_Verify_Failure(t *testing.T) {
	server, _, _ := fakePayPal(t, "FAILURE", http.StatusOK)
	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	ok, err := provider.VerifyWebhookSignature(context.Background(), []byte(`{}`), completeMetadata())
	if err != nil {
		t.Fatalf("VerifyWebhookSignature() error = %v", err)
	}
	if ok {
		t.Error("VerifyWebhookSignature() = true, want false")
	}
}

func TestPayPalProvider_Verify_MissingHeaderFailsClosedWithoutCall(t *testing.T) {
	server, tokenCalls, verifyCalls := fakePayPal(t, "SUCCESS", http.StatusOK)
	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	tm := completeMetadata()
	tm.TransmissionSig = ""

	ok, err := provider.VerifyWebhookSignature(context.Background(), []byte(`{}`), tm)
	if err != nil {
		t.Fatalf("VerifyWebhookSignature() error = %v", err)
	}
	if ok {
		t.Error("VerifyWebhookSignature() = true, want false for incomplete headers")
	}
	if *tokenCalls != 0 || *verifyCalls != 0 {
		t.Error("incomplete headers must not trigger any provider call")
	}
}

func TestPayPalProvider_Verify_ProviderErrorFailsClosed(t *testing.T) {
	server, _, _ := fakePayPal(t, "", http.StatusServiceUnavailable)
	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	ok, err := provider.VerifyWebhookSignature(context.Background(), []byte(`{}`), completeMetadata())
	if err != nil {
		t.Fatalf("VerifyWebhookSignature() error = %v", err)
	}
	if ok {
		t.Error("VerifyWebhookSignature() = true, want false when provider errors")
	}
}

func TestPayPalProvider_Verify_TransportErrorIsReturned(t *testing.T) {
	server, _, _ := fakePayPal(t, "SUCCESS", http.StatusOK)
	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)
	server.Close() // every call now fails at the transport level

	_, err := provider.VerifyWebhookSignature(context.Background(), []byte(`{}`), completeMetadata())
	if err == nil {
		t.Fatal("VerifyWebhookSignature() error = nil, want transport error")
	}
}

func TestPayPalProvider_CreateSubscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/billing/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["plan_id"] != "P-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "I-SUB1",
			"status": "APPROVAL_PENDING",
			"links": []map[string]string{
				{"href": "https://paypal.example/approve/I-SUB1", "rel": "approve", "method": "GET"},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	detail, err := provider.CreateSubscription(context.Background(), &models.CreateSubscriptionRequest{PlanID: "P-1"})
	if err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}
	if detail.ID != "I-SUB1" {
		t.Errorf("CreateSubscription() id = %q, want I-SUB1", detail.ID)
	}
	if got := detail.ApprovalURL(); got != "https://paypal.example/approve/I-SUB1" {
		t.Errorf("ApprovalURL() = %q", got)
	}
}

func TestPayPalProvider_GetSubscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/billing/subscriptions/I-SUB1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "I-SUB1",
			"plan_id": "P-1",
			"status":  "ACTIVE",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	detail, err := provider.GetSubscription(context.Background(), "I-SUB1")
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if detail.Status != "ACTIVE" {
		t.Errorf("GetSubscription() status = %q, want ACTIVE", detail.Status)
	}
}

func TestPayPalProvider_DeactivatePlan(t *testing.T) {
	deactivateCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/billing/plans/P-1/deactivate", func(w http.ResponseWriter, r *http.Request) {
		deactivateCalls++
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := CreatePayPalProvider("client-id", "client-secret", "WH-1", server.URL)

	if err := provider.DeactivatePlan(context.Background(), "P-1"); err != nil {
		t.Fatalf("DeactivatePlan() error = %v", err)
	}
	if deactivateCalls != 1 {
		t.Errorf("deactivate calls = %d, want 1", deactivateCalls)
	}
}
