package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockpulse/paybridge/models"
	"github.com/stockpulse/paybridge/utils"
)

const tokenCacheKey = "paypal:access_token"

// TokenCache stores short-lived access tokens between requests. A nil cache
// is valid; every call then performs a live token exchange.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// PayPalProvider is a typed client for the PayPal OAuth, notification and
// billing REST APIs.
type PayPalProvider struct {
	clientID     string
	clientSecret string
	webhookID    string
	baseURL      string

	httpClient    *http.Client
	verifyTimeout time.Duration
	tokens        TokenCache
	retry         *utils.RetryConfig
}

func CreatePayPalProvider(clientID, clientSecret, webhookID, baseURL string) *PayPalProvider {
	return &PayPalProvider{
		clientID:      clientID,
		clientSecret:  clientSecret,
		webhookID:     webhookID,
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		verifyTimeout: 10 * time.Second,
		retry:         utils.DefaultRetryConfig(),
	}
}

// CreatePayPalProviderWithCache wires a token cache so repeated webhook
// deliveries reuse one bearer token instead of re-running the grant.
func CreatePayPalProviderWithCache(clientID, clientSecret, webhookID, baseURL string, tokens TokenCache) *PayPalProvider {
	p := CreatePayPalProvider(clientID, clientSecret, webhookID, baseURL)
	p.tokens = tokens
	return p
}

// SetVerifyTimeout bounds the verify-signature round trip. A timeout there
// surfaces as an error, not as "unverified".
func (p *PayPalProvider) SetVerifyTimeout(d time.Duration) {
	p.verifyTimeout = d
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken exchanges the client credentials for a bearer token. Missing
// credentials fail before any network call. A rejected exchange is returned
// as *utils.AuthError with the provider's status code.
func (p *PayPalProvider) AccessToken(ctx context.Context) (string, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return "", &utils.ConfigError{Missing: "paypal client credentials"}
	}

	if p.tokens != nil {
		if token, err := p.tokens.Get(ctx, tokenCacheKey); err == nil && token != "" {
			return token, nil
		}
	}

	var tok tokenResponse
	err := utils.Retry(ctx, p.retry, func() (bool, error) {
		form := url.Values{"grant_type": {"client_credentials"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
		if err != nil {
			return false, err
		}
		req.SetBasicAuth(p.clientID, p.clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return true, fmt.Errorf("token request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			authErr := &utils.AuthError{StatusCode: resp.StatusCode, Body: string(body)}
			// 5xx from the token endpoint is worth another attempt
			return resp.StatusCode >= 500, authErr
		}

		return false, json.NewDecoder(resp.Body).Decode(&tok)
	})
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &utils.AuthError{StatusCode: http.StatusOK, Body: "empty access token"}
	}

	if p.tokens != nil && tok.ExpiresIn > 60 {
		ttl := time.Duration(tok.ExpiresIn-60) * time.Second
		if err := p.tokens.SetWithTTL(ctx, tokenCacheKey, tok.AccessToken, ttl); err != nil {
			log.Warn().Err(err).Msg("failed to cache access token")
		}
	}

	return tok.AccessToken, nil
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertID           string          `json:"cert_id"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhookSignature authenticates an inbound webhook against the
// provider's verify endpoint. The check fails closed: incomplete headers or
// a non-success verdict yield false. A transport failure (including the
// bounded timeout) is returned as an error so the caller answers 500 and
// the provider redelivers, rather than silently rejecting a valid event.
func (p *PayPalProvider) VerifyWebhookSignature(ctx context.Context, event []byte, tm models.TransmissionMetadata) (bool, error) {
	if !tm.Complete() {
		return false, nil
	}
	if p.webhookID == "" {
		return false, &utils.ConfigError{Missing: "paypal webhook id"}
	}

	token, err := p.AccessToken(ctx)
	if err != nil {
		return false, err
	}

	body, err := json.Marshal(verifyRequest{
		AuthAlgo:         tm.AuthAlgo,
		CertID:           tm.CertID,
		TransmissionID:   tm.TransmissionID,
		TransmissionSig:  tm.TransmissionSig,
		TransmissionTime: tm.TransmissionTime,
		WebhookID:        p.webhookID,
		WebhookEvent:     json.RawMessage(event),
	})
	if err != nil {
		return false, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, p.verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(verifyCtx, http.MethodPost,
		p.baseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("verify-webhook-signature returned non-2xx")
		return false, nil
	}

	var verdict verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, nil
	}

	return verdict.VerificationStatus == "SUCCESS", nil
}

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
}

type PlanDetail struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

type SubscriptionDetail struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// ApprovalURL returns the buyer-facing approval link, if the provider
// included one.
func (s *SubscriptionDetail) ApprovalURL() string {
	for _, l := range s.Links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

func (p *PayPalProvider) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*Product, error) {
	productType := req.Type
	if productType == "" {
		productType = "SERVICE"
	}
	body := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"type":        productType,
	}
	if req.Category != "" {
		body["category"] = req.Category
	}

	var product Product
	if err := p.doJSON(ctx, http.MethodPost, "/v1/catalogs/products", body, &product); err != nil {
		return nil, fmt.Errorf("paypal create product: %w", err)
	}
	return &product, nil
}

func (p *PayPalProvider) CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*PlanDetail, error) {
	intervalCount := req.IntervalCount
	if intervalCount == 0 {
		intervalCount = 1
	}
	body := map[string]interface{}{
		"product_id":  req.ProductID,
		"name":        req.Name,
		"description": req.Description,
		"billing_cycles": []map[string]interface{}{
			{
				"frequency": map[string]interface{}{
					"interval_unit":  strings.ToUpper(req.Interval),
					"interval_count": intervalCount,
				},
				"tenure_type":  "REGULAR",
				"sequence":     1,
				"total_cycles": 0,
				"pricing_scheme": map[string]interface{}{
					"fixed_price": map[string]string{
						"value":         req.Price,
						"currency_code": req.Currency,
					},
				},
			},
		},
		"payment_preferences": map[string]interface{}{
			"auto_bill_outstanding":     true,
			"payment_failure_threshold": 3,
		},
	}

	var plan PlanDetail
	if err := p.doJSON(ctx, http.MethodPost, "/v1/billing/plans", body, &plan); err != nil {
		return nil, fmt.Errorf("paypal create plan: %w", err)
	}
	return &plan, nil
}

func (p *PayPalProvider) CreateSubscription(ctx context.Context, req *models.CreateSubscriptionRequest) (*SubscriptionDetail, error) {
	body := map[string]interface{}{
		"plan_id": req.PlanID,
	}
	if req.SubscriberEmail != "" {
		body["subscriber"] = map[string]interface{}{
			"email_address": req.SubscriberEmail,
		}
	}
	if req.ReturnURL != "" || req.CancelURL != "" {
		body["application_context"] = map[string]string{
			"return_url": req.ReturnURL,
			"cancel_url": req.CancelURL,
		}
	}

	var sub SubscriptionDetail
	if err := p.doJSON(ctx, http.MethodPost, "/v1/billing/subscriptions", body, &sub); err != nil {
		return nil, fmt.Errorf("paypal create subscription: %w", err)
	}
	return &sub, nil
}

// DeactivatePlan stops the provider offering the plan to new subscribers.
// Existing subscriptions on the plan keep billing.
func (p *PayPalProvider) DeactivatePlan(ctx context.Context, planID string) error {
	path := "/v1/billing/plans/" + url.PathEscape(planID) + "/deactivate"
	if err := p.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("paypal deactivate plan: %w", err)
	}
	return nil
}

func (p *PayPalProvider) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionDetail, error) {
	var sub SubscriptionDetail
	path := "/v1/billing/subscriptions/" + url.PathEscape(subscriptionID)
	if err := p.doJSON(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return nil, fmt.Errorf("paypal get subscription: %w", err)
	}
	return &sub, nil
}

func (p *PayPalProvider) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
