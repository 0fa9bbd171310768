package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stockpulse/paybridge/models"
	"github.com/stockpulse/paybridge/providers"
	"github.com/stockpulse/paybridge/utils"
)

// BillingProvider is the slice of the PayPal client the billing flows use.
type BillingProvider interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*providers.Product, error)
	CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*providers.PlanDetail, error)
	DeactivatePlan(ctx context.Context, planID string) error
	CreateSubscription(ctx context.Context, req *models.CreateSubscriptionRequest) (*providers.SubscriptionDetail, error)
}

type PlanStore interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByPlanID(ctx context.Context, planID string) (*models.Plan, error)
	List(ctx context.Context) ([]*models.Plan, error)
	Deactivate(ctx context.Context, planID string) error
}

type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
}

type PaymentHistory interface {
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.Payment, error)
}

// BillingService wraps the provider's catalog and billing endpoints and
// mirrors the results locally. These are plain sequential API calls; the
// webhook pipeline owns all later state changes.
type BillingService struct {
	provider BillingProvider
	plans    PlanStore
	subs     SubscriptionStore
	payments PaymentHistory
}

func CreateBillingService(provider BillingProvider, plans PlanStore, subs SubscriptionStore, payments PaymentHistory) *BillingService {
	return &BillingService{
		provider: provider,
		plans:    plans,
		subs:     subs,
		payments: payments,
	}
}

func (s *BillingService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*providers.Product, error) {
	if req.Name == "" {
		return nil, utils.ErrInvalidRequest
	}
	return s.provider.CreateProduct(ctx, req)
}

func (s *BillingService) CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*models.Plan, error) {
	if req.ProductID == "" || req.Name == "" || req.Price == "" || req.Currency == "" || req.Interval == "" {
		return nil, utils.ErrInvalidRequest
	}

	detail, err := s.provider.CreatePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	plan := &models.Plan{
		PlanID:        detail.ID,
		ProductID:     req.ProductID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Currency:      req.Currency,
		Interval:      req.Interval,
		IntervalCount: req.IntervalCount,
		Active:        true,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}
	return plan, nil
}

// CreateSubscription starts a subscription with the provider and seeds the
// local record in CREATED. The webhook pipeline moves it forward from there.
func (s *BillingService) CreateSubscription(ctx context.Context, req *models.CreateSubscriptionRequest) (*providers.SubscriptionDetail, error) {
	if req.PlanID == "" {
		return nil, utils.ErrInvalidRequest
	}

	detail, err := s.provider.CreateSubscription(ctx, req)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		SubscriptionID:  detail.ID,
		PlanID:          req.PlanID,
		Status:          models.SubscriptionStatusCreated,
		SubscriberEmail: req.SubscriberEmail,
		LastEventAt:     time.Time{},
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}
	return detail, nil
}

func (s *BillingService) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.subs.GetBySubscriptionID(ctx, subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *BillingService) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	return s.plans.List(ctx)
}

// DeactivatePlan retires a plan with the provider and mirrors the flag
// locally. The plan must have been created through this service.
func (s *BillingService) DeactivatePlan(ctx context.Context, planID string) error {
	if _, err := s.plans.GetByPlanID(ctx, planID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrPlanNotFound
		}
		return err
	}
	if err := s.provider.DeactivatePlan(ctx, planID); err != nil {
		return err
	}
	return s.plans.Deactivate(ctx, planID)
}

func (s *BillingService) ListPayments(ctx context.Context, subscriptionID string) ([]*models.Payment, error) {
	return s.payments.ListBySubscription(ctx, subscriptionID)
}
