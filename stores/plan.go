package stores

import (
	"context"

	"gorm.io/gorm"

	"github.com/stockpulse/paybridge/models"
)

type PlanStore struct {
	BaseStore
}

func CreatePlanStore(db *gorm.DB) *PlanStore {
	return &PlanStore{BaseStore: BaseStore{db: db}}
}

func (s *PlanStore) Create(ctx context.Context, plan *models.Plan) error {
	return s.GetDB(ctx).Create(plan).Error
}

func (s *PlanStore) GetByPlanID(ctx context.Context, planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.GetDB(ctx).First(&plan, "plan_id = ?", planID).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *PlanStore) List(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := s.GetDB(ctx).Where("active = ?", true).Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *PlanStore) Deactivate(ctx context.Context, planID string) error {
	return s.GetDB(ctx).Model(&models.Plan{}).
		Where("plan_id = ?", planID).
		Update("active", false).Error
}
