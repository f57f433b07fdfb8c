package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

var (
	// ErrRecipeNotFound рецепт с таким ID не существует
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrInvalidPortions количество порций отрицательное
	ErrInvalidPortions = errors.New("portions must be non-negative")
)

// ProductionService ведет планы производства и их позиции
type ProductionService struct {
	db *gorm.DB
}

// NewProductionService создает сервис планов производства
func NewProductionService(db *gorm.DB) *ProductionService {
	return &ProductionService{db: db}
}

// CreatePlan создает план на дату со статусом Planned
func (s *ProductionService) CreatePlan(ctx context.Context, planDate time.Time) (*models.ProductionPlan, error) {
	plan := &models.ProductionPlan{
		PlanDate: planDate,
		Status:   models.PlanStatusPlanned,
	}
	if err := s.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	log.Info().Str("plan_id", plan.ID).Time("plan_date", planDate).Msg("✅ production plan created")
	return plan, nil
}

// AddItem добавляет позицию в план. Повторная позиция с тем же рецептом и вариантом заменяет количество порций
func (s *ProductionService) AddItem(ctx context.Context, planID, recipeID, dietVariant string, portions int) (*models.ProductionItem, error) {
	if portions < 0 {
		return nil, ErrInvalidPortions
	}

	item := &models.ProductionItem{
		PlanID:      planID,
		RecipeID:    recipeID,
		DietVariant: dietVariantOrDefault(dietVariant),
		Portions:    portions,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProductionPlan{}).Where("plan_id = ?", planID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrPlanNotFound
		}
		if err := tx.Model(&models.Recipe{}).Where("recipe_id = ?", recipeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRecipeNotFound
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plan_id"}, {Name: "recipe_id"}, {Name: "diet_variant"}},
			DoUpdates: clause.AssignmentColumns([]string{"portions"}),
		}).Create(item).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add item to plan %s: %w", planID, err)
	}
	return item, nil
}

// GetPlan возвращает план с позициями
func (s *ProductionService) GetPlan(ctx context.Context, planID string) (*models.ProductionPlan, error) {
	var plan models.ProductionPlan
	err := s.db.WithContext(ctx).Preload("Items").First(&plan, "plan_id = ?", planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}
	return &plan, nil
}
