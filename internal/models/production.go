package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanStatusPlanned статус нового плана производства
const PlanStatusPlanned = "Planned"

// ProductionPlan план производства на дату. Корневой агрегат для резервирования и списания
type ProductionPlan struct {
	ID       string    `json:"plan_id" gorm:"column:plan_id;type:uuid;primaryKey"`
	PlanDate time.Time `json:"plan_date" gorm:"type:date;not null;index"`
	Status   string    `json:"status" gorm:"type:varchar(50);not null;default:'Planned'"`

	Items []ProductionItem `json:"items,omitempty" gorm:"foreignKey:PlanID;references:ID"`
}

// TableName указывает имя таблицы
func (ProductionPlan) TableName() string {
	return "production_plans"
}

// BeforeCreate генерирует UUID
func (p *ProductionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = PlanStatusPlanned
	}
	return nil
}

// ProductionItem позиция плана: сколько порций рецепта в данном варианте.
// Ключ (plan_id, recipe_id, diet_variant)
type ProductionItem struct {
	PlanID      string `json:"plan_id" gorm:"type:uuid;primaryKey"`
	RecipeID    string `json:"recipe_id" gorm:"type:uuid;primaryKey"`
	DietVariant string `json:"diet_variant" gorm:"type:varchar(50);primaryKey;default:'standard'"`
	Portions    int    `json:"portions" gorm:"not null;default:0"`
}

// TableName указывает имя таблицы
func (ProductionItem) TableName() string {
	return "production_items"
}

// BeforeCreate подставляет вариант по умолчанию
func (pi *ProductionItem) BeforeCreate(tx *gorm.DB) error {
	if pi.DietVariant == "" {
		pi.DietVariant = DefaultDietVariant
	}
	return nil
}
