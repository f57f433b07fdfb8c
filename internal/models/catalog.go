package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultDietVariant вариант рецептуры по умолчанию
const DefaultDietVariant = "standard"

// Product справочник сырья
type Product struct {
	ID   string `json:"product_id" gorm:"column:product_id;type:uuid;primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`
	Unit string `json:"unit" gorm:"type:varchar(20);not null;default:'kg'"` // kg, l, pcs
}

// TableName указывает имя таблицы
func (Product) TableName() string {
	return "products"
}

// BeforeCreate генерирует UUID
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Unit == "" {
		p.Unit = "kg"
	}
	return nil
}

// Recipe технологическая карта блюда
type Recipe struct {
	ID   string `json:"recipe_id" gorm:"column:recipe_id;type:uuid;primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`

	Items []RecipeItem `json:"items,omitempty" gorm:"foreignKey:RecipeID;references:ID"`
}

// TableName указывает имя таблицы
func (Recipe) TableName() string {
	return "recipes"
}

// BeforeCreate генерирует UUID
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// RecipeItem строка рецептуры: сколько продукта уходит на одну порцию.
// Ключ (recipe_id, product_id, diet_variant)
type RecipeItem struct {
	RecipeID      string          `json:"recipe_id" gorm:"type:uuid;primaryKey"`
	ProductID     string          `json:"product_id" gorm:"type:uuid;primaryKey;index"`
	DietVariant   string          `json:"diet_variant" gorm:"type:varchar(50);primaryKey;default:'standard'"`
	QtyPerPortion decimal.Decimal `json:"qty_per_portion" gorm:"type:numeric(14,4);not null"`
	LossPct       decimal.Decimal `json:"loss_pct" gorm:"type:numeric(5,2);not null;default:0"` // 0-100, технологические потери
}

// TableName указывает имя таблицы
func (RecipeItem) TableName() string {
	return "recipe_items"
}

// BeforeCreate подставляет вариант по умолчанию
func (ri *RecipeItem) BeforeCreate(tx *gorm.DB) error {
	if ri.DietVariant == "" {
		ri.DietVariant = DefaultDietVariant
	}
	return nil
}
