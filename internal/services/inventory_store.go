package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

// InventoryStore транзакционный доступ к складу и плановым данным
type InventoryStore interface {
	// WithinTx выполняет fn в одной транзакции: ошибка из fn или отмена ctx откатывает все изменения
	WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error
}

// InventoryTx операции, доступные внутри транзакции. Чтения видят записи, сделанные ранее в этой же транзакции
type InventoryTx interface {
	PlanExists(ctx context.Context, planID string) (bool, error)
	ProductionItems(ctx context.Context, planID string) ([]models.ProductionItem, error)
	RecipeItems(ctx context.Context, recipeIDs []string) ([]models.RecipeItem, error)

	Reservations(ctx context.Context, planID string) ([]models.InventoryReservation, error)
	DeleteReservations(ctx context.Context, planID string) error
	InsertReservations(ctx context.Context, rows []models.InventoryReservation) error

	// AvailableQuantity сумма qty_available по партиям продукта с положительным остатком
	AvailableQuantity(ctx context.Context, productID string) (decimal.Decimal, error)
	// LockBatchesFEFO партии продукта с положительным остатком, заблокированные до конца транзакции,
	// по возрастанию срока годности, партии без срока последними
	LockBatchesFEFO(ctx context.Context, productID string) ([]models.Batch, error)
	SetBatchRemaining(ctx context.Context, batchID string, remaining decimal.Decimal) error
	InsertTransactions(ctx context.Context, rows []models.InventoryTransaction) error
}

// SortBatchesFEFO упорядочивает партии: раньше истекающие первыми, без срока годности в конце.
// При равных сроках порядок по дате создания и ID
func SortBatchesFEFO(batches []models.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// GormInventoryStore реализация InventoryStore поверх PostgreSQL
type GormInventoryStore struct {
	db *gorm.DB
}

// NewGormInventoryStore создает хранилище склада
func NewGormInventoryStore(db *gorm.DB) *GormInventoryStore {
	return &GormInventoryStore{db: db}
}

// WithinTx открывает транзакцию GORM, привязанную к ctx
func (s *GormInventoryStore) WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormInventoryTx{db: tx})
	})
}

type gormInventoryTx struct {
	db *gorm.DB
}

func (t *gormInventoryTx) PlanExists(ctx context.Context, planID string) (bool, error) {
	var plan models.ProductionPlan
	err := t.db.WithContext(ctx).Select("plan_id").First(&plan, "plan_id = ?", planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load plan: %w", err)
	}
	return true, nil
}

func (t *gormInventoryTx) ProductionItems(ctx context.Context, planID string) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	if err := t.db.WithContext(ctx).Where("plan_id = ?", planID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load production items: %w", err)
	}
	return items, nil
}

func (t *gormInventoryTx) RecipeItems(ctx context.Context, recipeIDs []string) ([]models.RecipeItem, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}
	var items []models.RecipeItem
	if err := t.db.WithContext(ctx).Where("recipe_id IN ?", recipeIDs).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load recipe items: %w", err)
	}
	return items, nil
}

func (t *gormInventoryTx) Reservations(ctx context.Context, planID string) ([]models.InventoryReservation, error) {
	var rows []models.InventoryReservation
	if err := t.db.WithContext(ctx).Where("plan_id = ?", planID).Order("product_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	return rows, nil
}

func (t *gormInventoryTx) DeleteReservations(ctx context.Context, planID string) error {
	if err := t.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&models.InventoryReservation{}).Error; err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	return nil
}

func (t *gormInventoryTx) InsertReservations(ctx context.Context, rows []models.InventoryReservation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert reservations: %w", err)
	}
	return nil
}

func (t *gormInventoryTx) AvailableQuantity(ctx context.Context, productID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := t.db.WithContext(ctx).Model(&models.Batch{}).
		Select("COALESCE(SUM(qty_available), 0)").
		Where("product_id = ? AND qty_available > 0", productID).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum available stock: %w", err)
	}
	return total, nil
}

func (t *gormInventoryTx) LockBatchesFEFO(ctx context.Context, productID string) ([]models.Batch, error) {
	var batches []models.Batch
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND qty_available > 0", productID).
		Order("expiry_date ASC NULLS LAST").
		Order("created_at ASC").
		Order("batch_id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}
	return batches, nil
}

func (t *gormInventoryTx) SetBatchRemaining(ctx context.Context, batchID string, remaining decimal.Decimal) error {
	res := t.db.WithContext(ctx).Model(&models.Batch{}).
		Where("batch_id = ?", batchID).
		Update("qty_available", remaining)
	if res.Error != nil {
		return fmt.Errorf("update batch %s: %w", batchID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("update batch %s: %d rows affected", batchID, res.RowsAffected)
	}
	return nil
}

func (t *gormInventoryTx) InsertTransactions(ctx context.Context, rows []models.InventoryTransaction) error {
	if len(rows) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).CreateInBatches(&rows, 500).Error; err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	return nil
}
