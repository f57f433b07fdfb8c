package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QtyScale знаков после запятой в колонках количеств numeric(14,4).
// Все количества, которые сервис сохраняет или возвращает, округлены до этой точности
const QtyScale = 4

// TransactionType тип движения остатков
type TransactionType string

const (
	TxnReceipt    TransactionType = "receipt"    // оприходование
	TxnIssue      TransactionType = "issue"      // списание в производство
	TxnShipment   TransactionType = "shipment"   // отгрузка
	TxnCount      TransactionType = "count"      // инвентаризация
	TxnAdjustment TransactionType = "adjustment" // корректировка
)

// Batch партия товара с отслеживанием срока годности
type Batch struct {
	ID           string          `json:"batch_id" gorm:"column:batch_id;type:uuid;primaryKey"`
	ProductID    string          `json:"product_id" gorm:"type:uuid;not null;index"`
	ExpiryDate   *time.Time      `json:"expiry_date" gorm:"index"` // NULL = без срока годности, списывается последней
	QtyAvailable decimal.Decimal `json:"qty_available" gorm:"type:numeric(14,4);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (Batch) TableName() string {
	return "batches"
}

// BeforeCreate генерирует UUID
func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// InventoryReservation мягкий резерв продукта под план. Пересоздается целиком при каждом резервировании
type InventoryReservation struct {
	ID          string          `json:"reservation_id" gorm:"column:reservation_id;type:uuid;primaryKey"`
	ProductID   string          `json:"product_id" gorm:"type:uuid;not null;index"`
	PlanID      string          `json:"plan_id" gorm:"type:uuid;not null;index"`
	QtyReserved decimal.Decimal `json:"qty_reserved" gorm:"type:numeric(14,4);not null"`
}

// TableName указывает имя таблицы
func (InventoryReservation) TableName() string {
	return "inventory_reservations"
}

// BeforeCreate генерирует UUID
func (r *InventoryReservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// InventoryTransaction движение остатков. Только добавление, записи не изменяются
type InventoryTransaction struct {
	ID        string          `json:"txn_id" gorm:"column:txn_id;type:uuid;primaryKey"`
	ProductID string          `json:"product_id" gorm:"type:uuid;not null;index"`
	BatchID   *string         `json:"batch_id" gorm:"type:uuid;index"` // NULL для движений без привязки к партии
	Type      TransactionType `json:"type" gorm:"type:varchar(20);not null;index"`
	Qty       decimal.Decimal `json:"qty" gorm:"type:numeric(14,4);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
}

// TableName указывает имя таблицы
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// BeforeCreate генерирует UUID
func (t *InventoryTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return nil
}
