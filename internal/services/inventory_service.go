package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

// ReservedLine зарезервированное количество продукта
type ReservedLine struct {
	ProductID string          `json:"product_id"`
	Qty       decimal.Decimal `json:"qty"`
}

// ShortageLine нехватка продукта относительно потребности
type ShortageLine struct {
	ProductID  string          `json:"product_id"`
	MissingQty decimal.Decimal `json:"missing_qty"`
}

// ReserveResult результат резервирования по плану
type ReserveResult struct {
	PlanID    string         `json:"plan_id"`
	Reserved  []ReservedLine `json:"reserved"`
	Shortages []ShortageLine `json:"shortages"`
}

// ConsumptionTxn одно списание из конкретной партии
type ConsumptionTxn struct {
	TxnID     string          `json:"txn_id"`
	ProductID string          `json:"product_id"`
	BatchID   string          `json:"batch_id"`
	Qty       decimal.Decimal `json:"qty"`
}

// ConsumeResult результат списания по плану
type ConsumeResult struct {
	PlanID       string           `json:"plan_id"`
	Transactions []ConsumptionTxn `json:"transactions"`
}

// InventoryService резервирует остатки под план производства и списывает их по FEFO
type InventoryService struct {
	store  InventoryStore
	events EventPublisher
	now    func() time.Time
	newID  func() string
}

// NewInventoryService создает сервис распределения остатков
func NewInventoryService(store InventoryStore) *InventoryService {
	return &InventoryService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// SetEventPublisher подключает доставку событий после коммита
func (s *InventoryService) SetEventPublisher(p EventPublisher) {
	s.events = p
}

// Requirements считает потребность плана в сырье без изменения данных
func (s *InventoryService) Requirements(ctx context.Context, planID string) (Requirements, error) {
	var req Requirements
	err := s.store.WithinTx(ctx, func(tx InventoryTx) error {
		var err error
		req, err = s.loadRequirements(ctx, tx, planID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Reservations возвращает текущие резервы плана
func (s *InventoryService) Reservations(ctx context.Context, planID string) ([]models.InventoryReservation, error) {
	var rows []models.InventoryReservation
	err := s.store.WithinTx(ctx, func(tx InventoryTx) error {
		if err := ensurePlan(ctx, tx, planID); err != nil {
			return err
		}
		var err error
		rows, err = tx.Reservations(ctx, planID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Reserve пересоздает резервы плана: прежние резервы удаляются, на каждый продукт
// резервируется min(доступно, требуется). Нехватка не ошибка, а строка в Shortages
func (s *InventoryService) Reserve(ctx context.Context, planID string) (*ReserveResult, error) {
	result := &ReserveResult{
		PlanID:    planID,
		Reserved:  []ReservedLine{},
		Shortages: []ShortageLine{},
	}

	err := s.store.WithinTx(ctx, func(tx InventoryTx) error {
		req, err := s.loadRequirements(ctx, tx, planID)
		if err != nil {
			return err
		}

		// Прежний запуск заменяется целиком
		if err := tx.DeleteReservations(ctx, planID); err != nil {
			return err
		}

		rows := make([]models.InventoryReservation, 0, len(req))
		for _, productID := range req.ProductIDs() {
			if err := ctx.Err(); err != nil {
				return err
			}
			required := req[productID]

			available, err := tx.AvailableQuantity(ctx, productID)
			if err != nil {
				return err
			}

			reserveQty := decimal.Min(available, required)
			if reserveQty.IsPositive() {
				rows = append(rows, models.InventoryReservation{
					ID:          s.newID(),
					ProductID:   productID,
					PlanID:      planID,
					QtyReserved: reserveQty,
				})
				result.Reserved = append(result.Reserved, ReservedLine{ProductID: productID, Qty: reserveQty})
			}
			if available.LessThan(required) {
				result.Shortages = append(result.Shortages, ShortageLine{
					ProductID:  productID,
					MissingQty: required.Sub(available),
				})
			}
		}

		return tx.InsertReservations(ctx, rows)
	})
	if err != nil {
		log.Error().Err(err).Str("plan_id", planID).Msg("❌ Reserve failed, transaction rolled back")
		return nil, fmt.Errorf("reserve plan %s: %w", planID, err)
	}

	log.Info().
		Str("plan_id", planID).
		Int("reserved", len(result.Reserved)).
		Int("shortages", len(result.Shortages)).
		Msg("✅ Reserve committed")

	s.publish(ctx, AllocationEvent{
		Type:      EventReserved,
		PlanID:    planID,
		Reserved:  result.Reserved,
		Shortages: result.Shortages,
	})
	return result, nil
}

// Consume списывает остатки под план по FEFO. Цель на продукт берется из резерва, если он есть,
// иначе из рассчитанной потребности. Нехватка любого продукта откатывает весь запуск
func (s *InventoryService) Consume(ctx context.Context, planID string) (*ConsumeResult, error) {
	result := &ConsumeResult{
		PlanID:       planID,
		Transactions: []ConsumptionTxn{},
	}

	err := s.store.WithinTx(ctx, func(tx InventoryTx) error {
		req, err := s.loadRequirements(ctx, tx, planID)
		if err != nil {
			return err
		}

		reservations, err := tx.Reservations(ctx, planID)
		if err != nil {
			return err
		}
		reservedByProduct := make(map[string]decimal.Decimal, len(reservations))
		for _, r := range reservations {
			reservedByProduct[r.ProductID] = r.QtyReserved
		}

		now := s.now()
		var txns []models.InventoryTransaction

		for _, productID := range req.ProductIDs() {
			if err := ctx.Err(); err != nil {
				return err
			}

			target, ok := reservedByProduct[productID]
			if !ok {
				target = req[productID]
			}
			if !target.IsPositive() {
				continue
			}

			batches, err := tx.LockBatchesFEFO(ctx, productID)
			if err != nil {
				return err
			}
			SortBatchesFEFO(batches)

			remaining := target
			for _, b := range batches {
				if !remaining.IsPositive() {
					break
				}
				take := decimal.Min(b.QtyAvailable, remaining)
				if !take.IsPositive() {
					continue
				}

				if err := tx.SetBatchRemaining(ctx, b.ID, b.QtyAvailable.Sub(take)); err != nil {
					return err
				}

				batchID := b.ID
				txn := models.InventoryTransaction{
					ID:        s.newID(),
					ProductID: productID,
					BatchID:   &batchID,
					Type:      models.TxnIssue,
					Qty:       take,
					CreatedAt: now,
				}
				txns = append(txns, txn)
				result.Transactions = append(result.Transactions, ConsumptionTxn{
					TxnID:     txn.ID,
					ProductID: productID,
					BatchID:   batchID,
					Qty:       take,
				})
				remaining = remaining.Sub(take)
			}

			if remaining.IsPositive() {
				return &InsufficientStockError{ProductID: productID, Missing: remaining}
			}
		}

		if err := tx.InsertTransactions(ctx, txns); err != nil {
			return err
		}
		// Резервы израсходованы
		return tx.DeleteReservations(ctx, planID)
	})
	if err != nil {
		log.Error().Err(err).Str("plan_id", planID).Msg("❌ Consume failed, transaction rolled back")
		return nil, fmt.Errorf("consume plan %s: %w", planID, err)
	}

	log.Info().
		Str("plan_id", planID).
		Int("transactions", len(result.Transactions)).
		Msg("✅ Consume committed")

	s.publish(ctx, AllocationEvent{
		Type:         EventConsumed,
		PlanID:       planID,
		Transactions: result.Transactions,
	})
	return result, nil
}

func (s *InventoryService) loadRequirements(ctx context.Context, tx InventoryTx, planID string) (Requirements, error) {
	if err := ensurePlan(ctx, tx, planID); err != nil {
		return nil, err
	}
	items, err := tx.ProductionItems(ctx, planID)
	if err != nil {
		return nil, err
	}
	recipeItems, err := tx.RecipeItems(ctx, recipeIDsOf(items))
	if err != nil {
		return nil, err
	}
	return CalculateRequirements(items, recipeItems), nil
}

func ensurePlan(ctx context.Context, tx InventoryTx, planID string) error {
	exists, err := tx.PlanExists(ctx, planID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrPlanNotFound
	}
	return nil
}

// publish не влияет на уже закоммиченный результат, ошибки только логируются
func (s *InventoryService) publish(ctx context.Context, event AllocationEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Warn().Err(err).Str("plan_id", event.PlanID).Str("type", event.Type).Msg("⚠️ allocation event not delivered")
	}
}
