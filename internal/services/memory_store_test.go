package services

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

// ── In-memory InventoryStore stub ────────────────────────────────────────────
// Снимок состояния делается на входе в транзакцию и восстанавливается при ошибке.

var errInjected = errors.New("injected persistence failure")

type memoryState struct {
	plans           map[string]models.ProductionPlan
	productionItems []models.ProductionItem
	recipeItems     []models.RecipeItem
	batches         []models.Batch
	reservations    []models.InventoryReservation
	transactions    []models.InventoryTransaction
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		plans:           make(map[string]models.ProductionPlan, len(s.plans)),
		productionItems: append([]models.ProductionItem(nil), s.productionItems...),
		recipeItems:     append([]models.RecipeItem(nil), s.recipeItems...),
		batches:         append([]models.Batch(nil), s.batches...),
		reservations:    append([]models.InventoryReservation(nil), s.reservations...),
		transactions:    append([]models.InventoryTransaction(nil), s.transactions...),
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	return c
}

type memoryStore struct {
	mu    sync.Mutex
	state memoryState

	// failOn имя операции, которая вернет errInjected
	failOn string
	// failAfter сколько успешных вызовов failOn пропустить перед ошибкой
	failAfter int
	calls     map[string]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		state: memoryState{plans: make(map[string]models.ProductionPlan)},
		calls: make(map[string]int),
	}
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := m.state.clone()
	if err := fn(&memoryTx{store: m}); err != nil {
		m.state = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// snapshot копия состояния для сравнения до и после вызова
func (m *memoryStore) snapshot() memoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memoryStore) batch(id string) models.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.state.batches {
		if b.ID == id {
			return b
		}
	}
	return models.Batch{}
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.store
	if s.failOn == op {
		s.calls[op]++
		if s.calls[op] > s.failAfter {
			return errInjected
		}
	}
	return nil
}

func (t *memoryTx) PlanExists(ctx context.Context, planID string) (bool, error) {
	if err := t.check(ctx, "PlanExists"); err != nil {
		return false, err
	}
	_, ok := t.store.state.plans[planID]
	return ok, nil
}

func (t *memoryTx) ProductionItems(ctx context.Context, planID string) ([]models.ProductionItem, error) {
	if err := t.check(ctx, "ProductionItems"); err != nil {
		return nil, err
	}
	var out []models.ProductionItem
	for _, pi := range t.store.state.productionItems {
		if pi.PlanID == planID {
			out = append(out, pi)
		}
	}
	return out, nil
}

func (t *memoryTx) RecipeItems(ctx context.Context, recipeIDs []string) ([]models.RecipeItem, error) {
	if err := t.check(ctx, "RecipeItems"); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(recipeIDs))
	for _, id := range recipeIDs {
		wanted[id] = true
	}
	var out []models.RecipeItem
	for _, ri := range t.store.state.recipeItems {
		if wanted[ri.RecipeID] {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (t *memoryTx) Reservations(ctx context.Context, planID string) ([]models.InventoryReservation, error) {
	if err := t.check(ctx, "Reservations"); err != nil {
		return nil, err
	}
	var out []models.InventoryReservation
	for _, r := range t.store.state.reservations {
		if r.PlanID == planID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memoryTx) DeleteReservations(ctx context.Context, planID string) error {
	if err := t.check(ctx, "DeleteReservations"); err != nil {
		return err
	}
	kept := t.store.state.reservations[:0:0]
	for _, r := range t.store.state.reservations {
		if r.PlanID != planID {
			kept = append(kept, r)
		}
	}
	t.store.state.reservations = kept
	return nil
}

func (t *memoryTx) InsertReservations(ctx context.Context, rows []models.InventoryReservation) error {
	if err := t.check(ctx, "InsertReservations"); err != nil {
		return err
	}
	t.store.state.reservations = append(t.store.state.reservations, rows...)
	return nil
}

func (t *memoryTx) AvailableQuantity(ctx context.Context, productID string) (decimal.Decimal, error) {
	if err := t.check(ctx, "AvailableQuantity"); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range t.store.state.batches {
		if b.ProductID == productID && b.QtyAvailable.IsPositive() {
			total = total.Add(b.QtyAvailable)
		}
	}
	return total, nil
}

// LockBatchesFEFO отдает партии в порядке вставки: сортировка остается на сервисе
func (t *memoryTx) LockBatchesFEFO(ctx context.Context, productID string) ([]models.Batch, error) {
	if err := t.check(ctx, "LockBatchesFEFO"); err != nil {
		return nil, err
	}
	var out []models.Batch
	for _, b := range t.store.state.batches {
		if b.ProductID == productID && b.QtyAvailable.IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memoryTx) SetBatchRemaining(ctx context.Context, batchID string, remaining decimal.Decimal) error {
	if err := t.check(ctx, "SetBatchRemaining"); err != nil {
		return err
	}
	if remaining.IsNegative() {
		return errors.New("qty_available would go negative")
	}
	for i := range t.store.state.batches {
		if t.store.state.batches[i].ID == batchID {
			t.store.state.batches[i].QtyAvailable = remaining
			return nil
		}
	}
	return errors.New("batch not found")
}

func (t *memoryTx) InsertTransactions(ctx context.Context, rows []models.InventoryTransaction) error {
	if err := t.check(ctx, "InsertTransactions"); err != nil {
		return err
	}
	t.store.state.transactions = append(t.store.state.transactions, rows...)
	return nil
}
