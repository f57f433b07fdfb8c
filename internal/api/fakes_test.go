package api

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ki3lbix/Kuchnia/internal/models"
	"github.com/ki3lbix/Kuchnia/internal/services"
)

const (
	testPlanID    = "0d7e0f52-7c1a-4c59-9b7e-3a1f5a0c0001"
	testProductID = "0d7e0f52-7c1a-4c59-9b7e-3a1f5a0c000a"
	testRecipeID  = "0d7e0f52-7c1a-4c59-9b7e-3a1f5a0c0002"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEngine struct {
	reserveErr error
	consumeErr error
	calls      []string
}

func (f *fakeEngine) Reserve(ctx context.Context, planID string) (*services.ReserveResult, error) {
	f.calls = append(f.calls, "Reserve:"+planID)
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	return &services.ReserveResult{
		PlanID:    planID,
		Reserved:  []services.ReservedLine{{ProductID: testProductID, Qty: decimal.RequireFromString("1.5")}},
		Shortages: []services.ShortageLine{{ProductID: testProductID, MissingQty: decimal.RequireFromString("0.6")}},
	}, nil
}

func (f *fakeEngine) Consume(ctx context.Context, planID string) (*services.ConsumeResult, error) {
	f.calls = append(f.calls, "Consume:"+planID)
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	return &services.ConsumeResult{
		PlanID: planID,
		Transactions: []services.ConsumptionTxn{
			{TxnID: "t1", ProductID: testProductID, BatchID: "b1", Qty: decimal.RequireFromString("1.0")},
			{TxnID: "t2", ProductID: testProductID, BatchID: "b2", Qty: decimal.RequireFromString("1.1")},
		},
	}, nil
}

func (f *fakeEngine) Requirements(ctx context.Context, planID string) (services.Requirements, error) {
	if planID != testPlanID {
		return nil, services.ErrPlanNotFound
	}
	return services.Requirements{testProductID: decimal.RequireFromString("2.1")}, nil
}

func (f *fakeEngine) Reservations(ctx context.Context, planID string) ([]models.InventoryReservation, error) {
	if planID != testPlanID {
		return nil, services.ErrPlanNotFound
	}
	return nil, nil
}

type fakeImporter struct {
	lines []services.ReceiptLine
	err   error
}

func (f *fakeImporter) ImportReceipts(ctx context.Context, lines []services.ReceiptLine) ([]string, error) {
	f.lines = lines
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, len(lines))
	for i := range lines {
		ids[i] = "batch-" + string(rune('a'+i))
	}
	return ids, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, busy := l.held[key]; busy {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	l.released = append(l.released, key)
	return nil
}

type fakePlanner struct {
	plans map[string]*models.ProductionPlan
}

func (f *fakePlanner) CreatePlan(ctx context.Context, planDate time.Time) (*models.ProductionPlan, error) {
	plan := &models.ProductionPlan{ID: testPlanID, PlanDate: planDate, Status: models.PlanStatusPlanned}
	f.plans[plan.ID] = plan
	return plan, nil
}

func (f *fakePlanner) AddItem(ctx context.Context, planID, recipeID, dietVariant string, portions int) (*models.ProductionItem, error) {
	plan, ok := f.plans[planID]
	if !ok {
		return nil, services.ErrPlanNotFound
	}
	if portions < 0 {
		return nil, services.ErrInvalidPortions
	}
	if dietVariant == "" {
		dietVariant = models.DefaultDietVariant
	}
	item := models.ProductionItem{PlanID: planID, RecipeID: recipeID, DietVariant: dietVariant, Portions: portions}
	plan.Items = append(plan.Items, item)
	return &item, nil
}

func (f *fakePlanner) GetPlan(ctx context.Context, planID string) (*models.ProductionPlan, error) {
	plan, ok := f.plans[planID]
	if !ok {
		return nil, services.ErrPlanNotFound
	}
	return plan, nil
}
