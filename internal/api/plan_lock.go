package api

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ki3lbix/Kuchnia/internal/services"
	"github.com/ki3lbix/Kuchnia/internal/utils"
)

// PlanLocker распределенная блокировка (Redis)
type PlanLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// PlanGuard не дает двум запускам Reserve/Consume по одному плану идти одновременно.
// Nil guard или guard без locker пропускает все запуски, корректность тогда держит только БД
type PlanGuard struct {
	locker PlanLocker
	ttl    time.Duration
}

// NewPlanGuard создает guard поверх locker
func NewPlanGuard(locker PlanLocker, ttl time.Duration) *PlanGuard {
	return &PlanGuard{locker: locker, ttl: ttl}
}

// Run выполняет fn под блокировкой плана. Занятый план возвращает services.ErrPlanBusy
func (g *PlanGuard) Run(ctx context.Context, planID string, fn func(ctx context.Context) error) error {
	if g == nil || g.locker == nil {
		return fn(ctx)
	}

	key := utils.PlanLockKey(planID)
	token, ok, err := g.locker.AcquireLock(ctx, key, g.ttl)
	if err != nil {
		// Redis недоступен: не блокируем работу кухни, транзакция в БД все равно атомарна
		log.Warn().Err(err).Str("plan_id", planID).Msg("⚠️ plan lock unavailable, running without it")
		return fn(ctx)
	}
	if !ok {
		return services.ErrPlanBusy
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := g.locker.ReleaseLock(releaseCtx, key, token); err != nil {
			if errors.Is(err, utils.ErrLockNotHeld) {
				log.Warn().Str("plan_id", planID).Dur("ttl", g.ttl).Msg("⚠️ plan lock expired before the run finished")
				return
			}
			log.Warn().Err(err).Str("plan_id", planID).Msg("⚠️ failed to release plan lock")
		}
	}()

	return fn(ctx)
}
