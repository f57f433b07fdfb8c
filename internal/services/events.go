package services

import (
	"context"
	"errors"
	"time"
)

// Типы событий распределения остатков
const (
	EventReserved = "inventory.reserved"
	EventConsumed = "inventory.consumed"
)

// AllocationEvent публикуется после успешного коммита резервирования или списания
type AllocationEvent struct {
	Type         string           `json:"type"`
	PlanID       string           `json:"plan_id"`
	OccurredAt   time.Time        `json:"occurred_at"`
	Reserved     []ReservedLine   `json:"reserved,omitempty"`
	Shortages    []ShortageLine   `json:"shortages,omitempty"`
	Transactions []ConsumptionTxn `json:"transactions,omitempty"`
}

// EventPublisher доставляет события подписчикам (Kafka, WebSocket)
type EventPublisher interface {
	Publish(ctx context.Context, event AllocationEvent) error
}

// MultiPublisher рассылает событие всем publisher'ам и собирает ошибки
type MultiPublisher []EventPublisher

// Publish вызывает каждый publisher, даже если предыдущий вернул ошибку
func (m MultiPublisher) Publish(ctx context.Context, event AllocationEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
