package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrPlanNotFound план производства с таким ID не существует
	ErrPlanNotFound = errors.New("production plan not found")
	// ErrInsufficientStock остатков не хватает для списания по плану
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPlanBusy по плану уже выполняется резервирование или списание
	ErrPlanBusy = errors.New("plan is being processed")
)

// InsufficientStockError сообщает, какого продукта не хватило и сколько
type InsufficientStockError struct {
	ProductID string
	Missing   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: missing %s", e.ProductID, e.Missing.String())
}

// Is позволяет проверять через errors.Is(err, ErrInsufficientStock)
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
