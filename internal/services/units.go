package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

var unitAliases = map[string]string{
	"кг": "kg", "kg": "kg", "килограмм": "kg", "килограммов": "kg", "килограмма": "kg",
	"г": "g", "g": "g", "гр": "g", "грамм": "g", "граммов": "g", "грамма": "g",
	"л": "l", "l": "l", "литр": "l", "литров": "l", "литра": "l",
	"мл": "ml", "ml": "ml", "миллилитр": "ml", "миллилитров": "ml", "миллилитра": "ml",
	"шт": "pcs", "pcs": "pcs", "штук": "pcs", "штука": "pcs",
}

// NormalizeUnit приводит единицу к kg, g, l, ml или pcs. Неизвестная единица возвращается в нижнем регистре
func NormalizeUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(unit), ".")))
	if n, ok := unitAliases[unit]; ok {
		return n
	}
	return unit
}

// ConvertQuantity переводит количество между единицами одной размерности.
// Масса и объем между собой не конвертируются: плотность продукта неизвестна
func ConvertQuantity(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = NormalizeUnit(from), NormalizeUnit(to)
	if from == to {
		return qty, nil
	}

	switch {
	case from == "g" && to == "kg", from == "ml" && to == "l":
		return qty.Div(thousand), nil
	case from == "kg" && to == "g", from == "l" && to == "ml":
		return qty.Mul(thousand), nil
	}
	return decimal.Zero, fmt.Errorf("неподдерживаемая конвертация: %s -> %s", from, to)
}
