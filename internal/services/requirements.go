package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Requirements потребность плана в сырье: product_id -> количество
type Requirements map[string]decimal.Decimal

// ProductIDs возвращает отсортированные ID продуктов, чтобы обход был детерминированным
func (r Requirements) ProductIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type recipeVariantKey struct {
	recipeID    string
	dietVariant string
}

// CalculateRequirements сворачивает позиции плана и строки рецептур в потребность по продуктам.
//
// Каждая позиция плана сопоставляется со строками рецептуры с тем же recipe_id и diet_variant,
// вклад строки = portions * qty_per_portion * (1 + loss_pct/100). Позиция, для варианта которой
// нет строк рецептуры, ничего не добавляет. Итог по продукту округляется до models.QtyScale,
// чтобы резерв и списание оперировали тем же числом, что ляжет в БД.
func CalculateRequirements(items []models.ProductionItem, recipeItems []models.RecipeItem) Requirements {
	byVariant := make(map[recipeVariantKey][]models.RecipeItem, len(recipeItems))
	for _, ri := range recipeItems {
		key := recipeVariantKey{recipeID: ri.RecipeID, dietVariant: dietVariantOrDefault(ri.DietVariant)}
		byVariant[key] = append(byVariant[key], ri)
	}

	req := make(Requirements)
	for _, item := range items {
		key := recipeVariantKey{recipeID: item.RecipeID, dietVariant: dietVariantOrDefault(item.DietVariant)}
		portions := decimal.NewFromInt(int64(item.Portions))
		for _, ri := range byVariant[key] {
			lossFactor := decimal.NewFromInt(1).Add(ri.LossPct.Div(hundred))
			qty := portions.Mul(ri.QtyPerPortion).Mul(lossFactor)
			req[ri.ProductID] = req[ri.ProductID].Add(qty)
		}
	}
	for productID, qty := range req {
		req[productID] = qty.Round(models.QtyScale)
	}
	return req
}

// recipeIDsOf собирает уникальные recipe_id позиций плана
func recipeIDsOf(items []models.ProductionItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.RecipeID]; ok {
			continue
		}
		seen[item.RecipeID] = struct{}{}
		ids = append(ids, item.RecipeID)
	}
	sort.Strings(ids)
	return ids
}

func dietVariantOrDefault(v string) string {
	if v == "" {
		return models.DefaultDietVariant
	}
	return v
}
