package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func TestCalculateRequirements_SingleItemWithLoss(t *testing.T) {
	items := []models.ProductionItem{
		{PlanID: "plan", RecipeID: "spaghetti", DietVariant: "standard", Portions: 10},
	}
	recipeItems := []models.RecipeItem{
		{RecipeID: "spaghetti", ProductID: "pasta", DietVariant: "standard", QtyPerPortion: dec("0.2"), LossPct: dec("5")},
	}

	req := CalculateRequirements(items, recipeItems)

	require.Len(t, req, 1)
	assertDecimal(t, "2.1", req["pasta"])
}

func TestCalculateRequirements_SumsAcrossItemsAndVariants(t *testing.T) {
	items := []models.ProductionItem{
		{PlanID: "plan", RecipeID: "soup", DietVariant: "standard", Portions: 20},
		{PlanID: "plan", RecipeID: "soup", DietVariant: "vegan", Portions: 5},
		{PlanID: "plan", RecipeID: "salad", DietVariant: "standard", Portions: 4},
	}
	recipeItems := []models.RecipeItem{
		{RecipeID: "soup", ProductID: "carrot", DietVariant: "standard", QtyPerPortion: dec("0.1"), LossPct: dec("10")},
		{RecipeID: "soup", ProductID: "beef", DietVariant: "standard", QtyPerPortion: dec("0.15"), LossPct: dec("0")},
		{RecipeID: "soup", ProductID: "carrot", DietVariant: "vegan", QtyPerPortion: dec("0.2"), LossPct: dec("10")},
		{RecipeID: "salad", ProductID: "carrot", DietVariant: "standard", QtyPerPortion: dec("0.05"), LossPct: dec("20")},
	}

	req := CalculateRequirements(items, recipeItems)

	// carrot: 20*0.1*1.1 + 5*0.2*1.1 + 4*0.05*1.2 = 2.2 + 1.1 + 0.24
	assertDecimal(t, "3.54", req["carrot"])
	assertDecimal(t, "3", req["beef"])
	assert.Equal(t, []string{"beef", "carrot"}, req.ProductIDs())
}

func TestCalculateRequirements_UnmatchedDietVariantContributesNothing(t *testing.T) {
	items := []models.ProductionItem{
		{PlanID: "plan", RecipeID: "soup", DietVariant: "gluten-free", Portions: 30},
		{PlanID: "plan", RecipeID: "soup", DietVariant: "standard", Portions: 1},
	}
	recipeItems := []models.RecipeItem{
		{RecipeID: "soup", ProductID: "carrot", DietVariant: "standard", QtyPerPortion: dec("0.1"), LossPct: dec("0")},
	}

	req := CalculateRequirements(items, recipeItems)

	require.Len(t, req, 1)
	assertDecimal(t, "0.1", req["carrot"])
}

func TestCalculateRequirements_EmptyVariantMeansStandard(t *testing.T) {
	items := []models.ProductionItem{{PlanID: "plan", RecipeID: "soup", Portions: 2}}
	recipeItems := []models.RecipeItem{
		{RecipeID: "soup", ProductID: "carrot", DietVariant: "standard", QtyPerPortion: dec("0.5"), LossPct: dec("0")},
	}

	req := CalculateRequirements(items, recipeItems)

	assertDecimal(t, "1", req["carrot"])
}

func TestCalculateRequirements_ZeroPortionsYieldZero(t *testing.T) {
	items := []models.ProductionItem{{PlanID: "plan", RecipeID: "soup", DietVariant: "standard", Portions: 0}}
	recipeItems := []models.RecipeItem{
		{RecipeID: "soup", ProductID: "carrot", DietVariant: "standard", QtyPerPortion: dec("0.5"), LossPct: dec("15")},
	}

	req := CalculateRequirements(items, recipeItems)

	assert.True(t, req["carrot"].IsZero())
}

func TestCalculateRequirements_IsReproducible(t *testing.T) {
	items := []models.ProductionItem{
		{PlanID: "plan", RecipeID: "a", DietVariant: "standard", Portions: 7},
		{PlanID: "plan", RecipeID: "b", DietVariant: "standard", Portions: 3},
	}
	recipeItems := []models.RecipeItem{
		{RecipeID: "a", ProductID: "x", DietVariant: "standard", QtyPerPortion: dec("0.333"), LossPct: dec("12.5")},
		{RecipeID: "b", ProductID: "x", DietVariant: "standard", QtyPerPortion: dec("1.1"), LossPct: dec("3")},
	}

	first := CalculateRequirements(items, recipeItems)
	second := CalculateRequirements(items, recipeItems)

	require.Equal(t, first.ProductIDs(), second.ProductIDs())
	for _, id := range first.ProductIDs() {
		assert.True(t, first[id].Equal(second[id]))
	}
	// 7*0.333*1.125 + 3*1.1*1.03 = 2.6223750 + 3.399 = 6.021375
	assertDecimal(t, "6.0214", first["x"])
}

func TestCalculateRequirements_RoundsToStoredScale(t *testing.T) {
	items := []models.ProductionItem{
		{PlanID: "plan", RecipeID: "sauce", DietVariant: "standard", Portions: 1},
		{PlanID: "plan", RecipeID: "dip", DietVariant: "standard", Portions: 1},
	}
	recipeItems := []models.RecipeItem{
		{RecipeID: "sauce", ProductID: "saffron", DietVariant: "standard", QtyPerPortion: dec("0.0333"), LossPct: dec("12.5")},
		// 0.00004 + 0.00004 сначала складываются, потом округляются
		{RecipeID: "sauce", ProductID: "salt", DietVariant: "standard", QtyPerPortion: dec("0.00004"), LossPct: dec("0")},
		{RecipeID: "dip", ProductID: "salt", DietVariant: "standard", QtyPerPortion: dec("0.00004"), LossPct: dec("0")},
	}

	req := CalculateRequirements(items, recipeItems)

	// 0.0333 * 1.125 = 0.0374625
	assertDecimal(t, "0.0375", req["saffron"])
	assertDecimal(t, "0.0001", req["salt"])
	for id, qty := range req {
		assert.LessOrEqual(t, -qty.Exponent(), int32(models.QtyScale), id)
	}
}

func TestRecipeIDsOf_Deduplicates(t *testing.T) {
	items := []models.ProductionItem{
		{RecipeID: "b", DietVariant: "standard"},
		{RecipeID: "a", DietVariant: "standard"},
		{RecipeID: "b", DietVariant: "vegan"},
	}

	assert.Equal(t, []string{"a", "b"}, recipeIDsOf(items))
}
