package main

// Демо-данные: продукты, рецепты с вариантами диет, план на завтра и партии с разными сроками годности.
// go run ./scripts/seed

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ki3lbix/Kuchnia/internal/config"
	"github.com/ki3lbix/Kuchnia/internal/database"
	"github.com/ki3lbix/Kuchnia/internal/models"
	"github.com/ki3lbix/Kuchnia/internal/services"
)

type productSeed struct {
	name string
	unit string
}

type batchSeed struct {
	product string
	qty     string
	// expiresIn дней от сегодня, 0 = без срока годности
	expiresIn int
}

type recipeLineSeed struct {
	product     string
	dietVariant string
	qty         string
	lossPct     string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ config load failed")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Ошибка подключения к БД")
	}
	defer database.ClosePostgres(db)

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("❌ Migration failed")
	}

	products := map[string]*models.Product{}
	for _, p := range []productSeed{
		{"Макароны", "kg"},
		{"Говядина", "kg"},
		{"Морковь", "kg"},
		{"Тофу", "kg"},
		{"Молоко", "l"},
	} {
		product := &models.Product{Name: p.name, Unit: p.unit}
		if err := db.Where(models.Product{Name: p.name}).FirstOrCreate(product).Error; err != nil {
			log.Fatal().Err(err).Str("product", p.name).Msg("❌ Ошибка создания продукта")
		}
		products[p.name] = product
	}
	log.Info().Int("count", len(products)).Msg("✅ Продукты готовы")

	recipe := seedRecipe(db, "Болоньезе", products, []recipeLineSeed{
		{"Макароны", "standard", "0.2", "5"},
		{"Говядина", "standard", "0.15", "12"},
		{"Морковь", "standard", "0.03", "20"},
		{"Макароны", "vegan", "0.2", "5"},
		{"Тофу", "vegan", "0.12", "3"},
		{"Морковь", "vegan", "0.05", "20"},
	})

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var receipt []services.ReceiptLine
	for _, b := range []batchSeed{
		{"Макароны", "10", 0},
		{"Макароны", "4", 60},
		{"Говядина", "3", 2},
		{"Говядина", "5", 5},
		{"Морковь", "2.5", 7},
		{"Тофу", "1", 10},
		{"Молоко", "12", 3},
	} {
		line := services.ReceiptLine{ProductID: products[b.product].ID, Quantity: decimal.RequireFromString(b.qty)}
		if b.expiresIn > 0 {
			expiry := today.AddDate(0, 0, b.expiresIn)
			line.ExpiryDate = &expiry
		}
		receipt = append(receipt, line)
	}

	ctx := context.Background()
	if _, err := services.NewReceivingService(db).ImportReceipts(ctx, receipt); err != nil {
		log.Fatal().Err(err).Msg("❌ Ошибка оприходования партий")
	}

	production := services.NewProductionService(db)
	plan, err := production.CreatePlan(ctx, today.AddDate(0, 0, 1))
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Ошибка создания плана")
	}
	for variant, portions := range map[string]int{"standard": 40, "vegan": 8} {
		if _, err := production.AddItem(ctx, plan.ID, recipe.ID, variant, portions); err != nil {
			log.Fatal().Err(err).Str("diet_variant", variant).Msg("❌ Ошибка добавления позиции")
		}
	}

	log.Info().Str("plan_id", plan.ID).Msg("✅ Демо-план создан, можно вызывать /api/v1/inventory/reserve")
}

func seedRecipe(db *gorm.DB, name string, products map[string]*models.Product, lines []recipeLineSeed) *models.Recipe {
	recipe := &models.Recipe{Name: name}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Recipe{Name: name}).FirstOrCreate(recipe).Error; err != nil {
			return err
		}
		for _, l := range lines {
			item := models.RecipeItem{
				RecipeID:      recipe.ID,
				ProductID:     products[l.product].ID,
				DietVariant:   l.dietVariant,
				QtyPerPortion: decimal.RequireFromString(l.qty),
				LossPct:       decimal.RequireFromString(l.lossPct),
			}
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Str("recipe", name).Msg("❌ Ошибка создания рецепта")
	}
	log.Info().Str("recipe_id", recipe.ID).Int("lines", len(lines)).Msg("✅ Рецепт готов")
	return recipe
}
