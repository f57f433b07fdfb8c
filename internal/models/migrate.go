package models

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AutoMigrate создает таблицы склада и производства, затем накладывает CHECK ограничения,
// которые GORM не умеет выражать тегами
func AutoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"Product", &Product{}},
		{"Recipe", &Recipe{}},
		{"RecipeItem", &RecipeItem{}},
		{"ProductionPlan", &ProductionPlan{}},
		{"ProductionItem", &ProductionItem{}},
		{"Batch", &Batch{}},
		{"InventoryReservation", &InventoryReservation{}},
		{"InventoryTransaction", &InventoryTransaction{}},
	}

	for _, t := range tables {
		if err := db.AutoMigrate(t.model); err != nil {
			log.Error().Err(err).Str("table", t.name).Msg("❌ AutoMigrate failed")
			return fmt.Errorf("AutoMigrate %s: %w", t.name, err)
		}
		log.Debug().Str("table", t.name).Msg("✅ table migrated")
	}

	return applyCheckConstraints(db)
}

// applyCheckConstraints идемпотентно добавляет ограничения на неотрицательность количеств
func applyCheckConstraints(db *gorm.DB) error {
	checks := []struct{ table, name, expr string }{
		{"batches", "chk_batches_qty_available", "qty_available >= 0"},
		{"recipe_items", "chk_recipe_items_qty_per_portion", "qty_per_portion >= 0"},
		{"recipe_items", "chk_recipe_items_loss_pct", "loss_pct >= 0 AND loss_pct <= 100"},
		{"production_items", "chk_production_items_portions", "portions >= 0"},
		{"inventory_reservations", "chk_inventory_reservations_qty", "qty_reserved > 0"},
	}

	for _, c := range checks {
		sql := fmt.Sprintf(`
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
    ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
  END IF;
END $$`, c.name, c.table, c.name, c.expr)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("check constraint %q: %w", c.name, err)
		}
	}
	return nil
}
