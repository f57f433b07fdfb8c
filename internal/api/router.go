package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Pinger зависимость, которую проверяет /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc адаптер функции к Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Routes все контроллеры HTTP API. Nil поля не регистрируются
type Routes struct {
	Inventory  *InventoryController
	Production *ProductionController
	Hub        *Hub
	// Health имя зависимости -> проверка
	Health map[string]Pinger
}

// NewRouter собирает gin движок со всеми маршрутами /api/v1
func NewRouter(routes Routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	apiGroup := r.Group("/api/v1")
	apiGroup.GET("/health", healthHandler(routes.Health))

	if routes.Inventory != nil {
		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.POST("/reserve", routes.Inventory.Reserve)
			inventoryGroup.POST("/consume", routes.Inventory.Consume)
			inventoryGroup.GET("/plans/:id/requirements", routes.Inventory.GetRequirements)
			inventoryGroup.GET("/plans/:id/reservations", routes.Inventory.GetReservations)
			inventoryGroup.POST("/receipts/import", routes.Inventory.ImportReceipts)
		}
	}

	if routes.Production != nil {
		productionGroup := apiGroup.Group("/production")
		{
			productionGroup.POST("/plan", routes.Production.CreatePlan)
			productionGroup.POST("/plan/:id/item", routes.Production.AddItem)
			productionGroup.GET("/plan/:id", routes.Production.GetPlan)
		}
	}

	if routes.Hub != nil {
		apiGroup.GET("/ws/inventory", routes.Hub.ServeWS)
	}

	return r
}

// requestLogger логирование всех запросов
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("🌐 request")
	}
}

func healthHandler(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		statuses := make(map[string]string, len(checks))
		healthy := true
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				statuses[name] = err.Error()
				healthy = false
				continue
			}
			statuses[name] = "ok"
		}

		code, overall := http.StatusOK, "ok"
		if !healthy {
			code, overall = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(code, gin.H{
			"status":  overall,
			"service": "kuchnia inventory",
			"checks":  statuses,
		})
	}
}
