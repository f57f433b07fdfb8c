package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

// ProductionPlanner ведение планов производства
type ProductionPlanner interface {
	CreatePlan(ctx context.Context, planDate time.Time) (*models.ProductionPlan, error)
	AddItem(ctx context.Context, planID, recipeID, dietVariant string, portions int) (*models.ProductionItem, error)
	GetPlan(ctx context.Context, planID string) (*models.ProductionPlan, error)
}

// ProductionController управляет API endpoints для планов производства
type ProductionController struct {
	planner ProductionPlanner
}

// NewProductionController создает контроллер планов
func NewProductionController(planner ProductionPlanner) *ProductionController {
	return &ProductionController{planner: planner}
}

// CreatePlan создает план на дату
// POST /api/v1/production/plan
func (pc *ProductionController) CreatePlan(c *gin.Context) {
	var request struct {
		PlanDate string `json:"plan_date" binding:"required"` // YYYY-MM-DD
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	planDate, err := time.Parse("2006-01-02", request.PlanDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверный формат plan_date, ожидается YYYY-MM-DD",
			"details": err.Error(),
		})
		return
	}

	plan, err := pc.planner.CreatePlan(c.Request.Context(), planDate)
	if err != nil {
		respondError(c, "Ошибка создания плана", err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// AddItem добавляет позицию в план
// POST /api/v1/production/plan/:id/item
func (pc *ProductionController) AddItem(c *gin.Context) {
	planID, ok := planIDParam(c)
	if !ok {
		return
	}

	var request struct {
		RecipeID    string `json:"recipe_id" binding:"required"`
		Portions    *int   `json:"portions" binding:"required"`
		DietVariant string `json:"diet_variant"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}
	if _, err := uuid.Parse(request.RecipeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверный recipe_id",
			"details": err.Error(),
		})
		return
	}

	item, err := pc.planner.AddItem(c.Request.Context(), planID, request.RecipeID, request.DietVariant, *request.Portions)
	if err != nil {
		respondError(c, "Ошибка добавления позиции", err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetPlan план с позициями
// GET /api/v1/production/plan/:id
func (pc *ProductionController) GetPlan(c *gin.Context) {
	planID, ok := planIDParam(c)
	if !ok {
		return
	}

	plan, err := pc.planner.GetPlan(c.Request.Context(), planID)
	if err != nil {
		respondError(c, "Ошибка получения плана", err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
