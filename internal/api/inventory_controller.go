package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ki3lbix/Kuchnia/internal/models"
	"github.com/ki3lbix/Kuchnia/internal/services"
)

// InventoryEngine резервирование и списание по плану
type InventoryEngine interface {
	Reserve(ctx context.Context, planID string) (*services.ReserveResult, error)
	Consume(ctx context.Context, planID string) (*services.ConsumeResult, error)
	Requirements(ctx context.Context, planID string) (services.Requirements, error)
	Reservations(ctx context.Context, planID string) ([]models.InventoryReservation, error)
}

// ReceiptImporter оприходование строк накладной
type ReceiptImporter interface {
	ImportReceipts(ctx context.Context, lines []services.ReceiptLine) ([]string, error)
}

// InventoryController управляет API endpoints для распределения остатков
type InventoryController struct {
	engine   InventoryEngine
	receipts ReceiptImporter
	guard    *PlanGuard
}

// NewInventoryController создает контроллер. guard может быть nil
func NewInventoryController(engine InventoryEngine, receipts ReceiptImporter, guard *PlanGuard) *InventoryController {
	return &InventoryController{
		engine:   engine,
		receipts: receipts,
		guard:    guard,
	}
}

type planRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

func bindPlanID(c *gin.Context) (string, bool) {
	var request planRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return "", false
	}
	if _, err := uuid.Parse(request.PlanID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверный plan_id",
			"details": err.Error(),
		})
		return "", false
	}
	return request.PlanID, true
}

func planIDParam(c *gin.Context) (string, bool) {
	planID := c.Param("id")
	if _, err := uuid.Parse(planID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверный ID плана",
			"details": err.Error(),
		})
		return "", false
	}
	return planID, true
}

func respondError(c *gin.Context, message string, err error) {
	c.JSON(httpStatusFor(err), gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// Reserve пересоздает резервы плана
// POST /api/v1/inventory/reserve
func (ic *InventoryController) Reserve(c *gin.Context) {
	planID, ok := bindPlanID(c)
	if !ok {
		return
	}

	var result *services.ReserveResult
	err := ic.guard.Run(c.Request.Context(), planID, func(ctx context.Context) error {
		var err error
		result, err = ic.engine.Reserve(ctx, planID)
		return err
	})
	if err != nil {
		respondError(c, "Ошибка резервирования", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Consume списывает остатки под план по FEFO
// POST /api/v1/inventory/consume
func (ic *InventoryController) Consume(c *gin.Context) {
	planID, ok := bindPlanID(c)
	if !ok {
		return
	}

	var result *services.ConsumeResult
	err := ic.guard.Run(c.Request.Context(), planID, func(ctx context.Context) error {
		var err error
		result, err = ic.engine.Consume(ctx, planID)
		return err
	})
	if err != nil {
		respondError(c, "Ошибка списания", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRequirements потребность плана в сырье
// GET /api/v1/inventory/plans/:id/requirements
func (ic *InventoryController) GetRequirements(c *gin.Context) {
	planID, ok := planIDParam(c)
	if !ok {
		return
	}

	req, err := ic.engine.Requirements(c.Request.Context(), planID)
	if err != nil {
		respondError(c, "Ошибка расчета потребности", err)
		return
	}

	lines := make([]services.ReservedLine, 0, len(req))
	for _, productID := range req.ProductIDs() {
		lines = append(lines, services.ReservedLine{ProductID: productID, Qty: req[productID]})
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":      planID,
		"requirements": lines,
		"count":        len(lines),
	})
}

// GetReservations текущие резервы плана
// GET /api/v1/inventory/plans/:id/reservations
func (ic *InventoryController) GetReservations(c *gin.Context) {
	planID, ok := planIDParam(c)
	if !ok {
		return
	}

	rows, err := ic.engine.Reservations(c.Request.Context(), planID)
	if err != nil {
		respondError(c, "Ошибка получения резервов", err)
		return
	}

	if rows == nil {
		rows = []models.InventoryReservation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":      planID,
		"reservations": rows,
		"count":        len(rows),
	})
}

// ImportReceipts оприходует партии из XLSX или CSV накладной (поле формы file)
// POST /api/v1/inventory/receipts/import
func (ic *InventoryController) ImportReceipts(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Файл не найден в запросе",
			"details": err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Не удалось открыть файл",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	lines, skipped, err := services.ParseReceiptFile(fileHeader.Filename, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка разбора накладной",
			"details": err.Error(),
		})
		return
	}
	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "В накладной нет валидных строк",
			"skipped": skipped,
		})
		return
	}

	batchIDs, err := ic.receipts.ImportReceipts(c.Request.Context(), lines)
	if err != nil {
		respondError(c, "Ошибка оприходования", err)
		return
	}

	if skipped == nil {
		skipped = []string{}
	}
	c.JSON(http.StatusCreated, services.ReceiptImportResult{
		BatchIDs: batchIDs,
		Skipped:  skipped,
	})
}
