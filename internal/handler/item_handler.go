package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/examsim-api/internal/handler/dto"
	"github.com/yourusername/examsim-api/internal/service"
)

// ItemHandler обрабатывает запросы к банку вопросов
type ItemHandler struct {
	examService *service.ExamService
}

// NewItemHandler создает новый обработчик банка вопросов
func NewItemHandler(examService *service.ExamService) *ItemHandler {
	return &ItemHandler{examService: examService}
}

// GetItem возвращает вопрос без ключа ответа
// GET /api/items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	itemID := c.MustGet("itemID").(uint)

	item, err := h.examService.GetItem(c.Request.Context(), itemID)
	if err != nil {
		handleServiceError(c, "ItemHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewItemResponse(item))
}

// GetPoolStats возвращает статистику банка по сложности
// GET /api/items/stats?module=legislation,specialty&bank=legislation
func (h *ItemHandler) GetPoolStats(c *gin.Context) {
	var modules []string
	if raw := c.Query("module"); raw != "" {
		modules = strings.Split(raw, ",")
	}

	stats, err := h.examService.PoolStats(c.Request.Context(), modules, c.Query("bank"))
	if err != nil {
		handleServiceError(c, "ItemHandler", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ImportBank загружает банк вопросов из JSON-файла банка.
// replace=true заменяет ранее загруженный банк с тем же именем.
// POST /api/admin/items/import?bank=legislation&replace=true
func (h *ItemHandler) ImportBank(c *gin.Context) {
	bank := strings.TrimSpace(c.Query("bank"))
	if bank == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank query parameter is required"})
		return
	}
	replace, err := strconv.ParseBool(c.DefaultQuery("replace", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid replace"})
		return
	}

	var req dto.BankFile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imported, err := h.examService.ImportBank(c.Request.Context(), bank, req.ToEntities(), replace)
	if err != nil {
		handleServiceError(c, "ItemHandler", err)
		return
	}

	log.Printf("[ItemHandler] Банк %s: загружено %d вопросов (replace=%t)", bank, imported, replace)
	c.JSON(http.StatusOK, gin.H{
		"message": "Bank imported successfully",
		"bank":    bank,
		"total":   imported,
	})
}
